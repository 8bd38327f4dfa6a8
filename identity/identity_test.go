package identity

import (
	"context"
	"testing"
	"time"

	"civicsync/apperr"
	"civicsync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(NewMemoryUsers(), []byte("test-secret"), time.Hour, zap.NewNop())
}

func register(t *testing.T, s *Service, email string, role models.Role, cats ...models.IssueCategory) models.Principal {
	t.Helper()
	p, err := s.Register(context.Background(), RegisterInput{
		Name:       "User " + email,
		Email:      email,
		Password:   "secret123",
		Role:       role,
		Categories: cats,
	})
	require.NoError(t, err)
	return p
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	tech := register(t, s, "Tech@Example.com", models.RoleTechnician, models.RoadTransportation)

	assert.Equal(t, "tech@example.com", tech.Email)
	assert.Equal(t, []models.IssueCategory{models.RoadTransportation}, tech.Categories)

	token, p, err := s.Login(ctx, "tech@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, tech.ID, p.ID)

	resolved, err := s.ResolvePrincipal(ctx, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, resolved.ID)
	assert.Equal(t, models.RoleTechnician, resolved.Role)
}

func TestRegisterRejectsDuplicateAndInvalid(t *testing.T) {
	s := newTestService()
	register(t, s, "a@example.com", models.RoleCitizen)

	_, err := s.Register(context.Background(), RegisterInput{
		Name: "Again", Email: "a@example.com", Password: "secret123", Role: models.RoleCitizen,
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.Register(context.Background(), RegisterInput{
		Name: "Short", Email: "b@example.com", Password: "123", Role: models.RoleCitizen,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Register(context.Background(), RegisterInput{
		Name: "Bad role", Email: "c@example.com", Password: "secret123", Role: "mayor",
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCitizenCategoriesAreDropped(t *testing.T) {
	s := newTestService()
	p := register(t, s, "c@example.com", models.RoleCitizen, models.WaterSupply)
	assert.Empty(t, p.Categories)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestService()
	register(t, s, "a@example.com", models.RoleCitizen)

	_, _, err := s.Login(context.Background(), "a@example.com", "nope")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, _, err = s.Login(context.Background(), "missing@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestResolvePrincipalRejectsGarbage(t *testing.T) {
	s := newTestService()
	_, err := s.ResolvePrincipal(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = s.ResolvePrincipal(context.Background(), "Bearer not-a-jwt")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestRoleOverride(t *testing.T) {
	s := newTestService()
	register(t, s, "a@example.com", models.RoleCitizen)
	token, _, err := s.Login(context.Background(), "a@example.com", "secret123")
	require.NoError(t, err)

	ctx := WithRoleOverride(context.Background(), models.RoleAdmin)
	p, err := s.ResolvePrincipal(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)

	ctx = WithRoleOverride(context.Background(), "superuser")
	_, ok := RoleOverride(ctx)
	assert.False(t, ok)
	p, err = s.ResolvePrincipal(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCitizen, p.Role)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	tech := register(t, s, "t@example.com", models.RoleTechnician)
	citizen := register(t, s, "c@example.com", models.RoleCitizen)

	name := "Renamed"
	p, err := s.UpdateProfile(ctx, tech.ID, &name, []models.IssueCategory{models.Electricity})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.DisplayName)
	assert.True(t, p.HasCategory(models.Electricity))

	_, err = s.UpdateProfile(ctx, citizen.ID, nil, []models.IssueCategory{models.Electricity})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	blank := "  "
	_, err = s.UpdateProfile(ctx, tech.ID, &blank, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.UpdateProfile(ctx, "000000000000000000000000", &name, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSetAvatarAndList(t *testing.T) {
	s := newTestService()
	ctx := context.Background()
	a := register(t, s, "a@example.com", models.RoleCitizen)
	_, err := s.EnsureAdmin(ctx, "Ada", "b@example.com", "secret123")
	require.NoError(t, err)

	p, err := s.SetAvatar(ctx, a.ID, "https://cdn.example.com/avatars/a.png")
	require.NoError(t, err)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, "https://cdn.example.com/avatars/a.png", *p.AvatarURL)

	all, err := s.ListPrincipals(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRegisterRefusesAdministrators(t *testing.T) {
	s := newTestService()
	_, err := s.Register(context.Background(), RegisterInput{
		Name: "Mallory", Email: "m@example.com", Password: "secret123", Role: models.RoleAdmin,
	})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	all, err := s.ListPrincipals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestEnsureAdmin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	admin, err := s.EnsureAdmin(ctx, "Ada Admin", "Ada@Example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "ada@example.com", admin.Email)

	again, err := s.EnsureAdmin(ctx, "Ada Admin", "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, again.ID)

	token, p, err := s.Login(ctx, "ada@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleAdmin, p.Role)

	register(t, s, "carla@example.com", models.RoleCitizen)
	_, err = s.EnsureAdmin(ctx, "Carla", "carla@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.EnsureAdmin(ctx, "", "x@example.com", "secret123")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
