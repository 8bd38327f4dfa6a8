// Package identity resolves bearer credentials to principals and keeps the
// user directory the assignment and notification code reads from.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicsync/apperr"
	"civicsync/models"
	authUtils "civicsync/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type roleOverrideKey struct{}

// WithRoleOverride marks ctx so that ResolvePrincipal reports role instead
// of the stored one. It is a test-mode impersonation seam; unknown roles
// are ignored.
func WithRoleOverride(ctx context.Context, role models.Role) context.Context {
	if !role.Valid() {
		return ctx
	}
	return context.WithValue(ctx, roleOverrideKey{}, role)
}

// RoleOverride returns the override carried by ctx, if any.
func RoleOverride(ctx context.Context) (models.Role, bool) {
	role, ok := ctx.Value(roleOverrideKey{}).(models.Role)
	return role, ok
}

// RegisterInput is what a new self-registered account needs.
// Administrators are provisioned with EnsureAdmin, never registered.
type RegisterInput struct {
	Name       string                 `validate:"required,max=50"`
	Email      string                 `validate:"required,email"`
	Password   string                 `validate:"required,min=6"`
	Role       models.Role            `validate:"required,oneof=citizen technician"`
	Categories []models.IssueCategory `validate:"omitempty,dive,required"`
}

// Service is the identity adapter.
type Service struct {
	users    UserRepository
	secret   []byte
	tokenTTL time.Duration
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(users UserRepository, secret []byte, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		secret:   secret,
		tokenTTL: tokenTTL,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register creates a citizen or technician account and returns its
// principal.
func (s *Service) Register(ctx context.Context, input RegisterInput) (models.Principal, error) {
	if input.Role == models.RoleAdmin {
		return models.Principal{}, apperr.Forbidden("administrator accounts cannot be self-registered")
	}
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.validate.Struct(input); err != nil {
		return models.Principal{}, apperr.Validation("%s", err.Error())
	}

	user := models.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    input.Email,
		Password: input.Password,
		Role:     input.Role,
	}
	if input.Role == models.RoleTechnician {
		user.Categories = input.Categories
	}
	return s.create(ctx, &user)
}

// EnsureAdmin provisions the administrator account named by configuration.
// An existing administrator with that email is returned unchanged; an
// existing non-admin account with that email is a Conflict.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (models.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			return models.Principal{}, apperr.Conflict("%s is registered with role %s", email, existing.Role)
		}
		return existing.Principal(), nil
	case !errors.Is(err, ErrUserNotFound):
		return models.Principal{}, apperr.Adapter("failed to load user", err)
	}

	input := RegisterInput{Name: name, Email: email, Password: password, Role: models.RoleCitizen}
	if err := s.validate.Struct(input); err != nil {
		return models.Principal{}, apperr.Validation("%s", err.Error())
	}
	return s.create(ctx, &models.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: password,
		Role:     models.RoleAdmin,
	})
}

func (s *Service) create(ctx context.Context, user *models.User) (models.Principal, error) {
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	if err := user.HashPassword(); err != nil {
		return models.Principal{}, apperr.Adapter("failed to hash password", err)
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return models.Principal{}, apperr.Conflict("user with this email already exists")
		}
		s.logger.Error("Error inserting user", zap.Error(err))
		return models.Principal{}, apperr.Adapter("failed to create user", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	return user.Principal(), nil
}

// Login checks the password and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, models.Principal, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrUserNotFound) {
		return "", models.Principal{}, apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return "", models.Principal{}, apperr.Adapter("failed to load user", err)
	}
	if !user.ComparePassword(password) {
		return "", models.Principal{}, apperr.Unauthorized("invalid credentials")
	}

	token, err := authUtils.GenerateToken(s.secret, user.ID.Hex(), string(user.Role), s.tokenTTL)
	if err != nil {
		s.logger.Error("Error generating token", zap.Error(err))
		return "", models.Principal{}, apperr.Adapter("failed to issue token", err)
	}
	return token, user.Principal(), nil
}

// ResolvePrincipal turns a bearer credential into a principal, applying
// a role override from ctx when present.
func (s *Service) ResolvePrincipal(ctx context.Context, credential string) (models.Principal, error) {
	credential = strings.TrimSpace(strings.TrimPrefix(credential, "Bearer "))
	if credential == "" {
		return models.Principal{}, apperr.Unauthorized("no authorization token provided")
	}

	claims, err := authUtils.ParseToken(s.secret, credential)
	if err != nil {
		return models.Principal{}, apperr.Unauthorized("invalid authorization token")
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return models.Principal{}, apperr.Unauthorized("user no longer exists")
	}
	if err != nil {
		return models.Principal{}, apperr.Adapter("failed to load user", err)
	}

	p := user.Principal()
	if role, ok := RoleOverride(ctx); ok {
		p.Role = role
	}
	return p, nil
}

// GetPrincipal looks a principal up by id.
func (s *Service) GetPrincipal(ctx context.Context, id string) (models.Principal, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return models.Principal{}, apperr.NotFound("user %s not found", id)
	}
	if err != nil {
		return models.Principal{}, apperr.Adapter("failed to load user", err)
	}
	return user.Principal(), nil
}

// ListPrincipals returns every known principal.
func (s *Service) ListPrincipals(ctx context.Context) ([]models.Principal, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, apperr.Adapter("failed to list users", err)
	}
	out := make([]models.Principal, 0, len(users))
	for i := range users {
		out = append(out, users[i].Principal())
	}
	return out, nil
}

// UpdateProfile changes the display name and, for technicians, the
// competency set. Existing issues and notifications keep the old name.
func (s *Service) UpdateProfile(ctx context.Context, id string, name *string, categories []models.IssueCategory) (models.Principal, error) {
	changes := UserChanges{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" || len(trimmed) > 50 {
			return models.Principal{}, apperr.Validation("name must be between 1 and 50 characters")
		}
		changes.Name = &trimmed
	}
	if categories != nil {
		current, err := s.GetPrincipal(ctx, id)
		if err != nil {
			return models.Principal{}, err
		}
		if current.Role != models.RoleTechnician {
			return models.Principal{}, apperr.Validation("only technicians have categories")
		}
		changes.Categories = categories
	}
	return s.update(ctx, id, changes)
}

// SetAvatar stores an already uploaded avatar URL on the profile.
func (s *Service) SetAvatar(ctx context.Context, id, url string) (models.Principal, error) {
	return s.update(ctx, id, UserChanges{AvatarURL: &url})
}

func (s *Service) update(ctx context.Context, id string, changes UserChanges) (models.Principal, error) {
	user, err := s.users.Update(ctx, id, changes)
	if errors.Is(err, ErrUserNotFound) {
		return models.Principal{}, apperr.NotFound("user %s not found", id)
	}
	if err != nil {
		return models.Principal{}, apperr.Adapter("failed to update user", err)
	}
	return user.Principal(), nil
}
