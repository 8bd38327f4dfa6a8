package identity

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"civicsync/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryUsers is an in-process UserRepository for local development and tests.
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{users: make(map[primitive.ObjectID]models.User)}
}

func (m *MemoryUsers) Insert(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicateEmail
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[objectID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (m *MemoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryUsers) FindAll(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	slices.SortFunc(out, func(a, b models.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (m *MemoryUsers) Update(_ context.Context, id string, changes UserChanges) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[objectID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if changes.Name != nil {
		u.Name = *changes.Name
	}
	if changes.Categories != nil {
		u.Categories = slices.Clone(changes.Categories)
	}
	if changes.AvatarURL != nil {
		url := *changes.AvatarURL
		u.AvatarURL = &url
	}
	u.UpdatedAt = time.Now()
	m.users[objectID] = u
	return &u, nil
}
