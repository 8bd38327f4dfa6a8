package identity

import (
	"context"
	"errors"

	"civicsync/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

// UserChanges is a partial profile update. Nil fields are left untouched.
type UserChanges struct {
	Name       *string
	Categories []models.IssueCategory
	AvatarURL  *string
}

// UserRepository stores account records.
type UserRepository interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, changes UserChanges) (*models.User, error)
}
