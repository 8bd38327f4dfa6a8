package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleTechnician || r == RoleAdmin
}

// User is the stored account record behind a Principal.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password,omitempty" json:"-"`
	Role       Role               `bson:"role" json:"role"`
	Categories []IssueCategory    `bson:"categories,omitempty" json:"categories,omitempty"`
	AvatarURL  *string            `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// Principal returns the read-only view the core engine works with.
func (u *User) Principal() Principal {
	return Principal{
		ID:          u.ID.Hex(),
		Email:       u.Email,
		DisplayName: u.Name,
		Role:        u.Role,
		Categories:  slices.Clone(u.Categories),
		AvatarURL:   u.AvatarURL,
	}
}

// Principal is an authenticated actor.
type Principal struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	Role        Role            `json:"role"`
	Categories  []IssueCategory `json:"categories,omitempty"`
	AvatarURL   *string         `json:"avatarUrl,omitempty"`
}

// HasCategory reports whether c is in the technician's competency set.
func (p Principal) HasCategory(c IssueCategory) bool {
	return slices.Contains(p.Categories, c)
}
