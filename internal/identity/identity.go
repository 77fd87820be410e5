// Package identity models the identity-platform user store.
//
// The platform owns the user records; this service only issues lookup, create
// and update calls against it. Two backends exist: memory (dev/tests) and
// postgres. Tests inject the memory store instead of touching a real platform.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound: no record under that uid/email.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrUserExists: create hit an existing uid. Callers retry as update.
	ErrUserExists = errors.New("identity: user already exists")
)

// User is the platform's persisted account record.
type User struct {
	UID           string
	Email         string
	EmailVerified bool
	DisplayName   string
	PhotoURL      string

	// CustomClaims travels into the custom token on sign-in. Used to record
	// providerUID when an identity is linked to a pre-existing user by email.
	CustomClaims map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Update is a partial profile update; nil fields are left untouched.
type Update struct {
	Email         *string
	EmailVerified *bool
	DisplayName   *string
	PhotoURL      *string
}

// Store is the surface of the identity platform this service consumes.
type Store interface {
	GetUser(ctx context.Context, uid string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// CreateUser persists a new record. Returns ErrUserExists if the uid is
	// taken; uid uniqueness is the store's job, not ours.
	CreateUser(ctx context.Context, u *User) error

	UpdateUser(ctx context.Context, uid string, upd Update) (*User, error)
	SetCustomClaims(ctx context.Context, uid string, claims map[string]any) error
}

// UID derives the deterministic platform uid for a provider identity.
func UID(providerName, providerUserID string) string {
	return providerName + ":" + providerUserID
}

// Str is a convenience for building Update fields.
func Str(s string) *string { return &s }

// BoolPtr is a convenience for building Update fields.
func BoolPtr(b bool) *bool { return &b }
