package repository

import (
	"context"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/google/uuid"
)

// ListOptions pages a listing. IncludeDeleted also returns soft-deactivated rows.
type ListOptions struct {
	Page           int
	PerPage        int
	IncludeDeleted bool
}

// Offset returns the row offset for the requested page.
func (o ListOptions) Offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.PerPage
}

type UserRepository interface {
	// Create inserts the user and attaches roleID in the same transaction.
	Create(ctx context.Context, user *domain.User, roleID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.User, error)
	GetByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error)
	GetByActivationCode(ctx context.Context, code string) (*domain.User, error)
	List(ctx context.Context, opts ListOptions) ([]*domain.User, int64, error)
	// Update writes name, email and profile image.
	Update(ctx context.Context, user *domain.User) error
	// Activate redeems code for id. ErrNotFound when the code was already used.
	Activate(ctx context.Context, id uuid.UUID, code string) error
	SetSession(ctx context.Context, id uuid.UUID, loggedIn bool, lastSeen *time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ReplaceRoles(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error
	AttachRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	ForceDelete(ctx context.Context, id uuid.UUID) error
}

type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Role, error)
	List(ctx context.Context, opts ListOptions) ([]*domain.Role, int64, error)
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PasswordResetRepository interface {
	// Replace stores reset as the only pending reset for its email.
	Replace(ctx context.Context, reset *domain.PasswordReset) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordReset, error)
	// Redeem sets the user's password and consumes the reset in one transaction.
	Redeem(ctx context.Context, tokenHash string, userID uuid.UUID, passwordHash string) error
	DeleteByEmail(ctx context.Context, email string) error
}

// TokenBlacklist records invalidated token IDs until they can no longer be refreshed.
// Add reports false when tokenID was already recorded, so at most one caller
// claims a given token.
type TokenBlacklist interface {
	Add(ctx context.Context, tokenID string, until time.Time) (bool, error)
	Contains(ctx context.Context, tokenID string) (bool, error)
}

// Repositories holds all repository instances
type Repositories struct {
	User          UserRepository
	Role          RoleRepository
	PasswordReset PasswordResetRepository
	Blacklist     TokenBlacklist
}
