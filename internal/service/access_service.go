package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
)

// AccessService answers permission checks for an authenticated user ID.
type AccessService struct {
	users repository.UserRepository
}

func NewAccessService(users repository.UserRepository) *AccessService {
	return &AccessService{users: users}
}

// HasAccess reports whether any of the user's roles grants permission. A user
// that no longer exists or has been deactivated is Unauthorized.
func (s *AccessService) HasAccess(ctx context.Context, userID uuid.UUID, permission string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrTokenInvalid
		}
		return false, fmt.Errorf("load user roles: %w", err)
	}
	return domain.HasAccess(user.Roles, permission), nil
}

// Authorize is HasAccess that fails with ErrPermissionDenied instead of false.
func (s *AccessService) Authorize(ctx context.Context, userID uuid.UUID, permission string) error {
	ok, err := s.HasAccess(ctx, userID, permission)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPermissionDenied
	}
	return nil
}
