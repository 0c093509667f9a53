package memory

import (
	"context"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
)

type passwordResetRepository struct {
	s *Store
}

func (r *passwordResetRepository) Replace(ctx context.Context, reset *domain.PasswordReset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *reset
	r.s.resets[reset.Email] = &stored
	return nil
}

func (r *passwordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordReset, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, reset := range r.s.resets {
		if reset.TokenHash == tokenHash {
			out := *reset
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *passwordResetRepository) Redeem(ctx context.Context, tokenHash string, userID uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var email string
	for e, reset := range r.s.resets {
		if reset.TokenHash == tokenHash {
			email = e
			break
		}
	}
	if email == "" {
		return repository.ErrNotFound
	}
	u, ok := r.s.users[userID]
	if !ok || u.DeletedAt.Valid {
		return repository.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = r.s.now()
	delete(r.s.resets, email)
	return nil
}

func (r *passwordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.resets, email)
	return nil
}
