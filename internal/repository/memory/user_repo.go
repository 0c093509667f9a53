package memory

import (
	"context"
	"sort"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User, roleID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.liveRole(roleID) {
		return repository.ErrRoleNotFound
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicateEmail
	}

	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.s.users[user.ID] = cloneUser(user)
	r.s.userRoles[user.ID] = []uuid.UUID{roleID}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok || (u.DeletedAt.Valid && !includeDeleted) {
		return nil, repository.ErrNotFound
	}
	return r.s.withRoles(u), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email != email {
			continue
		}
		if u.DeletedAt.Valid && !includeDeleted {
			return nil, repository.ErrNotFound
		}
		return r.s.withRoles(u), nil
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) GetByActivationCode(ctx context.Context, code string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.DeletedAt.Valid || u.ActivationStatus || u.ActivationCode == nil {
			continue
		}
		if *u.ActivationCode == code {
			return r.s.withRoles(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		if u.DeletedAt.Valid && !opts.IncludeDeleted {
			continue
		}
		users = append(users, r.s.withRoles(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Email < users[j].Email
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return page(users, opts), int64(len(users)), nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return repository.ErrDuplicateEmail
	}
	u.Name = user.Name
	u.Email = user.Email
	u.ProfileImage = cloneUser(user).ProfileImage
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepository) Activate(ctx context.Context, id uuid.UUID, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.DeletedAt.Valid || u.ActivationCode == nil || *u.ActivationCode != code {
		return repository.ErrNotFound
	}
	u.ActivationStatus = true
	u.ActivationCode = nil
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepository) SetSession(ctx context.Context, id uuid.UUID, loggedIn bool, lastSeen *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	u.IsLoggedIn = loggedIn
	if lastSeen != nil {
		t := *lastSeen
		u.LastSeen = &t
	}
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepository) ReplaceRoles(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	if !r.s.liveRole(roleID) {
		return repository.ErrRoleNotFound
	}
	r.s.userRoles[id] = []uuid.UUID{roleID}
	return nil
}

func (r *userRepository) AttachRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	if !r.s.liveRole(roleID) {
		return repository.ErrRoleNotFound
	}
	for _, existing := range r.s.userRoles[id] {
		if existing == roleID {
			return nil
		}
	}
	r.s.userRoles[id] = append(r.s.userRoles[id], roleID)
	return nil
}

func (r *userRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.DeletedAt.Valid || !u.ActivationStatus {
		return repository.ErrNotFound
	}
	u.ActivationStatus = false
	u.IsLoggedIn = false
	u.DeletedAt = softDeleted(at)
	u.UpdatedAt = r.s.now()
	delete(r.s.resets, u.Email)
	return nil
}

func (r *userRepository) Reactivate(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || !u.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	u.ActivationStatus = true
	u.DeletedAt = gorm.DeletedAt{}
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *userRepository) ForceDelete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.s.resets, u.Email)
	delete(r.s.userRoles, id)
	delete(r.s.users, id)
	return nil
}
