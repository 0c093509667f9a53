package memory

import (
	"context"
	"sort"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
)

type roleRepository struct {
	s *Store
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.slugTaken(role.Slug, role.ID) {
		return repository.ErrDuplicateSlug
	}
	now := r.s.now()
	role.CreatedAt = now
	role.UpdatedAt = now
	r.s.roles[role.ID] = cloneRole(role)
	return nil
}

func (r *roleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	role, ok := r.s.roles[id]
	if !ok || role.DeletedAt.Valid {
		return nil, repository.ErrNotFound
	}
	return cloneRole(role), nil
}

func (r *roleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, role := range r.s.roles {
		if role.Slug == slug && !role.DeletedAt.Valid {
			return cloneRole(role), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *roleRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Role, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	roles := make([]*domain.Role, 0, len(r.s.roles))
	for _, role := range r.s.roles {
		if role.DeletedAt.Valid {
			continue
		}
		roles = append(roles, cloneRole(role))
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return page(roles, opts), int64(len(roles)), nil
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.roles[role.ID]
	if !ok || existing.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	if r.slugTaken(role.Slug, role.ID) {
		return repository.ErrDuplicateSlug
	}
	existing.Name = role.Name
	existing.Slug = role.Slug
	existing.Permissions = role.Permissions
	existing.UpdatedAt = r.s.now()
	return nil
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	role, ok := r.s.roles[id]
	if !ok || role.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	role.DeletedAt = softDeleted(r.s.now())
	return nil
}

// slugTaken includes soft-deleted roles, matching the unique index on slug.
func (r *roleRepository) slugTaken(slug string, except uuid.UUID) bool {
	for _, role := range r.s.roles {
		if role.Slug == slug && role.ID != except {
			return true
		}
	}
	return false
}
