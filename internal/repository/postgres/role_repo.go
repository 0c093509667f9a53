package postgres

import (
	"context"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) *roleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	err := r.db.WithContext(ctx).Create(role).Error
	return translate(err, repository.ErrDuplicateSlug)
}

func (r *roleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error; err != nil {
		return nil, translate(err, nil)
	}
	return &role, nil
}

func (r *roleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Role, error) {
	var role domain.Role
	if err := r.db.WithContext(ctx).First(&role, "slug = ?", slug).Error; err != nil {
		return nil, translate(err, nil)
	}
	return &role, nil
}

func (r *roleRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Role, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.Role{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var roles []*domain.Role
	err := r.db.WithContext(ctx).
		Order("name").
		Scopes(paginate(opts)).
		Find(&roles).Error
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Role{}).
		Where("id = ?", role.ID).
		Updates(map[string]interface{}{
			"name":        role.Name,
			"slug":        role.Slug,
			"permissions": role.Permissions,
		})
	if result.Error != nil {
		return translate(result.Error, repository.ErrDuplicateSlug)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Role{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
