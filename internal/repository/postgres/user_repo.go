package postgres

import (
	"context"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRole(tx, roleID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return translate(err, repository.ErrDuplicateEmail)
		}
		return tx.Create(&domain.UserRole{UserID: user.ID, RoleID: roleID}).Error
	})
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.User, error) {
	var user domain.User
	err := r.scope(ctx, includeDeleted).
		Preload("Roles", activeRoles).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error) {
	var user domain.User
	err := r.scope(ctx, includeDeleted).
		Preload("Roles", activeRoles).
		First(&user, "email = ?", email).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	return &user, nil
}

func (r *userRepository) GetByActivationCode(ctx context.Context, code string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Where("activation_code = ? AND activation_status = ?", code, false).
		First(&user).Error
	if err != nil {
		return nil, translate(err, nil)
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.User, int64, error) {
	var total int64
	if err := r.scope(ctx, opts.IncludeDeleted).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*domain.User
	err := r.scope(ctx, opts.IncludeDeleted).
		Preload("Roles", activeRoles).
		Order("created_at DESC").
		Scopes(paginate(opts)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Unscoped().
		Model(&domain.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"name":          user.Name,
			"email":         user.Email,
			"profile_image": user.ProfileImage,
		}).Error
	return translate(err, repository.ErrDuplicateEmail)
}

func (r *userRepository) Activate(ctx context.Context, id uuid.UUID, code string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND activation_code = ?", id, code).
		Updates(map[string]interface{}{
			"activation_status": true,
			"activation_code":   nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) SetSession(ctx context.Context, id uuid.UUID, loggedIn bool, lastSeen *time.Time) error {
	updates := map[string]interface{}{"is_logged_in": loggedIn}
	if lastSeen != nil {
		updates["last_seen"] = *lastSeen
	}
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) ReplaceRoles(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, id); err != nil {
			return err
		}
		if err := requireRole(tx, roleID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.UserRole{UserID: id, RoleID: roleID}).Error
	})
}

func (r *userRepository) AttachRole(ctx context.Context, id uuid.UUID, roleID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, id); err != nil {
			return err
		}
		if err := requireRole(tx, roleID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.UserRole{UserID: id, RoleID: roleID}).Error
	})
}

// Deactivate clears the activation and session flags, sets the deletion
// marker and drops any pending password reset.
func (r *userRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.First(&user, "id = ? AND activation_status = ?", id, true).Error; err != nil {
			return translate(err, nil)
		}

		result := tx.Model(&domain.User{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"activation_status": false,
				"is_logged_in":      false,
				"deleted_at":        at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}

		return tx.Where("email = ?", user.Email).Delete(&domain.PasswordReset{}).Error
	})
}

func (r *userRepository) Reactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Unscoped().
			Model(&domain.User{}).
			Where("id = ? AND deleted_at IS NOT NULL", id).
			Updates(map[string]interface{}{
				"activation_status": true,
				"deleted_at":        nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *userRepository) ForceDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.Unscoped().First(&user, "id = ?", id).Error; err != nil {
			return translate(err, nil)
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.UserRole{}).Error; err != nil {
			return err
		}
		if err := tx.Where("email = ?", user.Email).Delete(&domain.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&domain.User{}, "id = ?", id).Error
	})
}

func (r *userRepository) scope(ctx context.Context, includeDeleted bool) *gorm.DB {
	db := r.db.WithContext(ctx)
	if includeDeleted {
		return db.Unscoped()
	}
	return db
}

func requireRole(tx *gorm.DB, roleID uuid.UUID) error {
	var count int64
	if err := tx.Model(&domain.Role{}).Where("id = ?", roleID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrRoleNotFound
	}
	return nil
}

func requireUser(tx *gorm.DB, id uuid.UUID) error {
	var count int64
	if err := tx.Unscoped().Model(&domain.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return nil
}
