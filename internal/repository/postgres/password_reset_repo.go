package postgres

import (
	"context"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) *passwordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Replace(ctx context.Context, reset *domain.PasswordReset) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", reset.Email).Delete(&domain.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(reset).Error
	})
}

func (r *passwordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.PasswordReset, error) {
	var reset domain.PasswordReset
	if err := r.db.WithContext(ctx).First(&reset, "token_hash = ?", tokenHash).Error; err != nil {
		return nil, translate(err, nil)
	}
	return &reset, nil
}

func (r *passwordResetRepository) Redeem(ctx context.Context, tokenHash string, userID uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("token_hash = ?", tokenHash).Delete(&domain.PasswordReset{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}

		result = tx.Model(&domain.User{}).
			Where("id = ?", userID).
			Update("password_hash", passwordHash)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}

func (r *passwordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&domain.PasswordReset{}).Error
}
