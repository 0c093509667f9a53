package postgres

import (
	"fmt"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewConnection opens a gorm connection for driver ("postgres" or "mysql")
// and migrates the schema.
func NewConnection(driver, databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(databaseURL)
	case "mysql":
		dialector = mysql.Open(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate registers the role_user join model and auto-migrates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&domain.User{}, "Roles", &domain.UserRole{}); err != nil {
		return fmt.Errorf("setup role_user join table: %w", err)
	}
	return db.AutoMigrate(
		&domain.Role{},
		&domain.User{},
		&domain.UserRole{},
		&domain.PasswordReset{},
	)
}

func NewRepositories(db *gorm.DB, blacklist repository.TokenBlacklist) *repository.Repositories {
	return &repository.Repositories{
		User:          NewUserRepository(db),
		Role:          NewRoleRepository(db),
		PasswordReset: NewPasswordResetRepository(db),
		Blacklist:     blacklist,
	}
}
