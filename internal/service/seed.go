package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Seed creates the administrator and subscriber roles and an active
// administrator account. Records that already exist are left untouched.
func Seed(ctx context.Context, repos *repository.Repositories, cfg *config.Config) error {
	admin, err := seedRole(ctx, repos.Role, "Administrator", domain.RoleAdministrator, domain.PermissionAdmin)
	if err != nil {
		return err
	}
	if _, err := seedRole(ctx, repos.Role, "Subscriber", domain.RoleSubscriber, domain.PermissionFor(domain.RoleSubscriber)); err != nil {
		return err
	}

	email := domain.NormalizeEmail(cfg.AdminEmail)
	if _, err := repos.User.GetByEmail(ctx, email, true); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("seed admin: hash password: %w", err)
	}
	user := &domain.User{
		ID:               uuid.New(),
		Name:             "Administrator",
		Email:            email,
		PasswordHash:     string(hash),
		ActivationStatus: true,
		CreatedAt:        time.Now(),
	}
	if err := repos.User.Create(ctx, user, admin.ID); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	log.Printf("INFO [service.Seed] created administrator %s", email)
	return nil
}

func seedRole(ctx context.Context, roles repository.RoleRepository, name, slug, permission string) (*domain.Role, error) {
	role, err := roles.GetBySlug(ctx, slug)
	if err == nil {
		return role, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("seed role %s: %w", slug, err)
	}

	role = domain.NewRole(name, domain.Permissions{permission: true})
	role.Slug = slug
	if err := roles.Create(ctx, role); err != nil {
		return nil, fmt.Errorf("seed role %s: %w", slug, err)
	}
	return role, nil
}
