package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RoleService struct {
	roles repository.RoleRepository
}

func NewRoleService(roles repository.RoleRepository) *RoleService {
	return &RoleService{roles: roles}
}

// RoleInput creates or updates a role. A role created without permissions
// grants its own "<slug>-access" permission.
type RoleInput struct {
	Name        string             `json:"name"`
	Permissions domain.Permissions `json:"permissions"`
}

func (in RoleInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
	)
}

func (s *RoleService) List(ctx context.Context, page, perPage int) (*Page[*domain.Role], error) {
	opts := listOptions(page, perPage, false)
	roles, total, err := s.roles.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return &Page[*domain.Role]{Items: roles, Total: total, Page: opts.Page, PerPage: opts.PerPage}, nil
}

func (s *RoleService) Get(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

func (s *RoleService) Create(ctx context.Context, input RoleInput) (*domain.Role, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}

	perms := input.Permissions
	if len(perms) == 0 {
		perms = domain.Permissions{domain.PermissionFor(domain.Slugify(input.Name)): true}
	}
	role := domain.NewRole(input.Name, perms)
	if err := role.Validate(); err != nil {
		return nil, fieldError("name", err.Error())
	}

	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return nil, ErrRoleSlugTaken
		}
		return nil, fmt.Errorf("create role: %w", err)
	}
	return role, nil
}

// Update renames the role and, when permissions are given, replaces them.
func (s *RoleService) Update(ctx context.Context, id uuid.UUID, input RoleInput) (*domain.Role, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}

	role, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	role.Name = input.Name
	role.Slug = domain.Slugify(input.Name)
	if len(input.Permissions) > 0 {
		role.Permissions = datatypes.NewJSONType(input.Permissions)
	}
	if err := role.Validate(); err != nil {
		return nil, fieldError("name", err.Error())
	}

	if err := s.roles.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateSlug):
			return nil, ErrRoleSlugTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the role. Users holding it simply stop receiving its
// permissions.
func (s *RoleService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}
	return nil
}
