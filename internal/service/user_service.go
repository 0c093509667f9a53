package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/mail"
	"github.com/dom/account-api/internal/repository"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// UserService is the administrative side of the account lifecycle.
type UserService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	mailer mail.Dispatcher
	events EventPublisher
	cfg    *config.Config
	now    func() time.Time
}

func NewUserService(repos *repository.Repositories, mailer mail.Dispatcher, events EventPublisher, cfg *config.Config) *UserService {
	if events == nil {
		events = nopPublisher{}
	}
	return &UserService{
		users:  repos.User,
		roles:  repos.Role,
		mailer: mailer,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock replaces the time source. It is meant for tests.
func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

type CreateUserInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	RoleID string `json:"role_id"`
}

func (in CreateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Required, is.Email, validation.Length(1, 255)),
		validation.Field(&in.RoleID, validation.Required, is.UUID),
	)
}

type UpdateUserInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (in UpdateUserInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Required, is.Email, validation.Length(1, 255)),
	)
}

// Page is one page of a listing.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

func listOptions(page, perPage int, includeDeleted bool) repository.ListOptions {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return repository.ListOptions{Page: page, PerPage: perPage, IncludeDeleted: includeDeleted}
}

// List pages through every account, deactivated ones included.
func (s *UserService) List(ctx context.Context, page, perPage int) (*Page[*domain.User], error) {
	opts := listOptions(page, perPage, true)
	users, total, err := s.users.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &Page[*domain.User]{Items: users, Total: total, Page: opts.Page, PerPage: opts.PerPage}, nil
}

// Create adds an already active account with a generated password and mails
// the credentials to it.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}
	email := domain.NormalizeEmail(input.Email)

	if _, err := s.users.GetByEmail(ctx, email, true); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("create user: %w", err)
	}

	role, err := s.role(ctx, uuid.MustParse(input.RoleID))
	if err != nil {
		return nil, err
	}

	password, err := randomString(generatedPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	user := &domain.User{
		ID:               uuid.New(),
		Name:             domain.NormalizeName(input.Name),
		Email:            email,
		PasswordHash:     string(hash),
		ActivationStatus: true,
		CreatedAt:        s.now(),
	}
	if err := s.users.Create(ctx, user, role.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrRoleNotFound):
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	dispatch(ctx, s.mailer, mail.Message{
		To:       user.Email,
		Name:     user.Name,
		Template: mail.TemplateCredentials,
		Data: map[string]string{
			"email":    user.Email,
			"password": password,
			"link":     trimURL(s.cfg.AppURL) + "/login",
		},
	})

	return s.users.GetByID(ctx, user.ID, false)
}

// Get returns any account that has not been permanently deleted.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := updateIdentity(ctx, s.users, user, input.Name, input.Email); err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.Get(ctx, id)
}

// UpdateRole assigns roleID to the user. Under the single-role policy every
// other assignment is dropped in the same transaction.
func (s *UserService) UpdateRole(ctx context.Context, id, roleID uuid.UUID) (*domain.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.role(ctx, roleID); err != nil {
		return nil, err
	}

	assign := s.users.AttachRole
	if s.cfg.SingleRolePolicy {
		assign = s.users.ReplaceRoles
	}
	if err := assign(ctx, id, roleID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoleNotFound):
			return nil, ErrRoleNotFound
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	return s.Get(ctx, id)
}

// Deactivate soft-deletes an active account.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.State() != domain.StateActive {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	if err := s.users.Deactivate(ctx, id, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("deactivate user: %w", err)
	}

	s.events.Publish(domain.NewAccountEvent(domain.EventUserDeactivated, user, now))
	return s.Get(ctx, id)
}

// Reactivate restores a deactivated account.
func (s *UserService) Reactivate(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.State() != domain.StateDeactivated {
		return nil, ErrInvalidTransition
	}

	if err := s.users.Reactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("reactivate user: %w", err)
	}

	s.events.Publish(domain.NewAccountEvent(domain.EventUserReactivated, user, s.now()))
	return s.Get(ctx, id)
}

// Delete permanently removes an active or deactivated account.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.State() == domain.StatePending {
		return ErrInvalidTransition
	}

	if err := s.users.ForceDelete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.events.Publish(domain.NewAccountEvent(domain.EventUserDeleted, user, s.now()))
	return nil
}

func (s *UserService) role(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}
