package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

// AccountService runs the self-service side of the account lifecycle:
// registration, activation, sessions, profile and passwords.
type AccountService struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	resets repository.PasswordResetRepository
	tokens *TokenService
	mailer mail.Dispatcher
	events EventPublisher
	cfg    *config.Config
	now    func() time.Time
}

func NewAccountService(repos *repository.Repositories, tokens *TokenService, mailer mail.Dispatcher, events EventPublisher, cfg *config.Config) *AccountService {
	if events == nil {
		events = nopPublisher{}
	}
	return &AccountService{
		users:  repos.User,
		roles:  repos.Role,
		resets: repos.PasswordReset,
		tokens: tokens,
		mailer: mailer,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock replaces the time source. It is meant for tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Required, is.Email, validation.Length(1, 255)),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLength, 255)),
		validation.Field(&in.PasswordConfirmation, validation.Required, validation.By(matches(in.Password, "the password confirmation does not match"))),
	)
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

type UpdateProfileInput struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	ProfileImage *string `json:"image"`
}

func (in UpdateProfileInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Required, is.Email, validation.Length(1, 255)),
		validation.Field(&in.ProfileImage, validation.Length(0, 2048)),
	)
}

type ChangePasswordInput struct {
	CurrentPassword         string `json:"old_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required),
		validation.Field(&in.NewPassword, validation.Required, validation.Length(minPasswordLength, 255)),
		validation.Field(&in.NewPasswordConfirmation, validation.Required, validation.By(matches(in.NewPassword, "the new password confirmation does not match"))),
	)
}

type ResetPasswordInput struct {
	Token                string `json:"token"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (in ResetPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Token, validation.Required, validation.Length(minResetTokenLength, 255)),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLength, 255)),
		validation.Field(&in.PasswordConfirmation, validation.Required, validation.By(matches(in.Password, "the password confirmation does not match"))),
	)
}

// Register creates a pending account holding the default role and sends the
// activation mail.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}
	email := domain.NormalizeEmail(input.Email)

	// Deactivated accounts still reserve their address
	if _, err := s.users.GetByEmail(ctx, email, true); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	role, err := s.roles.GetBySlug(ctx, s.cfg.DefaultRoleSlug)
	if err != nil {
		return nil, fmt.Errorf("register: default role %q: %w", s.cfg.DefaultRoleSlug, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}
	code, err := randomString(activationCodeLength)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:             uuid.New(),
		Name:           domain.NormalizeName(input.Name),
		Email:          email,
		PasswordHash:   string(hash),
		ActivationCode: &code,
		CreatedAt:      s.now(),
	}
	if err := s.users.Create(ctx, user, role.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	dispatch(ctx, s.mailer, mail.Message{
		To:       user.Email,
		Name:     user.Name,
		Template: mail.TemplateActivation,
		Data:     map[string]string{"link": s.link("/auth/activate/" + code)},
	})

	return s.users.GetByID(ctx, user.ID, false)
}

// Activate redeems a single-use activation code.
func (s *AccountService) Activate(ctx context.Context, code string) (*domain.User, error) {
	if code == "" {
		return nil, ErrActivationCodeNotFound
	}

	user, err := s.users.GetByActivationCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivationCodeNotFound
		}
		return nil, fmt.Errorf("activate: %w", err)
	}

	if err := s.users.Activate(ctx, user.ID, code); err != nil {
		// Lost a race with a concurrent redemption
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActivationCodeNotFound
		}
		return nil, fmt.Errorf("activate: %w", err)
	}

	return s.users.GetByID(ctx, user.ID, false)
}

// Login verifies credentials, marks the session as open and issues a token.
func (s *AccountService) Login(ctx context.Context, input LoginInput) (*Token, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}

	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(input.Email), false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.State() != domain.StateActive {
		return nil, ErrAccountNotActivated
	}

	if err := s.users.SetSession(ctx, user.ID, true, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	s.events.Publish(domain.NewAccountEvent(domain.EventUserOnline, user, s.now()))
	return token, nil
}

// Logout closes the session of userID and invalidates the token it presented.
func (s *AccountService) Logout(ctx context.Context, userID uuid.UUID, rawToken string) error {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("logout: %w", err)
	}

	now := s.now()
	if err := s.users.SetSession(ctx, userID, false, &now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("logout: %w", err)
	}
	if err := s.tokens.Invalidate(ctx, rawToken); err != nil {
		return err
	}

	s.events.Publish(domain.NewAccountEvent(domain.EventUserOffline, user, now))
	return nil
}

// Refresh exchanges a token inside its refresh window for a new one. The
// account must still be active.
func (s *AccountService) Refresh(ctx context.Context, rawToken string) (*Token, error) {
	token, userID, err := s.tokens.Refresh(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID, false)
	if err == nil && user.State() == domain.StateActive {
		return token, nil
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if ierr := s.tokens.Invalidate(ctx, token.AccessToken); ierr != nil {
		return nil, ierr
	}
	return nil, ErrTokenInvalid
}

// GetProfile returns the authenticated user with roles.
func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's name, email and image reference.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	if err := input.Validate(); err != nil {
		return nil, invalid(err)
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := updateIdentity(ctx, s.users, user, input.Name, input.Email); err != nil {
		return nil, err
	}
	if input.ProfileImage != nil {
		image := strings.TrimSpace(*input.ProfileImage)
		user.ProfileImage = &image
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.users.GetByID(ctx, userID, false)
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	if err := input.Validate(); err != nil {
		return invalid(err)
	}
	if input.NewPassword == input.CurrentPassword {
		return ErrSamePassword
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("change password: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("change password: %w", err)
	}
	return nil
}

// RequestPasswordReset stores a fresh reset token for email, replacing any
// earlier one, and mails the reset link.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return fieldError("email", err.Error())
	}
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("request password reset: %w", err)
	}

	token, err := randomHex(resetTokenBytes)
	if err != nil {
		return err
	}
	reset := &domain.PasswordReset{
		Email:     user.Email,
		TokenHash: hashToken(token),
		CreatedAt: s.now(),
	}
	if err := s.resets.Replace(ctx, reset); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	dispatch(ctx, s.mailer, mail.Message{
		To:       user.Email,
		Name:     user.Name,
		Template: mail.TemplatePasswordReset,
		Data:     map[string]string{"link": s.link("/reset-password?token=" + token)},
	})
	return nil
}

// ResetPassword redeems a reset token and sets a new password.
func (s *AccountService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := input.Validate(); err != nil {
		return invalid(err)
	}

	tokenHash := hashToken(input.Token)
	reset, err := s.resets.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("reset password: %w", err)
	}
	if reset.Expired(s.now(), s.cfg.PasswordResetTTL) {
		if err := s.resets.DeleteByEmail(ctx, reset.Email); err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		return ErrResetTokenExpired
	}

	user, err := s.users.GetByEmail(ctx, reset.Email, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("reset password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("reset password: hash password: %w", err)
	}
	if err := s.resets.Redeem(ctx, tokenHash, user.ID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (s *AccountService) link(path string) string {
	return trimURL(s.cfg.AppURL) + path
}

// updateIdentity applies a new name and email to user, rejecting an address
// that belongs to another account.
func updateIdentity(ctx context.Context, users repository.UserRepository, user *domain.User, name, email string) error {
	email = domain.NormalizeEmail(email)
	if email != user.Email {
		existing, err := users.GetByEmail(ctx, email, true)
		if err == nil && existing.ID != user.ID {
			return ErrEmailTaken
		}
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check email: %w", err)
		}
	}
	user.Name = domain.NormalizeName(name)
	user.Email = email
	return nil
}
