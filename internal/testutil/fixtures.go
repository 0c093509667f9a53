package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/dom/account-api/internal/service"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	name     string
	email    string
	password string
	roleSlug string
	state    domain.AccountState
}

// NewUserBuilder creates a new UserBuilder for an active subscriber
func NewUserBuilder() *UserBuilder {
	suffix := uuid.New().String()[:8]
	return &UserBuilder{
		name:     "Test User " + suffix,
		email:    fmt.Sprintf("user_%s@example.com", suffix),
		password: "testpassword123",
		roleSlug: domain.RoleSubscriber,
		state:    domain.StateActive,
	}
}

// WithName sets the name
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithEmail sets the email
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithPassword sets the password
func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

// WithRole sets the slug of the role attached on creation
func (b *UserBuilder) WithRole(slug string) *UserBuilder {
	b.roleSlug = slug
	return b
}

// Admin attaches the administrator role
func (b *UserBuilder) Admin() *UserBuilder {
	return b.WithRole(domain.RoleAdministrator)
}

// Pending leaves the user unactivated
func (b *UserBuilder) Pending() *UserBuilder {
	b.state = domain.StatePending
	return b
}

// Deactivated soft-deletes the user after creation
func (b *UserBuilder) Deactivated() *UserBuilder {
	b.state = domain.StateDeactivated
	return b
}

// Build stores the user through repos and returns it with the raw password.
// The role named by WithRole must exist.
func (b *UserBuilder) Build(t *testing.T, repos *repository.Repositories) (*domain.User, string) {
	t.Helper()
	ctx := context.Background()

	role, err := repos.Role.GetBySlug(ctx, b.roleSlug)
	if err != nil {
		t.Fatalf("failed to find role %s: %v", b.roleSlug, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &domain.User{
		ID:               uuid.New(),
		Name:             b.name,
		Email:            domain.NormalizeEmail(b.email),
		PasswordHash:     string(hashedPassword),
		ActivationStatus: b.state != domain.StatePending,
		CreatedAt:        time.Now(),
	}
	if b.state == domain.StatePending {
		code := uuid.NewString() + uuid.NewString()[:24]
		user.ActivationCode = &code
	}

	if err := repos.User.Create(ctx, user, role.ID); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	if b.state == domain.StateDeactivated {
		if err := repos.User.Deactivate(ctx, user.ID, time.Now()); err != nil {
			t.Fatalf("failed to deactivate user: %v", err)
		}
	}

	stored, err := repos.User.GetByID(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("failed to reload user: %v", err)
	}
	return stored, b.password
}

// BuildAndAuthenticate creates the user and logs in via the API, returning the access token
func (b *UserBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (*domain.User, string) {
	t.Helper()

	user, password := b.Build(t, ts.Repos)
	return user, Login(t, ts, user.Email, password)
}

// Login authenticates through the API and returns the access token
func Login(t *testing.T, ts *TestServer, email, password string) string {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})

	resp, err := http.Post(ts.APIURL("/auth/login"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected login status code: %d", resp.StatusCode)
	}

	var env Envelope[service.Token]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env.Data.AccessToken
}

// AdminToken logs in as the seeded administrator
func AdminToken(t *testing.T, ts *TestServer) string {
	t.Helper()
	return Login(t, ts, ts.Config.AdminEmail, ts.Config.AdminPassword)
}

// CreateRole stores a role with the given permissions
func CreateRole(t *testing.T, repos *repository.Repositories, name string, permissions domain.Permissions) *domain.Role {
	t.Helper()

	role := domain.NewRole(name, permissions)
	if err := repos.Role.Create(context.Background(), role); err != nil {
		t.Fatalf("failed to create role: %v", err)
	}
	return role
}

// Envelope matches the API response envelope
type Envelope[T any] struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Data    T                    `json:"data"`
	Errors  []service.FieldError `json:"errors"`
}

// CreateAuthenticatedRequest creates an HTTP request with auth token
func CreateAuthenticatedRequest(t *testing.T, method, url string, body interface{}, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// Do sends an authenticated JSON request. The caller closes the body.
func Do(t *testing.T, method, url string, body interface{}, token string) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(CreateAuthenticatedRequest(t, method, url, body, token))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	return resp
}
