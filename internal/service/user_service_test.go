package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/mail"
	"github.com/dom/account-api/internal/repository"
	"github.com/dom/account-api/internal/service"
	"github.com/dom/account-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type userFixture struct {
	cfg    *config.Config
	repos  *repository.Repositories
	users  *service.UserService
	mail   *testutil.MailRecorder
	events *testutil.EventRecorder
	clock  *clock
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	cfg := testutil.TestConfig()
	repos := testutil.NewMemoryRepositories(t, cfg)
	clk := newClock()
	recorder := testutil.NewMailRecorder()
	events := &testutil.EventRecorder{}

	return &userFixture{
		cfg:    cfg,
		repos:  repos,
		users:  service.NewUserService(repos, recorder, events, cfg).WithClock(clk.Now),
		mail:   recorder,
		events: events,
		clock:  clk,
	}
}

func roleSlugs(user *domain.User) []string {
	slugs := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		slugs = append(slugs, r.Slug)
	}
	return slugs
}

func TestUserService_Create(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	subscriber, err := f.repos.Role.GetBySlug(ctx, domain.RoleSubscriber)
	require.NoError(t, err)

	user, err := f.users.Create(ctx, service.CreateUserInput{
		Name:   "bob builder",
		Email:  "Bob@Example.com",
		RoleID: subscriber.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob Builder", user.Name)
	assert.Equal(t, "bob@example.com", user.Email)
	assert.Equal(t, domain.StateActive, user.State())
	assert.Equal(t, []string{domain.RoleSubscriber}, roleSlugs(user))

	msg, ok := f.mail.Last(user.Email, mail.TemplateCredentials)
	require.True(t, ok)
	password := msg.Data["password"]
	assert.Len(t, password, 10)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)))
}

func TestUserService_CreateErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   func(f *userFixture) service.CreateUserInput
		wantErr error
	}{
		{
			name: "unknown role",
			input: func(*userFixture) service.CreateUserInput {
				return service.CreateUserInput{Name: "Bob", Email: "bob@example.com", RoleID: uuid.NewString()}
			},
			wantErr: service.ErrRoleNotFound,
		},
		{
			name: "role id is not a uuid",
			input: func(*userFixture) service.CreateUserInput {
				return service.CreateUserInput{Name: "Bob", Email: "bob@example.com", RoleID: "admin"}
			},
			wantErr: service.ErrValidation,
		},
		{
			name: "email taken",
			input: func(f *userFixture) service.CreateUserInput {
				role, _ := f.repos.Role.GetBySlug(ctx, domain.RoleSubscriber)
				return service.CreateUserInput{Name: "Bob", Email: f.cfg.AdminEmail, RoleID: role.ID.String()}
			},
			wantErr: service.ErrDuplicateEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)

			_, err := f.users.Create(ctx, tt.input(f))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.mail.Messages())
		})
	}
}

func TestUserService_ListIncludesDeactivated(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	testutil.NewUserBuilder().Build(t, f.repos)
	testutil.NewUserBuilder().Deactivated().Build(t, f.repos)

	page, err := f.users.List(ctx, 0, 0)
	require.NoError(t, err)
	// seeded administrator plus two
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)

	page, err = f.users.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)

	page, err = f.users.List(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, 100, page.PerPage)
}

func TestUserService_Get(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	deactivated, _ := testutil.NewUserBuilder().Deactivated().Build(t, f.repos)

	user, err := f.users.Get(ctx, deactivated.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDeactivated, user.State())

	_, err = f.users.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_Update(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, f.repos)

	updated, err := f.users.Update(ctx, user.ID, service.UpdateUserInput{Name: "carol", Email: "carol@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Carol", updated.Name)
	assert.Equal(t, "carol@example.com", updated.Email)

	// Keeping one's own address is not a conflict
	_, err = f.users.Update(ctx, user.ID, service.UpdateUserInput{Name: "Carol B", Email: "carol@example.com"})
	assert.NoError(t, err)

	_, err = f.users.Update(ctx, user.ID, service.UpdateUserInput{Name: "Carol", Email: f.cfg.AdminEmail})
	assert.ErrorIs(t, err, service.ErrEmailTaken)

	_, err = f.users.Update(ctx, uuid.New(), service.UpdateUserInput{Name: "Carol", Email: "c@example.com"})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_UpdateRoleReplaces(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, f.repos)
	editor := testutil.CreateRole(t, f.repos, "Editor", domain.Permissions{"editor-access": true})
	reviewer := testutil.CreateRole(t, f.repos, "Reviewer", domain.Permissions{"reviewer-access": true})

	updated, err := f.users.UpdateRole(ctx, user.ID, editor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor"}, roleSlugs(updated))

	updated, err = f.users.UpdateRole(ctx, user.ID, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"reviewer"}, roleSlugs(updated))
	assert.False(t, updated.HasAccess("editor-access"))
	assert.True(t, updated.HasAccess("reviewer-access"))

	_, err = f.users.UpdateRole(ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, service.ErrRoleNotFound)

	_, err = f.users.UpdateRole(ctx, uuid.New(), reviewer.ID)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestUserService_UpdateRoleAttachesWithoutSingleRolePolicy(t *testing.T) {
	f := newUserFixture(t)
	f.cfg.SingleRolePolicy = false
	ctx := context.Background()

	user, _ := testutil.NewUserBuilder().Build(t, f.repos)
	editor := testutil.CreateRole(t, f.repos, "Editor", domain.Permissions{"editor-access": true})

	updated, err := f.users.UpdateRole(ctx, user.ID, editor.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{domain.RoleSubscriber, "editor"}, roleSlugs(updated))
}

func TestUserService_DeactivateReactivate(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	built, _ := testutil.NewUserBuilder().Build(t, f.repos)
	image := "avatars/alice.png"
	built.ProfileImage = &image
	require.NoError(t, f.repos.User.Update(ctx, built))
	seen := f.clock.Now().Add(-time.Hour)
	require.NoError(t, f.repos.User.SetSession(ctx, built.ID, false, &seen))

	user, err := f.repos.User.GetByID(ctx, built.ID, false)
	require.NoError(t, err)

	deactivated, err := f.users.Deactivate(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDeactivated, deactivated.State())
	assert.True(t, deactivated.DeletedAt.Time.Equal(f.clock.Now()))

	_, err = f.repos.User.GetByID(ctx, user.ID, false)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.users.Deactivate(ctx, user.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	f.clock.Advance(time.Hour)
	reactivated, err := f.users.Reactivate(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, reactivated.State())
	assert.Equal(t, user.Name, reactivated.Name)
	assert.Equal(t, user.Email, reactivated.Email)
	assert.Equal(t, user.PasswordHash, reactivated.PasswordHash)
	assert.Equal(t, roleSlugs(user), roleSlugs(reactivated))
	require.NotNil(t, reactivated.ProfileImage)
	assert.Equal(t, image, *reactivated.ProfileImage)
	require.NotNil(t, reactivated.LastSeen)
	assert.True(t, seen.Equal(*reactivated.LastSeen))
	assert.True(t, user.CreatedAt.Equal(reactivated.CreatedAt))
	assert.Equal(t, user.ActivationCode, reactivated.ActivationCode)
	assert.Nil(t, reactivated.ActivationCode)
	assert.False(t, reactivated.DeletedAt.Valid)

	_, err = f.users.Reactivate(ctx, user.ID)
	assert.ErrorIs(t, err, service.ErrConflict)

	assert.Equal(t, []domain.AccountEventType{domain.EventUserDeactivated, domain.EventUserReactivated}, f.events.Types())
}

func TestUserService_DeactivatePendingIsRejected(t *testing.T) {
	f := newUserFixture(t)

	user, _ := testutil.NewUserBuilder().Pending().Build(t, f.repos)

	_, err := f.users.Deactivate(context.Background(), user.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)
	assert.Empty(t, f.events.Types())
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		build   func(b *testutil.UserBuilder) *testutil.UserBuilder
		wantErr error
	}{
		{name: "active", build: func(b *testutil.UserBuilder) *testutil.UserBuilder { return b }},
		{name: "deactivated", build: func(b *testutil.UserBuilder) *testutil.UserBuilder { return b.Deactivated() }},
		{name: "pending", build: func(b *testutil.UserBuilder) *testutil.UserBuilder { return b.Pending() }, wantErr: service.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newUserFixture(t)
			user, _ := tt.build(testutil.NewUserBuilder()).Build(t, f.repos)

			err := f.users.Delete(ctx, user.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			_, err = f.repos.User.GetByID(ctx, user.ID, true)
			assert.ErrorIs(t, err, repository.ErrNotFound)
			assert.ErrorIs(t, f.users.Delete(ctx, user.ID), service.ErrUserNotFound)
			assert.Equal(t, []domain.AccountEventType{domain.EventUserDeleted}, f.events.Types())
		})
	}
}
