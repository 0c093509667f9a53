package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/repository"
	"github.com/dom/account-api/internal/repository/memory"
	"github.com/dom/account-api/internal/repository/postgres"
	"github.com/dom/account-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoFixture struct {
	repos      *repository.Repositories
	subscriber *domain.Role
	editor     *domain.Role
}

func newUserRepoFixture(t *testing.T) *userRepoFixture {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB, memory.NewTokenBlacklist())
	ctx := context.Background()

	subscriber := domain.NewRole("Subscriber", domain.Permissions{"subscriber-access": true})
	require.NoError(t, repos.Role.Create(ctx, subscriber))
	editor := domain.NewRole("Editor", domain.Permissions{"editor-access": true})
	require.NoError(t, repos.Role.Create(ctx, editor))

	return &userRepoFixture{repos: repos, subscriber: subscriber, editor: editor}
}

func newUser(email string, active bool) *domain.User {
	user := &domain.User{
		ID:               uuid.New(),
		Name:             "Test User",
		Email:            email,
		PasswordHash:     "hash",
		ActivationStatus: active,
		CreatedAt:        time.Now(),
	}
	if !active {
		code := uuid.NewString()
		user.ActivationCode = &code
	}
	return user
}

func TestUserRepository_Create(t *testing.T) {
	f := newUserRepoFixture(t)
	repo := f.repos.User
	ctx := context.Background()

	user := newUser("alice@example.com", true)
	require.NoError(t, repo.Create(ctx, user, f.subscriber.ID))

	got, err := repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "subscriber", got.Roles[0].Slug)
	assert.True(t, got.HasAccess("subscriber-access"))

	got, err = repo.GetByEmail(ctx, "alice@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	err = repo.Create(ctx, newUser("alice@example.com", true), f.subscriber.ID)
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	err = repo.Create(ctx, newUser("bob@example.com", true), uuid.New())
	assert.ErrorIs(t, err, repository.ErrRoleNotFound)
	_, err = repo.GetByEmail(ctx, "bob@example.com", true)
	assert.ErrorIs(t, err, repository.ErrNotFound, "user must not outlive a failed role attach")
}

func TestUserRepository_Activate(t *testing.T) {
	f := newUserRepoFixture(t)
	repo := f.repos.User
	ctx := context.Background()

	user := newUser("pending@example.com", false)
	require.NoError(t, repo.Create(ctx, user, f.subscriber.ID))

	got, err := repo.GetByActivationCode(ctx, *user.ActivationCode)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, repo.Activate(ctx, user.ID, *user.ActivationCode))

	got, err = repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, got.State())
	assert.Nil(t, got.ActivationCode)

	assert.ErrorIs(t, repo.Activate(ctx, user.ID, *user.ActivationCode), repository.ErrNotFound)
	_, err = repo.GetByActivationCode(ctx, *user.ActivationCode)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_SessionAndPassword(t *testing.T) {
	f := newUserRepoFixture(t)
	repo := f.repos.User
	ctx := context.Background()

	user := newUser("session@example.com", true)
	require.NoError(t, repo.Create(ctx, user, f.subscriber.ID))

	require.NoError(t, repo.SetSession(ctx, user.ID, true, nil))
	got, err := repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.True(t, got.IsLoggedIn)
	assert.Nil(t, got.LastSeen)

	seen := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetSession(ctx, user.ID, false, &seen))
	got, err = repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsLoggedIn)
	require.NotNil(t, got.LastSeen)
	assert.True(t, seen.Equal(*got.LastSeen))

	require.NoError(t, repo.UpdatePassword(ctx, user.ID, "new-hash"))
	got, err = repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	require.NoError(t, repo.ForceDelete(ctx, user.ID))
	assert.ErrorIs(t, repo.SetSession(ctx, user.ID, false, &seen), repository.ErrNotFound)
	assert.ErrorIs(t, repo.UpdatePassword(ctx, user.ID, "other-hash"), repository.ErrNotFound)
}

func TestUserRepository_Roles(t *testing.T) {
	f := newUserRepoFixture(t)
	repo := f.repos.User
	ctx := context.Background()

	user := newUser("roles@example.com", true)
	require.NoError(t, repo.Create(ctx, user, f.subscriber.ID))

	require.NoError(t, repo.AttachRole(ctx, user.ID, f.editor.ID))
	// Attaching twice is a no-op
	require.NoError(t, repo.AttachRole(ctx, user.ID, f.editor.ID))
	got, err := repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, got.Roles, 2)

	require.NoError(t, repo.ReplaceRoles(ctx, user.ID, f.subscriber.ID))
	got, err = repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, got.Roles, 1)
	assert.Equal(t, f.subscriber.ID, got.Roles[0].ID)

	assert.ErrorIs(t, repo.ReplaceRoles(ctx, user.ID, uuid.New()), repository.ErrRoleNotFound)
	assert.ErrorIs(t, repo.ReplaceRoles(ctx, uuid.New(), f.editor.ID), repository.ErrNotFound)

	// A failed replace leaves the previous assignment in place
	got, err = repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, got.Roles, 1)

	// Soft-deleted roles stop counting
	require.NoError(t, f.repos.Role.Delete(ctx, f.subscriber.ID))
	got, err = repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Empty(t, got.Roles)
}

func TestUserRepository_DeactivateReactivate(t *testing.T) {
	f := newUserRepoFixture(t)
	repo := f.repos.User
	ctx := context.Background()

	user := newUser("cycle@example.com", true)
	image := "avatars/cycle.png"
	user.ProfileImage = &image
	require.NoError(t, repo.Create(ctx, user, f.subscriber.ID))
	seen := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	require.NoError(t, repo.SetSession(ctx, user.ID, true, &seen))
	before, err := repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	require.NoError(t, f.repos.PasswordReset.Replace(ctx, &domain.PasswordReset{
		Email:     user.Email,
		TokenHash: "pending-reset",
		CreatedAt: time.Now(),
	}))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Deactivate(ctx, user.ID, at))

	_, err = repo.GetByID(ctx, user.ID, false)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetByID(ctx, user.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDeactivated, got.State())
	assert.False(t, got.IsLoggedIn)
	assert.True(t, at.Equal(got.DeletedAt.Time))

	_, err = f.repos.PasswordReset.GetByTokenHash(ctx, "pending-reset")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.Deactivate(ctx, user.ID, at), repository.ErrNotFound)

	require.NoError(t, repo.Reactivate(ctx, user.ID))
	got, err = repo.GetByID(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, got.State())
	assert.Len(t, got.Roles, 1)
	assert.Equal(t, before.Name, got.Name)
	assert.Equal(t, before.Email, got.Email)
	assert.Equal(t, before.PasswordHash, got.PasswordHash)
	require.NotNil(t, got.ProfileImage)
	assert.Equal(t, image, *got.ProfileImage)
	require.NotNil(t, got.LastSeen)
	assert.True(t, before.LastSeen.Equal(*got.LastSeen))
	assert.True(t, before.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.ActivationCode)

	assert.ErrorIs(t, repo.Reactivate(ctx, user.ID), repository.ErrNotFound)
}

func TestUserRepository_ForceDelete(t *testing.T) {
	f := newUserRepoFixture(t)
	repo := f.repos.User
	ctx := context.Background()

	user := newUser("gone@example.com", true)
	require.NoError(t, repo.Create(ctx, user, f.subscriber.ID))
	require.NoError(t, repo.Deactivate(ctx, user.ID, time.Now()))

	require.NoError(t, repo.ForceDelete(ctx, user.ID))

	_, err := repo.GetByID(ctx, user.ID, true)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.ForceDelete(ctx, user.ID), repository.ErrNotFound)

	// The address is free again
	require.NoError(t, repo.Create(ctx, newUser("gone@example.com", true), f.subscriber.ID))
}

func TestUserRepository_ListAndUpdate(t *testing.T) {
	f := newUserRepoFixture(t)
	repo := f.repos.User
	ctx := context.Background()

	first := newUser("first@example.com", true)
	require.NoError(t, repo.Create(ctx, first, f.subscriber.ID))
	second := newUser("second@example.com", true)
	require.NoError(t, repo.Create(ctx, second, f.subscriber.ID))
	require.NoError(t, repo.Deactivate(ctx, second.ID, time.Now()))

	users, total, err := repo.List(ctx, repository.ListOptions{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, users, 1)

	users, total, err = repo.List(ctx, repository.ListOptions{Page: 1, PerPage: 10, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, users, 2)

	image := "avatars/second.png"
	second.Name = "Renamed"
	second.ProfileImage = &image
	require.NoError(t, repo.Update(ctx, second))
	got, err := repo.GetByID(ctx, second.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.NotNil(t, got.ProfileImage)
	assert.Equal(t, image, *got.ProfileImage)

	second.Email = first.Email
	assert.ErrorIs(t, repo.Update(ctx, second), repository.ErrDuplicateEmail)
}
