package service_test

import (
	"context"
	"testing"

	"github.com/dom/account-api/internal/domain"
	"github.com/dom/account-api/internal/service"
	"github.com/dom/account-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessService(t *testing.T) {
	ctx := context.Background()
	repos := testutil.NewMemoryRepositories(t, testutil.TestConfig())
	access := service.NewAccessService(repos.User)

	admin, _ := testutil.NewUserBuilder().Admin().Build(t, repos)
	subscriber, _ := testutil.NewUserBuilder().Build(t, repos)
	gone, _ := testutil.NewUserBuilder().Deactivated().Build(t, repos)

	tests := []struct {
		name       string
		userID     uuid.UUID
		permission string
		want       bool
		wantErr    error
	}{
		{name: "admin has admin access", userID: admin.ID, permission: domain.PermissionAdmin, want: true},
		{name: "subscriber lacks admin access", userID: subscriber.ID, permission: domain.PermissionAdmin, want: false},
		{name: "subscriber has own access", userID: subscriber.ID, permission: "subscriber-access", want: true},
		{name: "unknown permission", userID: admin.ID, permission: "launch-missiles", want: false},
		{name: "deactivated user", userID: gone.ID, permission: "subscriber-access", wantErr: service.ErrUnauthorized},
		{name: "unknown user", userID: uuid.New(), permission: domain.PermissionAdmin, wantErr: service.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := access.HasAccess(ctx, tt.userID, tt.permission)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)

			err = access.Authorize(ctx, tt.userID, tt.permission)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, service.ErrPermissionDenied)
				assert.ErrorIs(t, err, service.ErrForbidden)
			}
		})
	}
}
