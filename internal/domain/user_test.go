package domain_test

import (
	"testing"
	"time"

	"github.com/dom/account-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestUser_State(t *testing.T) {
	deleted := gorm.DeletedAt{Time: time.Now(), Valid: true}

	tests := []struct {
		name string
		user domain.User
		want domain.AccountState
	}{
		{"pending", domain.User{}, domain.StatePending},
		{"active", domain.User{ActivationStatus: true}, domain.StateActive},
		{"deactivated", domain.User{DeletedAt: deleted}, domain.StateDeactivated},
		{"deactivated wins over activation flag", domain.User{ActivationStatus: true, DeletedAt: deleted}, domain.StateDeactivated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.State())
		})
	}
}

func TestUser_HasAccess(t *testing.T) {
	user := domain.User{Roles: []domain.Role{*domain.NewRole("Administrator", domain.Permissions{"admin-access": true})}}

	assert.True(t, user.HasAccess(domain.PermissionAdmin))
	assert.False(t, user.HasAccess("subscriber-access"))
	assert.False(t, (&domain.User{}).HasAccess(domain.PermissionAdmin))
	assert.Nil(t, (&domain.User{}).PrimaryRole())
	assert.Equal(t, "administrator", user.PrimaryRole().Slug)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "Alice Smith", domain.NormalizeName("alice smith"))
	assert.Equal(t, "McDonald", domain.NormalizeName("McDonald"))
	assert.Equal(t, "Bob", domain.NormalizeName("  bob "))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", domain.NormalizeEmail("  A@X.com "))
}

func TestPasswordReset_Expired(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	reset := domain.PasswordReset{CreatedAt: created}

	assert.False(t, reset.Expired(created.Add(59*time.Minute), time.Hour))
	assert.True(t, reset.Expired(created.Add(61*time.Minute), time.Hour))
	assert.False(t, reset.Expired(created.Add(1000*time.Hour), 0))
}
