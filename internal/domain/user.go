package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// AccountState is derived from the activation flag and the deletion marker.
type AccountState string

const (
	StatePending     AccountState = "pending"
	StateActive      AccountState = "active"
	StateDeactivated AccountState = "deactivated"
)

type User struct {
	ID               uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	Name             string         `json:"name" gorm:"size:255;not null"`
	Email            string         `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash     string         `json:"-" gorm:"not null"`
	ProfileImage     *string        `json:"profileImage"`
	ActivationCode   *string        `json:"-" gorm:"size:64;uniqueIndex"`
	ActivationStatus bool           `json:"activationStatus" gorm:"not null;default:false"`
	IsLoggedIn       bool           `json:"isLoggedIn" gorm:"not null;default:false"`
	LastSeen         *time.Time     `json:"lastSeen"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Roles []Role `json:"roles,omitempty" gorm:"many2many:role_user"`
}

// State reports where the user sits in the account lifecycle.
func (u *User) State() AccountState {
	switch {
	case u.DeletedAt.Valid:
		return StateDeactivated
	case !u.ActivationStatus:
		return StatePending
	default:
		return StateActive
	}
}

// HasAccess evaluates permission against the user's assigned roles.
func (u *User) HasAccess(permission string) bool {
	return HasAccess(u.Roles, permission)
}

// PrimaryRole returns the first assigned role, or nil.
func (u *User) PrimaryRole() *Role {
	if len(u.Roles) == 0 {
		return nil
	}
	return &u.Roles[0]
}

// UserRole is the role_user join row.
type UserRole struct {
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	RoleID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time
}

func (UserRole) TableName() string {
	return "role_user"
}

// PasswordReset holds the hash of a single-use reset token, one per email.
type PasswordReset struct {
	Email     string    `gorm:"size:255;primaryKey"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Expired reports whether the record is older than ttl. A zero ttl never expires.
func (p *PasswordReset) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.After(p.CreatedAt.Add(ttl))
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName capitalises the first letter of every word.
func NormalizeName(name string) string {
	return cases.Title(language.Und, cases.NoLower).String(strings.TrimSpace(name))
}
