package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Permissions maps a permission name to whether it is granted.
type Permissions map[string]bool

// Seeded role slugs.
const (
	RoleAdministrator = "administrator"
	RoleSubscriber    = "subscriber"
)

// PermissionAdmin guards every administrative endpoint.
const PermissionAdmin = "admin-access"

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

type Role struct {
	ID          uuid.UUID                       `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string                          `json:"name" gorm:"size:255;not null"`
	Slug        string                          `json:"slug" gorm:"size:255;uniqueIndex;not null"`
	Permissions datatypes.JSONType[Permissions] `json:"permissions"`
	CreatedAt   time.Time                       `json:"createdAt"`
	UpdatedAt   time.Time                       `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt                  `json:"-" gorm:"index"`
}

// NewRole builds a role with a slug derived from name.
func NewRole(name string, permissions Permissions) *Role {
	return &Role{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Slug:        Slugify(name),
		Permissions: datatypes.NewJSONType(permissions),
	}
}

// Validate checks the name and the derived slug.
func (r *Role) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrRoleNameRequired
	}
	if !slugPattern.MatchString(r.Slug) {
		return ErrInvalidSlug
	}
	return nil
}

// HasAccess reports whether the role grants permission. Unknown keys deny.
func (r Role) HasAccess(permission string) bool {
	return r.Permissions.Data()[permission]
}

// PermissionMap returns a copy of the role's permission flags.
func (r Role) PermissionMap() Permissions {
	out := make(Permissions, len(r.Permissions.Data()))
	for k, v := range r.Permissions.Data() {
		out[k] = v
	}
	return out
}

// HasAccess reports whether any of roles grants permission.
func HasAccess(roles []Role, permission string) bool {
	for _, role := range roles {
		if role.HasAccess(permission) {
			return true
		}
	}
	return false
}

// PermissionFor returns the permission name guarded by a role slug.
func PermissionFor(slug string) string {
	return slug + "-access"
}

// Slugify lowercases name and joins its words with underscores.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
