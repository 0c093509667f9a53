// Package repository declares the storage contracts shared by every backend.
// Backends translate driver errors into the sentinels below so callers never
// depend on gorm or redis error values.
package repository

import "errors"

// ErrNotFound is returned when no row matches, or a guarded update touched nothing.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when the email is held by another user,
// including a soft-deactivated one.
var ErrDuplicateEmail = errors.New("email already in use")

// ErrDuplicateSlug is returned when a role slug is taken.
var ErrDuplicateSlug = errors.New("role slug already in use")

// ErrRoleNotFound is returned when a role assignment names a missing role.
var ErrRoleNotFound = errors.New("role not found")
