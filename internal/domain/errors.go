package domain

import "errors"

var (
	ErrRoleNameRequired = errors.New("role name is required")
	ErrInvalidSlug      = errors.New("role slug must contain letters or digits")
)
