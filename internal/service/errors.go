package service

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Error kinds. Every error returned by a service matches exactly one of these
// through errors.Is.
var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
)

var kinds = []error{
	ErrValidation,
	ErrUnauthorized,
	ErrForbidden,
	ErrNotFound,
	ErrDuplicateEmail,
	ErrConflict,
}

// Error is a specific failure classified under a kind.
type Error struct {
	kind    error
	message string
}

func newError(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.kind }

var (
	ErrInvalidCredentials     = newError(ErrUnauthorized, "invalid email or password")
	ErrAccountNotActivated    = newError(ErrUnauthorized, "account has not been activated")
	ErrTokenMissing           = newError(ErrUnauthorized, "Authorization Token not found")
	ErrTokenInvalid           = newError(ErrUnauthorized, "Token is Invalid")
	ErrTokenExpired           = newError(ErrUnauthorized, "Token is Expired")
	ErrTokenBlacklisted       = newError(ErrUnauthorized, "Token has been invalidated")
	ErrPermissionDenied       = newError(ErrForbidden, "Forbidden. You do not have permission to perform this action")
	ErrUserNotFound           = newError(ErrNotFound, "user not found")
	ErrRoleNotFound           = newError(ErrNotFound, "role not found")
	ErrEmailNotFound          = newError(ErrNotFound, "we can't find a user with that email address")
	ErrActivationCodeNotFound = newError(ErrNotFound, "activation code is invalid or has already been used")
	ErrResetTokenNotFound     = newError(ErrNotFound, "password reset token is invalid")
	ErrResetTokenExpired      = newError(ErrNotFound, "password reset token has expired")
	ErrEmailTaken             = newError(ErrDuplicateEmail, "the email has already been taken")
	ErrSamePassword           = newError(ErrConflict, "new password must be different from the current password")
	ErrInvalidTransition      = newError(ErrConflict, "operation not allowed in the account's current state")
	ErrRoleSlugTaken          = newError(ErrConflict, "a role with this slug already exists")
	ErrWrongPassword          = newError(ErrValidation, "The old password you entered is incorrect")
)

// KindOf returns the kind err belongs to, or ErrInternal for anything unclassified.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// FieldError is one failed input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

// ValidationError reports malformed input field by field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// invalid converts ozzo-validation output into a ValidationError. Errors
// that are not field errors pass through unchanged.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}

	fields := make([]FieldError, 0, len(errs))
	for field, ferr := range errs {
		fields = append(fields, FieldError{Field: field, Message: ferr.Error()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ValidationError{Fields: fields}
}

func fieldError(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
