package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked due to too many failed login attempts")
	ErrResetTokenInvalid  = errors.New("invalid or expired reset token")
	ErrInvalidToken       = errors.New("invalid token")
)

// Client record errors. Ownership mismatch and a missing row are deliberately
// the same error so callers cannot probe other tenants' record ids.
var (
	ErrClientNotFound      = errors.New("client not found")
	ErrClientAlreadyExists = errors.New("client with this email already exists")
)
