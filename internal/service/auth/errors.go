package auth

import "errors"

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAccountInactive    = errors.New("account is not active")
)
