package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")

	// ErrInvalidToken covers missing, unknown and expired tokens. It maps to
	// 401 at the HTTP boundary.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrPermissionDenied means the token was valid but the effective
	// permission set does not cover the operation. Maps to 403.
	ErrPermissionDenied = errors.New("auth: insufficient permissions")
)
