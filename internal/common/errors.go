package common

import "errors"

var (
	// request validation
	ErrInvalidInput = errors.New("invalid input")

	// credential store errors
	ErrInvalidCredentials = errors.New("invalid username/password")
	ErrDuplicateIdentity  = errors.New("username already taken")

	// identity and access control
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")

	// repository specific errors
	ErrNotFound = errors.New("not found")
)
