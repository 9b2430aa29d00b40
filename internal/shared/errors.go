package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid occurs when a bearer token fails signature or lookup.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired occurs when a bearer token is past its TTL.
	ErrTokenExpired = errors.New("token expired")
)
