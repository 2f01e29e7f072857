package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token is malformed or its signature doesn't verify against the expected secret
	ErrTokenInvalid = errors.New("token is invalid")

	// Signature is fine but the token lifetime is over,
	// or the persisted refresh record outlived its expires_at
	ErrTokenExpired = errors.New("token is expired")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	ErrTaskNotFound = errors.New("task not found")
)
