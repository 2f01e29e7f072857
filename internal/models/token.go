package models

import (
	"time"

	"github.com/google/uuid"
)

// Persisted refresh token record
// Its presence in the store is the only authority that allows the token
// to mint new access tokens, regardless of the token signature lifetime
type RefreshToken struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// Pair of tokens returned on register or login
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}
