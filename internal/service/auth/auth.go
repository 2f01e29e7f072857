package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vsokolov/taskward/internal/apperrors"
	"github.com/vsokolov/taskward/internal/models"
	"github.com/vsokolov/taskward/internal/repository"
)

// Interface to create or compare user password hashes
type PasswordHasher interface {
	// Generate hash from password
	Hash(password string) (string, error)

	// Compare known hashedPassword and user provided password
	// Must be protected against timing attacks
	Compare(hashedPassword string, password string) error
}

// Interface to issue and verify signed tokens
// Implemented by tokenissuer.Issuer
type TokenIssuer interface {
	SignAccess(userID uuid.UUID) (models.IssuedToken, error)
	SignRefresh(userID uuid.UUID) (models.IssuedToken, error)

	// Must return apperrors.ErrTokenInvalid or apperrors.ErrTokenExpired
	VerifyRefresh(token string) (uuid.UUID, error)
}

type Config struct {
	// Hasher to use during registration and login
	// BcryptHasher with default cost is used if not set
	Hasher PasswordHasher
}

// Result of register or login: the authenticated user and a fresh token pair
type Session struct {
	User   models.User
	Tokens models.TokenPair
}

type AuthService struct {
	issuer  TokenIssuer
	hasher  PasswordHasher
	storage repository.Storage
}

func NewService(cfg Config, issuer TokenIssuer, storage repository.Storage) (*AuthService, error) {
	if issuer == nil || storage == nil {
		return nil, errors.New("issuer and storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = BcryptHasher{}
	}

	return &AuthService{
		issuer:  issuer,
		hasher:  hasher,
		storage: storage,
	}, nil
}

// Register creates a user and starts its first session
// The email check here is advisory: the users table unique constraint is
// the real guard, so a concurrent duplicate still fails with
// apperrors.ErrUserAlreadyExists
func (s *AuthService) Register(ctx context.Context, email string, password string, name string) (Session, error) {
	_, err := s.storage.User().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return Session{}, apperrors.ErrUserAlreadyExists
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return Session{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Session{}, fmt.Errorf("can't use this as password, error=%w", err)
	}

	// Create the user and persist its refresh record atomically
	var session Session
	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		user, err := storage.User().CreateUser(ctx, email, name, hash)
		if err != nil {
			return err
		}

		pair, err := s.issuePair(ctx, storage, user.ID)
		if err != nil {
			return err
		}

		session = Session{User: user, Tokens: pair}
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	return session, nil
}

// Login verifies credentials and starts a new session
// Both unknown email and wrong password collapse into
// apperrors.ErrInvalidCredentials so the response gives no hint whether
// the account exists. Earlier sessions of the user stay alive.
func (s *AuthService) Login(ctx context.Context, email string, password string) (Session, error) {
	user, err := s.storage.User().GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return Session{}, apperrors.ErrInvalidCredentials
	case err != nil:
		return Session{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return Session{}, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, s.storage, user.ID)
	if err != nil {
		return Session{}, err
	}

	return Session{User: user, Tokens: pair}, nil
}

// Refresh exchanges a live refresh token for a new access token
// The refresh token itself is not rotated: it stays valid until its own
// expiry or an explicit logout. Expired records are removed lazily on
// the first touch, there is no background sweeper.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (models.IssuedToken, error) {
	if _, err := s.issuer.VerifyRefresh(refresh); err != nil {
		return models.IssuedToken{}, err
	}

	record, err := s.storage.Refresh().Get(ctx, refresh)
	if err != nil {
		return models.IssuedToken{}, err
	}

	if time.Now().After(record.ExpiresAt) {
		if err := s.storage.Refresh().Delete(ctx, refresh); err != nil {
			return models.IssuedToken{}, err
		}
		return models.IssuedToken{}, apperrors.ErrTokenExpired
	}

	access, err := s.issuer.SignAccess(record.UserID)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	return access, nil
}

// Logout ends the session identified by the refresh token
// No ownership check: the token string itself is the credential, and
// deleting an unknown token succeeds the same way
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	return s.storage.Refresh().Delete(ctx, refresh)
}

func (s *AuthService) issuePair(ctx context.Context, storage repository.Storage, userID uuid.UUID) (models.TokenPair, error) {
	access, err := s.issuer.SignAccess(userID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	refresh, err := s.issuer.SignRefresh(userID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("token could not be generated, sorry. %w", err)
	}

	err = storage.Refresh().Save(ctx, models.RefreshToken{
		Token:     refresh.Value,
		UserID:    userID,
		CreatedAt: time.Now().Truncate(time.Second),
		ExpiresAt: refresh.ExpiresAt,
	})
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("error while saving refresh token. Err: %w", err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}
