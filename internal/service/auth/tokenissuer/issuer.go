package tokenissuer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vsokolov/taskward/internal/apperrors"
	"github.com/vsokolov/taskward/internal/models"
)

const (
	defaultSigningMethod = "HS256"
	defaultAccessTTL     = 15 * time.Minute
	defaultRefreshTTL    = 7 * 24 * time.Hour
)

type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

// Issuer config with sensible defaults
// Secrets are required and must differ: tokens of one class must never
// verify under the other class secret
type Config struct {
	AccessSecret  string
	RefreshSecret string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set the default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set the defaults are used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// signing context: one secret, one lifetime
type signer struct {
	key []byte
	ttl time.Duration
}

// Issuer signs and verifies two independent classes of bearer tokens
// It's stateless: all configuration is fixed at construction time
type Issuer struct {
	alg     jwt.SigningMethod
	access  signer
	refresh signer
}

func New(cfg Config) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets must not be empty")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTTL)

	return &Issuer{
		alg:     jwt.GetSigningMethod(cfg.Alg),
		access:  signer{key: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
		refresh: signer{key: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
	}, nil
}

func (i *Issuer) SignAccess(userID uuid.UUID) (models.IssuedToken, error) {
	return i.sign(i.access, userID)
}

func (i *Issuer) SignRefresh(userID uuid.UUID) (models.IssuedToken, error) {
	return i.sign(i.refresh, userID)
}

// VerifyAccess checks the token against the access secret
// Returns apperrors.ErrTokenExpired if the signature is fine but the
// token lifetime is over, apperrors.ErrTokenInvalid on everything else
func (i *Issuer) VerifyAccess(token string) (uuid.UUID, error) {
	return i.verify(i.access, token)
}

func (i *Issuer) VerifyRefresh(token string) (uuid.UUID, error) {
	return i.verify(i.refresh, token)
}

func (i *Issuer) sign(s signer, userID uuid.UUID) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(
		i.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: userID,
		},
	)

	value, err := token.SignedString(s.key)
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing token. Err: %w", err)
	}

	return models.IssuedToken{Value: value, ExpiresAt: expiresAt}, nil
}

func (i *Issuer) verify(s signer, token string) (uuid.UUID, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{i.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil && claims.UserID != uuid.Nil:
		return claims.UserID, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return uuid.Nil, apperrors.ErrTokenExpired
	default:
		return uuid.Nil, apperrors.ErrTokenInvalid
	}
}
