package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/vsokolov/taskward/internal/apperrors"
	"github.com/vsokolov/taskward/internal/repository/postgres"
	"github.com/vsokolov/taskward/internal/service/auth/tokenissuer"
	"github.com/vsokolov/taskward/internal/testutil"
)

func Test_AuthService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin a db transaction and create a fresh AuthService in it
	// The transaction is rolled back when the test stops
	withTx := func(dbpool *pgxpool.Pool, t *testing.T, fn func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			issuer, err := tokenissuer.New(tokenissuer.Config{
				AccessSecret:  "test-access-secret",
				RefreshSecret: "test-refresh-secret",
				AccessTTL:     15 * time.Minute,
				RefreshTTL:    24 * time.Hour,
			})
			require.NoError(t, err, "issuer should be created without errors")

			s, err := NewService(Config{Hasher: BcryptHasher{Cost: 4}}, issuer, postgres.NewStorage(tx))
			require.NoError(t, err, "auth service couldn't be started")

			fn(s, issuer, tx)
		})
	}

	t.Run("new service defaults", func(t *testing.T) {
		issuer, err := tokenissuer.New(tokenissuer.Config{AccessSecret: "a", RefreshSecret: "r"})
		require.NoError(t, err)

		s, err := NewService(Config{}, issuer, postgres.NewStorage(pg.Pool))
		require.NoError(t, err)
		require.Equal(t, BcryptHasher{}, s.hasher, "default hasher should be bcrypt")

		_, err = NewService(Config{}, nil, nil)
		require.Error(t, err, "issuer and storage are required")
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")

				require.NoError(t, err)
				require.Equal(t, "a@x.com", session.User.Email)
				require.Equal(t, "Alice", session.User.Name)
				require.NotEmpty(t, session.Tokens.Access.Value)
				require.NotEmpty(t, session.Tokens.Refresh.Value)

				// Access token should verify back to the new user
				userID, err := issuer.VerifyAccess(session.Tokens.Access.Value)
				require.NoError(t, err)
				require.Equal(t, session.User.ID, userID)
			})
		})

		t.Run("password is never stored as plaintext", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "dup@x.com", "pw1", "A")
				require.NoError(t, err)

				require.NotEqual(t, "pw1", session.User.HashedPassword)
				require.True(t, strings.HasPrefix(session.User.HashedPassword, "$2"), "should look like a bcrypt hash")
			})
		})

		t.Run("fail if email taken", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				_, err := s.Register(t.Context(), "dup@x.com", "pw1", "A")
				require.NoError(t, err)

				_, err = s.Register(t.Context(), "dup@x.com", "pw2", "B")

				require.Error(t, err)
				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			})
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("existing user ok", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				registered, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				session, err := s.Login(t.Context(), "a@x.com", "secret-pwd")

				require.NoError(t, err)
				require.Equal(t, registered.User.ID, session.User.ID)
				require.NotEmpty(t, session.Tokens.Access.Value)
				require.NotEmpty(t, session.Tokens.Refresh.Value)
			})
		})

		t.Run("old sessions survive a new login", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				first, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				_, err = s.Login(t.Context(), "a@x.com", "secret-pwd")
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), first.Tokens.Refresh.Value)
				require.NoError(t, err, "concurrent sessions are allowed, the old refresh token stays valid")
			})
		})

		tests := []struct {
			name     string
			email    string
			password string
		}{
			{
				name:     "wrong password",
				email:    "a@x.com",
				password: "wrong",
			},
			{
				name:     "unknown email",
				email:    "nobody@x.com",
				password: "secret-pwd",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
					_, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
					require.NoError(t, err)

					_, err = s.Login(t.Context(), tt.email, tt.password)

					// Same error for both cases, no account enumeration signal
					require.Error(t, err)
					require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
				})
			})
		}
	})

	t.Run("Refresh", func(t *testing.T) {
		t.Run("returns a fresh access token for the same user", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				access, err := s.Refresh(t.Context(), session.Tokens.Refresh.Value)

				require.NoError(t, err)
				require.NotEmpty(t, access.Value)

				userID, err := issuer.VerifyAccess(access.Value)
				require.NoError(t, err)
				require.Equal(t, session.User.ID, userID)
			})
		})

		t.Run("token is not rotated", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), session.Tokens.Refresh.Value)
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), session.Tokens.Refresh.Value)
				require.NoError(t, err, "the same refresh token should serve any number of renewals")
			})
		})

		t.Run("tampered token is invalid", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				tampered := session.Tokens.Refresh.Value + "xx"
				_, err = s.Refresh(t.Context(), tampered)

				require.ErrorIs(t, err, apperrors.ErrTokenInvalid)
			})
		})

		t.Run("well-signed but never persisted token", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				stray, err := issuer.SignRefresh(uuid.New())
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), stray.Value)

				require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound,
					"a valid signature alone must not mint access tokens")
			})
		})

		t.Run("expired record is removed lazily", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				// Age the persisted record; the token signature stays valid
				_, err = tx.Exec(t.Context(),
					"UPDATE refresh_tokens SET expires_at = now() - interval '1 hour' WHERE token = $1",
					session.Tokens.Refresh.Value,
				)
				require.NoError(t, err)

				_, err = s.Refresh(t.Context(), session.Tokens.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrTokenExpired)

				// The first touch deleted the record
				_, err = s.Refresh(t.Context(), session.Tokens.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
			})
		})
	})

	t.Run("Logout", func(t *testing.T) {
		t.Run("ends the session", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				require.NoError(t, s.Logout(t.Context(), session.Tokens.Refresh.Value))

				_, err = s.Refresh(t.Context(), session.Tokens.Refresh.Value)
				require.ErrorIs(t, err, apperrors.ErrRefreshTokenNotFound)
			})
		})

		t.Run("idempotent whatever the token is", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *AuthService, issuer *tokenissuer.Issuer, tx pgx.Tx) {
				session, err := s.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
				require.NoError(t, err)

				require.NoError(t, s.Logout(t.Context(), session.Tokens.Refresh.Value))
				require.NoError(t, s.Logout(t.Context(), session.Tokens.Refresh.Value))
				require.NoError(t, s.Logout(t.Context(), "never-issued-token"))
			})
		})
	})
}
