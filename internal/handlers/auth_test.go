package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/vsokolov/taskward/internal/logger"
	"github.com/vsokolov/taskward/internal/repository/postgres"
	"github.com/vsokolov/taskward/internal/service/auth"
	"github.com/vsokolov/taskward/internal/service/auth/tokenissuer"
	"github.com/vsokolov/taskward/internal/testutil"
)

func Test_AuthHandler(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Run an http server with the production auth service attached
	withServer := func(dbpool *pgxpool.Pool, t *testing.T, fn func(url string, authService *auth.AuthService)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			issuer, err := tokenissuer.New(tokenissuer.Config{
				AccessSecret:  "test-access-secret",
				RefreshSecret: "test-refresh-secret",
				AccessTTL:     15 * time.Minute,
				RefreshTTL:    24 * time.Hour,
			})
			require.NoError(t, err)

			authService, err := auth.NewService(auth.Config{Hasher: auth.BcryptHasher{Cost: 4}}, issuer, postgres.NewStorage(tx))
			require.NoError(t, err)

			h := NewAuth(authService, logger.NewNop())
			srv := httptest.NewServer(h.Handler())
			defer srv.Close()

			fn(srv.URL, authService)
		})
	}

	post := func(t *testing.T, url string, body string) (*http.Response, string) {
		t.Helper()

		resp, err := http.Post(url, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		respBody, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		return resp, string(respBody)
	}

	t.Run("register ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			resp, body := post(t, url+"/register", `{"email": "a@x.com", "password": "secret-pwd", "name": "Alice"}`)

			require.Equalf(t, http.StatusCreated, resp.StatusCode, "not expected code. Body: %s", body)

			var got SessionResponse
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			require.Equal(t, "a@x.com", got.User.Email)
			require.Equal(t, "Alice", got.User.Name)
			require.NotEmpty(t, got.AccessToken)
			require.NotEmpty(t, got.RefreshToken)

			require.NotContains(t, body, "password", "no password material should leak into the response")
			require.NotContains(t, body, "$2", "no bcrypt hash should leak into the response")
		})
	})

	t.Run("register duplicate email", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			_, err := authService.Register(t.Context(), "dup@x.com", "pw1", "A")
			require.NoError(t, err)

			resp, body := post(t, url+"/register", `{"email": "dup@x.com", "password": "pw2-longer", "name": "B"}`)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "User already exists with this email"
				}`, body)
		})
	})

	t.Run("register validation", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			resp, body := post(t, url+"/register", `{"email": "not-an-email", "password": "short", "name": ""}`)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, "validation_failed")
			require.Contains(t, body, "email")
			require.Contains(t, body, "password")
			require.Contains(t, body, "name")
		})
	})

	t.Run("login ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			_, err := authService.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
			require.NoError(t, err)

			resp, body := post(t, url+"/login", `{"email": "a@x.com", "password": "secret-pwd"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

			var got SessionResponse
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			require.Equal(t, "a@x.com", got.User.Email)
			require.NotEmpty(t, got.AccessToken)
			require.NotEmpty(t, got.RefreshToken)
		})
	})

	t.Run("login failures are indistinguishable", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			_, err := authService.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
			require.NoError(t, err)

			wrongPassword, wrongPasswordBody := post(t, url+"/login", `{"email": "a@x.com", "password": "wrong"}`)
			unknownEmail, unknownEmailBody := post(t, url+"/login", `{"email": "nobody@x.com", "password": "secret-pwd"}`)

			require.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
			require.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)
			require.JSONEq(t, wrongPasswordBody, unknownEmailBody, "responses must not reveal whether the account exists")
			require.JSONEq(t, `
				{
					"error": "service_error",
					"message": "Invalid email or password"
				}`, wrongPasswordBody)
		})
	})

	t.Run("refresh ok", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			session, err := authService.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
			require.NoError(t, err)

			resp, body := post(t, url+"/refresh", `{"refreshToken": "`+session.Tokens.Refresh.Value+`"}`)

			require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code. Body: %s", body)

			var got struct {
				AccessToken string `json:"accessToken"`
			}
			require.NoError(t, json.Unmarshal([]byte(body), &got))
			require.NotEmpty(t, got.AccessToken)
			require.NotContains(t, body, "refreshToken", "refresh must return a new access token only")
		})
	})

	t.Run("refresh with unknown token", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			resp, body := post(t, url+"/refresh", `{"refreshToken": "garbage"}`)

			require.Equalf(t, http.StatusUnauthorized, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})

	t.Run("refresh without token", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			resp, body := post(t, url+"/refresh", `{}`)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
			require.Contains(t, body, "validation_failed")
		})
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			session, err := authService.Register(t.Context(), "a@x.com", "secret-pwd", "Alice")
			require.NoError(t, err)

			first, firstBody := post(t, url+"/logout", `{"refreshToken": "`+session.Tokens.Refresh.Value+`"}`)
			second, secondBody := post(t, url+"/logout", `{"refreshToken": "`+session.Tokens.Refresh.Value+`"}`)

			require.Equal(t, http.StatusOK, first.StatusCode)
			require.Equal(t, http.StatusOK, second.StatusCode)
			require.JSONEq(t, firstBody, secondBody, "repeated logout should answer identically")
			require.JSONEq(t, `{"message": "Logout successful"}`, firstBody)

			// The session is really gone
			resp, _ := post(t, url+"/refresh", `{"refreshToken": "`+session.Tokens.Refresh.Value+`"}`)
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	})

	t.Run("logout without token", func(t *testing.T) {
		withServer(pg.Pool, t, func(url string, authService *auth.AuthService) {
			resp, body := post(t, url+"/logout", `{}`)

			require.Equalf(t, http.StatusBadRequest, resp.StatusCode, "not expected code. Body: %s", body)
		})
	})
}
