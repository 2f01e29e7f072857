package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/vsokolov/taskward/internal/handlers/render"
	"github.com/vsokolov/taskward/internal/handlers/userctx"
	"github.com/vsokolov/taskward/internal/logger"
)

// Verifier of access tokens
// Implemented by tokenissuer.Issuer
type accessVerifier interface {
	VerifyAccess(token string) (uuid.UUID, error)
}

// Auth guards a handler with bearer token authentication
// Whatever went wrong (missing header, wrong scheme, bad signature,
// expired token) the client sees the same 401, the details go to the log
func Auth(verifier accessVerifier, l logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := verifier.VerifyAccess(token)
			if err != nil {
				l.Debug("access token rejected", "error", err.Error())
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")

	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}

	return token, true
}
