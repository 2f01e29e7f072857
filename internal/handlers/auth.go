package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vsokolov/taskward/internal/apperrors"
	"github.com/vsokolov/taskward/internal/handlers/render"
	"github.com/vsokolov/taskward/internal/logger"
	"github.com/vsokolov/taskward/internal/models"
	"github.com/vsokolov/taskward/internal/service/auth"
)

type authService interface {
	// Register new user
	// Must return apperrors.ErrUserAlreadyExists if the email is taken
	Register(ctx context.Context, email string, password string, name string) (auth.Session, error)

	// Login with email and password
	// Must return apperrors.ErrInvalidCredentials on any credential failure
	Login(ctx context.Context, email string, password string) (auth.Session, error)

	// Exchange a refresh token for a new access token
	// Must return apperrors.ErrTokenInvalid, apperrors.ErrTokenExpired
	// or apperrors.ErrRefreshTokenNotFound
	Refresh(ctx context.Context, refresh string) (models.IssuedToken, error)

	// End the session; idempotent
	Logout(ctx context.Context, refresh string) error
}

type AuthHandler struct {
	authService authService
	logger      logger.Logger
}

// Public user representation: the password hash never leaves the server
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type SessionResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func NewAuth(authService authService, logger logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

func (h *AuthHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", h.register)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /refresh", h.refresh)
	mux.HandleFunc("POST /logout", h.logout)

	return mux
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Name     string `json:"name" validate:"required"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		return
	}

	session, err := h.authService.Register(r.Context(), data.Email, data.Password, data.Name)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists with this email", http.StatusBadRequest)
		default:
			h.logger.Error("register failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, http.StatusCreated, sessionResponse(session))
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		return
	}

	session, err := h.authService.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			render.ServiceError(w, "Invalid email or password", http.StatusUnauthorized)
		default:
			h.logger.Error("login failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, http.StatusOK, sessionResponse(session))
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type RefreshResponse struct {
		AccessToken string `json:"accessToken"`
	}

	data, err := render.BindAndValidate[RefreshRequest](w, r)
	if err != nil {
		return
	}

	access, err := h.authService.Refresh(r.Context(), data.RefreshToken)
	if err != nil {
		// Every refresh failure is a 401, only the message varies
		switch {
		case errors.Is(err, apperrors.ErrTokenExpired):
			render.ServiceError(w, "Refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrRefreshTokenNotFound):
			render.ServiceError(w, "Refresh token not found", http.StatusUnauthorized)
		case errors.Is(err, apperrors.ErrTokenInvalid):
			render.ServiceError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		default:
			h.logger.Error("refresh failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, http.StatusOK, RefreshResponse{AccessToken: access.Value})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	type LogoutRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type LogoutResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[LogoutRequest](w, r)
	if err != nil {
		return
	}

	if err := h.authService.Logout(r.Context(), data.RefreshToken); err != nil {
		h.logger.Error("logout failed", "error", err.Error())
		render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	render.JSON(w, http.StatusOK, LogoutResponse{Message: "Logout successful"})
}

func sessionResponse(s auth.Session) SessionResponse {
	return SessionResponse{
		User: UserResponse{
			ID:        s.User.ID,
			Email:     s.User.Email,
			Name:      s.User.Name,
			CreatedAt: s.User.CreatedAt,
		},
		AccessToken:  s.Tokens.Access.Value,
		RefreshToken: s.Tokens.Refresh.Value,
	}
}
