package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/ugurCengiz/membership/pkg/config"
	"github.com/ugurCengiz/membership/pkg/errors"
	"github.com/ugurCengiz/membership/pkg/login"
	"github.com/ugurCengiz/membership/pkg/sessions"
)

// Handle handles HTTP requests for sign-in, sign-out and password reset.
type Handle struct {
	loginService   *login.LoginService
	sessionManager *sessions.Manager
	passwordConfig config.PasswordConfig
}

// Option configures a Handle.
type Option func(*Handle)

// WithPasswordConfig overrides the password policy applied on reset.
func WithPasswordConfig(cfg config.PasswordConfig) Option {
	return func(h *Handle) {
		h.passwordConfig = cfg
	}
}

// NewHandle creates a new login handler.
func NewHandle(loginService *login.LoginService, sessionManager *sessions.Manager, opts ...Option) *Handle {
	h := &Handle{
		loginService:   loginService,
		sessionManager: sessionManager,
		passwordConfig: config.DefaultPasswordConfig(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the login routes.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Post("/password-reset", h.InitPasswordReset)
	r.Post("/password-reset/confirm", h.ConfirmPasswordReset)
}

// LoginRequest is the sign-in form payload.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

// LoginResponse is returned after a successful sign-in.
type LoginResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ErrorResponse carries a stable error code plus its user-facing message.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, code errors.ErrorCode) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: string(code), Error: errors.Message(code)})
}

// Login handles POST /login. A successful sign-in replaces any existing
// session cookie.
func (h *Handle) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		return
	}

	var params login.LoginParams
	if err := copier.Copy(&params, &req); err != nil {
		slog.Error("Failed to map login request", "err", err)
		renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		return
	}

	u, err := h.loginService.Login(r.Context(), params)
	if err != nil {
		var locked *login.AccountLockedError
		var invalid *login.InvalidCredentialsError
		switch {
		case errors.Is(err, login.ErrUserNotFound):
			renderError(w, r, http.StatusNotFound, errors.ErrCodeUserNotFound)
		case errors.As(err, &locked):
			code := errors.ErrCodeAccountLocked
			if locked.JustLocked {
				code = errors.ErrCodeAccountLockedNow
			}
			renderError(w, r, http.StatusForbidden, code)
		case errors.Is(err, login.ErrEmailNotConfirmed):
			renderError(w, r, http.StatusForbidden, errors.ErrCodeEmailNotConfirmed)
		case errors.As(err, &invalid):
			renderError(w, r, http.StatusUnauthorized, errors.ErrCodeInvalidCredentials)
		default:
			slog.Error("Login failed", "err", err)
			renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		}
		return
	}

	if err := h.sessionManager.SignIn(w, u, req.RememberMe); err != nil {
		slog.Error("Failed to establish session", "user_id", u.ID, "err", err)
		renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		return
	}

	render.JSON(w, r, LoginResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
	})
}

// Logout handles POST /logout.
func (h *Handle) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessionManager.SignOut(w)
	render.JSON(w, r, map[string]string{"message": "Signed out."})
}

// PasswordResetRequest asks for a reset link to be emailed.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// InitPasswordReset handles POST /password-reset.
func (h *Handle) InitPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		return
	}

	if err := h.loginService.InitPasswordReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, login.ErrEmailNotFound) {
			renderError(w, r, http.StatusNotFound, errors.ErrCodeUserNotFound)
			return
		}
		slog.Error("Failed to init password reset", "err", err)
		renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		return
	}

	render.JSON(w, r, map[string]string{"message": "Password reset email sent."})
}

// PasswordResetConfirmRequest redeems a reset token.
type PasswordResetConfirmRequest struct {
	UserId      string `json:"user_id"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ConfirmPasswordReset handles POST /password-reset/confirm.
func (h *Handle) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		return
	}

	userID, err := uuid.Parse(req.UserId)
	if err != nil || req.Token == "" {
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeTokenInvalid)
		return
	}

	if len(req.NewPassword) < h.passwordConfig.MinLength {
		renderError(w, r, http.StatusBadRequest, errors.ErrCodePasswordTooShort)
		return
	}

	if err := h.loginService.ConfirmPasswordReset(r.Context(), userID, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, login.ErrResetInvalid) {
			renderError(w, r, http.StatusBadRequest, errors.ErrCodeResetFailed)
			return
		}
		slog.Error("Failed to confirm password reset", "err", err)
		renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		return
	}

	render.JSON(w, r, map[string]string{"message": "Password has been reset. You can sign in now."})
}
