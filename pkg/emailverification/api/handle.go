package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/ugurCengiz/membership/pkg/emailverification"
	"github.com/ugurCengiz/membership/pkg/errors"
)

// Handle handles the email confirmation link.
type Handle struct {
	service *emailverification.Service
}

// NewHandle creates a new email confirmation handler.
func NewHandle(service *emailverification.Service) *Handle {
	return &Handle{service: service}
}

// RegisterRoutes registers the confirmation route. The path matches the link
// embedded in confirmation emails.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Get("/confirm-email", h.ConfirmEmail)
}

// ConfirmResponse is returned after a successful confirmation.
type ConfirmResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries a stable error code plus its user-facing message.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// ConfirmEmail handles GET /confirm-email?userId=..&token=..
func (h *Handle) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	userIDStr := r.URL.Query().Get("userId")
	token := r.URL.Query().Get("token")

	userID, err := uuid.Parse(userIDStr)
	if err != nil || token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:  string(errors.ErrCodeTokenInvalid),
			Error: errors.Message(errors.ErrCodeTokenInvalid),
		})
		return
	}

	if err := h.service.ConfirmEmail(r.Context(), userID, token); err != nil {
		status := http.StatusBadRequest
		code := errors.ErrCodeConfirmationFailed

		switch {
		case errors.Is(err, emailverification.ErrTokenNotFound):
			status = http.StatusNotFound
			code = errors.ErrCodeTokenInvalid
		case errors.Is(err, emailverification.ErrTokenExpired),
			errors.Is(err, emailverification.ErrTokenAlreadyUsed),
			errors.Is(err, emailverification.ErrTokenUserMismatch):
			code = errors.ErrCodeTokenInvalid
		case errors.Is(err, emailverification.ErrAlreadyConfirmed):
			code = errors.ErrCodeConfirmationFailed
		default:
			slog.Error("Failed to confirm email", "err", err)
			status = http.StatusInternalServerError
			code = errors.ErrCodeInternal
		}

		render.Status(r, status)
		render.JSON(w, r, ErrorResponse{Code: string(code), Error: errors.Message(code)})
		return
	}

	render.JSON(w, r, ConfirmResponse{Message: "Your email address has been confirmed. You can sign in now."})
}
