package signup

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/ugurCengiz/membership/pkg/errors"
)

// Handle handles HTTP requests for account registration.
type Handle struct {
	service *RegistrationService
}

// NewHandle creates a new registration handler.
func NewHandle(service *RegistrationService) *Handle {
	return &Handle{service: service}
}

// RegisterRoutes registers the registration routes.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/resend-confirmation", h.ResendConfirmation)
}

// RegisterRequest is the registration form payload.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Password    string `json:"password"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
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

// Register handles POST /register.
func (h *Handle) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "err", err)
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		return
	}

	var params RegisterParams
	if err := copier.Copy(&params, &req); err != nil {
		slog.Error("Failed to map register request", "err", err)
		renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		return
	}

	u, err := h.service.Register(r.Context(), params)
	if err != nil {
		code := errors.CodeOf(err)
		switch code {
		case errors.ErrCodeInvalidUsername, errors.ErrCodePasswordTooShort:
			renderError(w, r, http.StatusBadRequest, code)
		case errors.ErrCodeDuplicatePhone, errors.ErrCodeDuplicateEmail, errors.ErrCodeDuplicateUsername:
			renderError(w, r, http.StatusConflict, code)
		default:
			slog.Error("Registration failed", "err", err)
			renderError(w, r, http.StatusInternalServerError, code)
		}
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, RegisterResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Message:  "Registration successful. Please confirm your email address.",
	})
}

// ResendConfirmationRequest asks for a fresh confirmation email.
type ResendConfirmationRequest struct {
	Email string `json:"email"`
}

// ResendConfirmation handles POST /resend-confirmation.
func (h *Handle) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	var req ResendConfirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		return
	}

	if err := h.service.ResendConfirmation(r.Context(), req.Email); err != nil {
		code := errors.CodeOf(err)
		switch code {
		case errors.ErrCodeUserNotFound:
			renderError(w, r, http.StatusNotFound, code)
		default:
			renderError(w, r, http.StatusBadRequest, code)
		}
		return
	}

	render.JSON(w, r, map[string]string{"message": "Confirmation email sent."})
}
