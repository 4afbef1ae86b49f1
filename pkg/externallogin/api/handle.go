package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/ugurCengiz/membership/pkg/errors"
	"github.com/ugurCengiz/membership/pkg/externallogin"
	"github.com/ugurCengiz/membership/pkg/sessions"
	"github.com/ugurCengiz/membership/pkg/utils"
)

const (
	stateCookieName = "oauth_state"
	stateLength     = 24
	stateMaxAge     = 10 * time.Minute
)

// Handle handles the external provider sign-in round trip.
type Handle struct {
	service        *externallogin.Service
	providers      *externallogin.ProviderRegistry
	sessionManager *sessions.Manager
	secureCookies  bool
}

// Option configures a Handle.
type Option func(*Handle)

// WithSecureCookies toggles the Secure attribute on the state cookie.
func WithSecureCookies(secure bool) Option {
	return func(h *Handle) {
		h.secureCookies = secure
	}
}

// NewHandle creates a new external login handler.
func NewHandle(service *externallogin.Service, providers *externallogin.ProviderRegistry, sessionManager *sessions.Manager, opts ...Option) *Handle {
	h := &Handle{
		service:        service,
		providers:      providers,
		sessionManager: sessionManager,
		secureCookies:  true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers the external login routes.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/external/{provider}", func(r chi.Router) {
		r.Get("/", h.Begin)
		r.Get("/callback", h.Callback)
	})
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

// Begin handles GET /external/{provider}. It stores an anti-forgery state in
// a short-lived cookie and redirects to the provider's consent page.
func (h *Handle) Begin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers.Get(chi.URLParam(r, "provider"))
	if !ok {
		renderError(w, r, http.StatusNotFound, errors.ErrCodeNotFound)
		return
	}

	state, err := utils.GenerateRandomString(stateLength)
	if err != nil {
		slog.Error("Failed to generate oauth state", "err", err)
		renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.Config.AuthCodeURL(state), http.StatusFound)
}

// CallbackResponse is returned after a completed external sign-in.
type CallbackResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// Callback handles GET /external/{provider}/callback. It verifies the state,
// exchanges the code, resolves the external identity to a local account and
// establishes a session.
func (h *Handle) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers.Get(chi.URLParam(r, "provider"))
	if !ok {
		renderError(w, r, http.StatusNotFound, errors.ErrCodeNotFound)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		slog.Warn("External login state mismatch", "provider", provider.Name)
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		renderError(w, r, http.StatusBadRequest, errors.ErrCodeInvalidInput)
		return
	}

	info, err := provider.FetchUserInfo(r.Context(), code)
	if err != nil {
		slog.Error("Failed to fetch external user info", "provider", provider.Name, "err", err)
		renderError(w, r, http.StatusBadGateway, errors.ErrCodeExternalLinkFailed)
		return
	}

	u, err := h.service.SignInOrLink(r.Context(), info)
	if err != nil {
		code := errors.CodeOf(err)
		switch code {
		case errors.ErrCodeMissingEmailClaim:
			renderError(w, r, http.StatusBadRequest, code)
		case errors.ErrCodeDuplicateEmail, errors.ErrCodeExternalLinkFailed:
			renderError(w, r, http.StatusConflict, code)
		default:
			slog.Error("External sign-in failed", "provider", provider.Name, "err", err)
			renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		}
		return
	}

	if err := h.sessionManager.SignIn(w, u, false); err != nil {
		slog.Error("Failed to establish session", "user_id", u.ID, "err", err)
		renderError(w, r, http.StatusInternalServerError, errors.ErrCodeInternal)
		return
	}

	render.JSON(w, r, CallbackResponse{
		ID:       u.ID.String(),
		Username: u.Username,
		Email:    u.Email,
		Provider: provider.Name,
	})
}
