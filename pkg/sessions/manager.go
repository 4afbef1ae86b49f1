package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/ugurCengiz/membership/pkg/user"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "access_token"

// Default session durations. Remember-me sessions get a persistent cookie
// with a far-out expiry; regular sessions expire with the browser session.
const (
	DefaultSessionDuration    = 24 * time.Hour
	DefaultRememberMeDuration = 30 * 24 * time.Hour
)

// AuthUser is the authenticated principal extracted from a verified session
// token.
type AuthUser struct {
	UserID   uuid.UUID
	Username string
	Email    string
}

func (u AuthUser) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user_id", u.UserID.String()),
		slog.String("username", u.Username),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "sessions context value " + k.name
}

var authUserKey = &contextKey{"AuthUser"}

// Manager issues and revokes session cookies and authenticates requests
// carrying them.
type Manager struct {
	tokens             *TokenGenerator
	auth               *jwtauth.JWTAuth
	sessionDuration    time.Duration
	rememberMeDuration time.Duration
	cookiePath         string
	secureCookies      bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithSessionDuration sets the lifetime of a regular session.
func WithSessionDuration(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.sessionDuration = d
	}
}

// WithRememberMeDuration sets the lifetime of a remember-me session.
func WithRememberMeDuration(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.rememberMeDuration = d
	}
}

// WithSecureCookies toggles the Secure cookie attribute. Disable for local
// plain-http development only.
func WithSecureCookies(secure bool) ManagerOption {
	return func(m *Manager) {
		m.secureCookies = secure
	}
}

// NewManager creates a session manager signing tokens with the given HS256
// secret.
func NewManager(secret, issuer, audience string, opts ...ManagerOption) *Manager {
	m := &Manager{
		tokens:             NewTokenGenerator(secret, issuer, audience),
		auth:               jwtauth.New("HS256", []byte(secret), nil),
		sessionDuration:    DefaultSessionDuration,
		rememberMeDuration: DefaultRememberMeDuration,
		cookiePath:         "/",
		secureCookies:      true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SignIn replaces any existing session with a fresh one for the user. The
// old cookie is cleared first so a half-finished flow never leaves a stale
// principal behind.
func (m *Manager) SignIn(w http.ResponseWriter, u user.User, rememberMe bool) error {
	m.SignOut(w)

	duration := m.sessionDuration
	if rememberMe {
		duration = m.rememberMeDuration
	}

	token, expiresAt, err := m.tokens.GenerateToken(u, duration)
	if err != nil {
		return fmt.Errorf("failed to generate session token: %w", err)
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Path:     m.cookiePath,
		Value:    token,
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	if rememberMe {
		cookie.Expires = expiresAt
	}
	http.SetCookie(w, cookie)
	return nil
}

// SignOut clears the session cookie.
func (m *Manager) SignOut(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Path:     m.cookiePath,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secureCookies,
	})
}

// TokenFromCookie extracts the session token from the request cookie.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Verifier returns middleware that parses a session token from the
// Authorization header or the session cookie into the request context.
func (m *Manager) Verifier() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(m.auth, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

// Authenticator returns middleware that rejects requests without a valid
// verified token and stores the AuthUser in the request context.
func (m *Manager) Authenticator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sub, _ := claims["sub"].(string)
			userID, err := uuid.Parse(sub)
			if err != nil {
				slog.Error("Session token has invalid subject", "err", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			authUser := AuthUser{UserID: userID}
			if username, ok := claims["username"].(string); ok {
				authUser.Username = username
			}
			if email, ok := claims["email"].(string); ok {
				authUser.Email = email
			}

			ctx := context.WithValue(r.Context(), authUserKey, authUser)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the authenticated principal stored by Authenticator.
func CurrentUser(ctx context.Context) (AuthUser, bool) {
	u, ok := ctx.Value(authUserKey).(AuthUser)
	return u, ok
}
