package sessions

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugurCengiz/membership/pkg/user"
)

func testUser() user.User {
	return user.User{
		ID:             uuid.New(),
		Username:       "jane-doe",
		Email:          "jane@example.com",
		EmailConfirmed: true,
	}
}

func signInRecorder(t *testing.T, m *Manager, u user.User, rememberMe bool) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, m.SignIn(rec, u, rememberMe))

	// SignIn clears the old cookie first; the live session cookie is the
	// last one with a value.
	var session *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "" {
			session = c
		}
	}
	require.NotNil(t, session)
	return session
}

func TestSignIn_IssuesParseableToken(t *testing.T) {
	m := NewManager("test-secret", "membership", "membership-app")
	u := testUser()

	cookie := signInRecorder(t, m, u, false)

	claims, err := m.tokens.ParseToken(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.Subject)
	assert.Equal(t, "jane-doe", claims.Username)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.True(t, claims.EmailVerified)

	// Session cookie, not persistent
	assert.True(t, cookie.Expires.IsZero())
	assert.True(t, cookie.HttpOnly)
}

func TestSignIn_RememberMeSetsPersistentCookie(t *testing.T) {
	m := NewManager("test-secret", "membership", "membership-app",
		WithRememberMeDuration(30*24*time.Hour))

	cookie := signInRecorder(t, m, testUser(), true)

	assert.False(t, cookie.Expires.IsZero())
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), cookie.Expires, time.Minute)
}

func TestSignOut_ClearsCookie(t *testing.T) {
	m := NewManager("test-secret", "membership", "membership-app")

	rec := httptest.NewRecorder()
	m.SignOut(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMiddleware_AuthenticatesCookieSession(t *testing.T) {
	m := NewManager("test-secret", "membership", "membership-app")
	u := testUser()

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(m.Verifier())
		r.Use(m.Authenticator())
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			authUser, ok := CurrentUser(r.Context())
			require.True(t, ok)
			w.Write([]byte(authUser.UserID.String()))
		})
	})

	cookie := signInRecorder(t, m, u, false)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie.Value})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.ID.String(), rec.Body.String())
}

func TestMiddleware_RejectsMissingAndBadTokens(t *testing.T) {
	m := NewManager("test-secret", "membership", "membership-app")

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(m.Verifier())
		r.Use(m.Authenticator())
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {})
	})

	t.Run("NoToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewManager("other-secret", "membership", "membership-app")
		cookie := signInRecorder(t, other, testUser(), false)

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie.Value})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
