// Package sessions issues and verifies cookie-backed JWT sessions.
//
// A successful sign-in replaces any existing session cookie with a freshly
// signed HS256 token. Requests to protected routes pass through Verifier,
// which parses the token from the Authorization header or the session
// cookie, and Authenticator, which rejects unverified requests and exposes
// the principal via CurrentUser.
package sessions
