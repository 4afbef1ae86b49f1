package sessions

import (
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ugurCengiz/membership/pkg/user"
)

// SessionClaims is the claim set carried by a session token. The subject is
// the user id.
type SessionClaims struct {
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	jwt.RegisteredClaims
}

// TokenGenerator signs and parses HS256 session tokens.
type TokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
}

// NewTokenGenerator creates a new TokenGenerator.
func NewTokenGenerator(secret, issuer, audience string) *TokenGenerator {
	return &TokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
	}
}

// GenerateToken signs a session token for the user valid for expiry.
func (g *TokenGenerator) GenerateToken(u user.User, expiry time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		Username:      u.Username,
		Email:         u.Email,
		EmailVerified: u.EmailConfirmed,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   u.ID.String(),
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed to sign session token", "err", err)
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a session token string.
func (g *TokenGenerator) ParseToken(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(g.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}
