package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config holds rate limiting settings for the auth endpoints.
type Config struct {
	// Per-IP limit applied to every request passing the middleware
	PerIPCapacity   int
	PerIPRefillRate float64

	// Endpoint-specific overrides keyed by "METHOD /path"
	EndpointLimits map[string]EndpointLimit

	// BucketTTL is how long inactive buckets stay in memory
	BucketTTL time.Duration
}

// EndpointLimit is a tighter per-IP limit for a single endpoint.
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// DefaultConfig allows 60 requests per minute per IP, with credential
// endpoints held to 10 per minute.
func DefaultConfig() *Config {
	return &Config{
		PerIPCapacity:   60,
		PerIPRefillRate: 1.0,
		BucketTTL:       time.Hour,
		EndpointLimits: map[string]EndpointLimit{
			"POST /login":          {Capacity: 10, RefillRate: 10.0 / 60.0},
			"POST /register":       {Capacity: 10, RefillRate: 10.0 / 60.0},
			"POST /password-reset": {Capacity: 5, RefillRate: 5.0 / 60.0},
		},
	}
}

// Middleware rate limits requests by client IP.
type Middleware struct {
	config           *Config
	ipLimiter        *KeyedLimiter
	endpointLimiters map[string]*KeyedLimiter
}

// NewMiddleware creates rate limiting middleware from config; a nil config
// gets defaults.
func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{
		config:           config,
		ipLimiter:        NewKeyedLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL),
		endpointLimiters: make(map[string]*KeyedLimiter),
	}
	for endpoint, limit := range config.EndpointLimits {
		m.endpointLimiters[endpoint] = NewKeyedLimiter(limit.Capacity, limit.RefillRate, config.BucketTTL)
	}
	return m
}

// Handler returns the middleware handler.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if !m.ipLimiter.Allow(ip) {
			m.rejected(w, r, ip, "ip")
			return
		}

		endpointKey := r.Method + " " + r.URL.Path
		if limiter, ok := m.endpointLimiters[endpointKey]; ok {
			if !limiter.Allow(ip) {
				m.rejected(w, r, ip, "endpoint")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rejected(w http.ResponseWriter, r *http.Request, ip, limitType string) {
	slog.Warn("Rate limit exceeded",
		"type", limitType,
		"ip", ip,
		"method", r.Method,
		"path", r.URL.Path,
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"code":"RATE_LIMITED","error":"Too many requests. Please try again later."}`))
}

// clientIP extracts the client IP, preferring proxy headers over RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
