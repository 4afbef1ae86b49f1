package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a token bucket. Each allowed request costs one token; tokens
// refill continuously at refillRate per second up to capacity.
type Bucket struct {
	capacity   int
	tokens     float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewBucket creates a full bucket allowing bursts of capacity requests and a
// sustained rate of refillRate requests per second.
func NewBucket(capacity int, refillRate float64) *Bucket {
	return &Bucket{
		capacity:   capacity,
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow reports whether a request may proceed, consuming a token if so.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(float64(b.capacity), b.tokens+elapsed*b.refillRate)
	b.lastRefill = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		return true
	}
	return false
}

// Tokens returns the current number of available tokens.
func (b *Bucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// KeyedLimiter tracks one bucket per key, typically a client IP. Inactive
// buckets are dropped after ttl.
type KeyedLimiter struct {
	buckets    map[string]*Bucket
	capacity   int
	refillRate float64
	ttl        time.Duration
	mu         sync.Mutex
}

// NewKeyedLimiter creates a limiter with the given per-key burst capacity and
// sustained rate. A ttl of zero keeps buckets forever.
func NewKeyedLimiter(capacity int, refillRate float64, ttl time.Duration) *KeyedLimiter {
	l := &KeyedLimiter{
		buckets:    make(map[string]*Bucket),
		capacity:   capacity,
		refillRate: refillRate,
		ttl:        ttl,
	}
	if ttl > 0 {
		go l.cleanup()
	}
	return l
}

// Allow reports whether a request for key may proceed.
func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = NewBucket(l.capacity, l.refillRate)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// ActiveBuckets returns the number of tracked keys.
func (l *KeyedLimiter) ActiveBuckets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *KeyedLimiter) cleanup() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for key, bucket := range l.buckets {
			bucket.mu.Lock()
			idle := now.Sub(bucket.lastRefill) > l.ttl
			bucket.mu.Unlock()
			if idle {
				delete(l.buckets, key)
			}
		}
		l.mu.Unlock()
	}
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
