// Package lockout decides when repeated credential failures lock an account.
//
// The policy is pure: it looks at the failed-attempt counter after the
// current failure has been counted and returns a decision. Persisting the
// lockout end time is the caller's job, which keeps the policy trivially
// testable and free of storage concerns.
package lockout

import (
	"time"
)

// Outcome is the policy verdict for a failed login attempt.
type Outcome int

const (
	// Allow means the account stays usable; the caller should surface the
	// running attempt count to the user.
	Allow Outcome = iota

	// Lock means the account must be locked until Decision.LockedUntil.
	Lock
)

// Decision is the result of evaluating the lockout policy.
type Decision struct {
	Outcome Outcome

	// Attempts is the failed-attempt count the decision was made on.
	Attempts int32

	// LockedUntil is set when Outcome is Lock.
	LockedUntil time.Time
}

// Policy locks accounts after a fixed number of consecutive failures.
type Policy struct {
	maxAttempts int32
	duration    time.Duration
}

// NewPolicy creates a lockout policy.
// maxAttempts: failures before lockout (<=0 disables lockout entirely)
// duration: how long the account stays locked
func NewPolicy(maxAttempts int32, duration time.Duration) *Policy {
	return &Policy{
		maxAttempts: maxAttempts,
		duration:    duration,
	}
}

// Evaluate decides whether an account with failedCount consecutive failures
// (including the current one) should be locked. now anchors the lock window.
func (p *Policy) Evaluate(failedCount int32, now time.Time) Decision {
	if p.maxAttempts > 0 && failedCount >= p.maxAttempts {
		return Decision{
			Outcome:     Lock,
			Attempts:    failedCount,
			LockedUntil: now.Add(p.duration),
		}
	}
	return Decision{
		Outcome:  Allow,
		Attempts: failedCount,
	}
}

// Duration returns the configured lock window.
func (p *Policy) Duration() time.Duration {
	return p.duration
}

// MaxAttempts returns the configured failure threshold.
func (p *Policy) MaxAttempts() int32 {
	return p.maxAttempts
}
