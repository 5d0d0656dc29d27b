// Package breaker implements the circuit breaker that guards outbound
// requests to the ingestion endpoint. It counts consecutive failures and
// stops admitting calls once a threshold is reached, probing again after a
// reset timeout.
package breaker

import (
	"sync"
	"time"
)

// State is the breaker's position in its lifecycle.
type State int

const (
	// Closed admits every call.
	Closed State = iota
	// Open rejects every call until the reset timeout elapses.
	Open
	// HalfOpen admits a trial call after the reset timeout.
	HalfOpen
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a three-state circuit breaker. All methods are safe for
// concurrent use.
type Breaker struct {
	mu          sync.Mutex
	threshold   int
	reset       time.Duration
	state       State
	failures    int
	lastFailure time.Time
}

// New returns a closed breaker that opens after threshold consecutive
// failures and allows a trial call once reset has elapsed since the last
// failure.
func New(threshold int, reset time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{threshold: threshold, reset: reset}
}

// CanAttempt reports whether a call may proceed. An open breaker whose reset
// timeout has elapsed moves to HalfOpen first, so the next call is admitted
// as a probe.
func (b *Breaker) CanAttempt() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state != Open
}

// State returns the current state, applying the same lazy Open to HalfOpen
// transition as CanAttempt.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

// RecordSuccess resets the failure count and closes the breaker from any
// state.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = Closed
}

// RecordFailure notes a failed call. The breaker opens once the consecutive
// failure count reaches the threshold; since HalfOpen is only reachable with
// the count already at the threshold, a single failure there reopens it.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.threshold {
		b.state = Open
	}
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// refresh applies the lazy Open to HalfOpen transition. Callers must hold mu.
func (b *Breaker) refresh() {
	if b.state == Open && !b.lastFailure.IsZero() && time.Since(b.lastFailure) >= b.reset {
		b.state = HalfOpen
	}
}
