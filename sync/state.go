// Package sync implements the per-context sync engine: peer selection,
// the handshake protocol, strategy negotiation, snapshot and delta
// catchup, and the observability contract around them. The wire
// transport and broadcast mesh a sync attempt runs over are external
// collaborators (see the transport package); this package only shapes
// the scheduling and protocol decisions that run on top of them.
package sync

import (
	"sync"
	"time"

	"github.com/luxfi/ids"

	"github.com/calimero-network/core/metrics"
)

// BackoffConfig tunes exponential backoff after consecutive sync
// failures against a peer, the same shape as the teacher's benchlist
// threshold/duration/minimum-failing-duration triple, applied per-peer
// rather than per-validator.
type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultBackoffConfig is a reasonable starting point: one second,
// doubling, capped at five minutes.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{InitialDelay: time.Second, MaxDelay: 5 * time.Minute, Multiplier: 2}
}

// SyncState tracks one peer's sync attempt history for a context:
// whether a sync is currently in flight, the last attempt time, and the
// consecutive-failure count driving backoff.
type SyncState struct {
	LastSync           time.Time
	InProgress         bool
	ConsecutiveFailures int
}

// NextEligible reports when a new sync attempt against this peer may
// start, given the current consecutive-failure count.
func (s SyncState) NextEligible(cfg BackoffConfig) time.Time {
	if s.ConsecutiveFailures == 0 {
		return s.LastSync
	}
	delay := cfg.InitialDelay
	for i := 0; i < s.ConsecutiveFailures-1; i++ {
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	return s.LastSync.Add(delay)
}

// PeerStates tracks SyncState per peer for one context, the minimal
// bookkeeping the scheduler consults before dialing.
type PeerStates struct {
	mu     sync.Mutex
	cfg    BackoffConfig
	states map[ids.NodeID]SyncState

	successes metrics.Counter
	failures  metrics.Counter
}

// NewPeerStates builds an empty tracker under cfg.
func NewPeerStates(cfg BackoffConfig) *PeerStates {
	return &PeerStates{cfg: cfg, states: make(map[ids.NodeID]SyncState)}
}

// SetMetrics attaches counters for successful and failed sync attempts
// against peers under this tracker. Optional: a tracker with no
// counters attached behaves exactly as before.
func (p *PeerStates) SetMetrics(successes, failures metrics.Counter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.successes = successes
	p.failures = failures
}

// Eligible reports whether peer may be attempted right now.
func (p *PeerStates) Eligible(peer ids.NodeID, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.states[peer]
	if !ok {
		return true
	}
	if s.InProgress {
		return false
	}
	return !now.Before(s.NextEligible(p.cfg))
}

// Begin marks peer as having an in-flight attempt.
func (p *PeerStates) Begin(peer ids.NodeID, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.states[peer]
	s.InProgress = true
	s.LastSync = now
	p.states[peer] = s
}

// Succeed clears in-flight and resets the failure streak.
func (p *PeerStates) Succeed(peer ids.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.states[peer]
	s.InProgress = false
	s.ConsecutiveFailures = 0
	p.states[peer] = s
	if p.successes != nil {
		p.successes.Inc()
	}
}

// Fail clears in-flight and extends the failure streak, backing off the
// next eligible attempt.
func (p *PeerStates) Fail(peer ids.NodeID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.states[peer]
	s.InProgress = false
	s.ConsecutiveFailures++
	p.states[peer] = s
	if p.failures != nil {
		p.failures.Inc()
	}
}

// Coalescer collapses N queued "sync everything" requests that arrive
// while one pass is in flight into a single pending marker, so a burst
// of delta-arrival notifications triggers at most one extra pass
// instead of N redundant ones.
type Coalescer struct {
	ch chan struct{}
}

// NewCoalescer returns a coalescer with a capacity-1 pending slot.
func NewCoalescer() *Coalescer {
	return &Coalescer{ch: make(chan struct{}, 1)}
}

// Request marks a sync pass as wanted; a no-op while one is already
// pending (requested but not yet taken from Wait).
func (c *Coalescer) Request() {
	select {
	case c.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until a pass has been requested.
func (c *Coalescer) Wait() <-chan struct{} { return c.ch }
