package ratelimit

import (
	"sync"
	"time"
)

// SessionLimiter enforces a fixed request quota per rolling time window per
// session, with a cooldown penalty once the quota is exceeded. The check
// and the increment happen under one lock, so a burst of concurrent
// requests from the same session (multiple browser tabs) cannot race past
// the quota.
type SessionLimiter struct {
	quota    int
	window   time.Duration
	cooldown time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionState
	now      func() time.Time
}

type sessionState struct {
	// stamps holds the times of requests inside the current window.
	stamps []time.Time
	// blockedUntil is set when the quota was exceeded.
	blockedUntil time.Time
}

// NewSessionLimiter creates a limiter allowing quota requests per window,
// with the given cooldown after the quota is exceeded.
func NewSessionLimiter(quota int, window, cooldown time.Duration) *SessionLimiter {
	return &SessionLimiter{
		quota:    quota,
		window:   window,
		cooldown: cooldown,
		sessions: make(map[string]*sessionState),
		now:      time.Now,
	}
}

// Allow records a request attempt for the session and reports whether it
// may proceed. When denied, retryAfter is how long until requests resume.
// An over-quota attempt starts (or extends) the cooldown.
func (l *SessionLimiter) Allow(sessionID string) (allowed bool, retryAfter time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		l.sessions[sessionID] = state
	}

	if now.Before(state.blockedUntil) {
		return false, state.blockedUntil.Sub(now)
	}

	// Drop stamps that have rolled out of the window.
	cutoff := now.Add(-l.window)
	kept := state.stamps[:0]
	for _, stamp := range state.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	state.stamps = kept

	if len(state.stamps) >= l.quota {
		state.blockedUntil = now.Add(l.cooldown)
		state.stamps = nil
		return false, l.cooldown
	}

	state.stamps = append(state.stamps, now)
	return true, 0
}

// Prune drops state for sessions idle longer than the window plus
// cooldown. Callers may run it periodically to bound memory.
func (l *SessionLimiter) Prune() {
	now := l.now()
	horizon := l.window + l.cooldown

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, state := range l.sessions {
		if now.Before(state.blockedUntil) {
			continue
		}
		idle := true
		for _, stamp := range state.stamps {
			if now.Sub(stamp) < horizon {
				idle = false
				break
			}
		}
		if idle {
			delete(l.sessions, id)
		}
	}
}
