package service

import (
	"sync"
	"time"

	"github.com/set-night/vitrine/internal/clock"
)

// RateLimiter allows at most limit events per user within a trailing window.
// State is in memory and resets on restart.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	clock  clock.Clock
	events map[int64][]time.Time
}

func NewRateLimiter(limit int, window time.Duration, clk clock.Clock) *RateLimiter {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &RateLimiter{
		limit:  limit,
		window: window,
		clock:  clk,
		events: make(map[int64][]time.Time),
	}
}

// Allow records an event for userID and reports whether it is within the
// limit. Denied attempts are not recorded.
func (l *RateLimiter) Allow(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	recent := l.prune(userID, now)
	if len(recent) >= l.limit {
		return false
	}
	l.events[userID] = append(recent, now)
	return true
}

// Remaining returns how many events userID may still make in the current window.
func (l *RateLimiter) Remaining(userID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.limit - len(l.prune(userID, l.clock.Now()))
	if n < 0 {
		return 0
	}
	return n
}

func (l *RateLimiter) prune(userID int64, now time.Time) []time.Time {
	events := l.events[userID]
	cutoff := now.Add(-l.window)
	kept := events[:0]
	for _, t := range events {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.events, userID)
		return nil
	}
	l.events[userID] = kept
	return kept
}
