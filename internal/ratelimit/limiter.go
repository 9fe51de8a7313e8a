// Package ratelimit implements the per-user sliding-window limiter gating
// link creation. State is in-memory and process-local: it is lost on
// restart and not shared between instances, which is acceptable for a
// single-instance deployment.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const window = time.Hour

type Limiter struct {
	mu      sync.Mutex
	maxPerH int
	windows map[int64][]time.Time
	now     func() time.Time
}

func NewLimiter(maxPerHour int) *Limiter {
	if maxPerHour <= 0 {
		maxPerHour = 10
	}
	return &Limiter{
		maxPerH: maxPerHour,
		windows: make(map[int64][]time.Time),
		now:     time.Now,
	}
}

// CheckLimit reports whether ownerID may create another link. When denied,
// the second result is the number of whole minutes (rounded up) until the
// oldest retained request exits the one-hour window.
func (l *Limiter) CheckLimit(ownerID int64) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	retained := l.purgeLocked(ownerID, now)

	if len(retained) < l.maxPerH {
		return true, 0
	}

	oldest := retained[0]
	wait := oldest.Add(window).Sub(now)
	waitMinutes := int(wait.Minutes()) + 1

	return false, waitMinutes
}

// AddRequest records a successful shortening. Callers must invoke it only
// after the link is persisted so rejected attempts do not consume quota.
func (l *Limiter) AddRequest(ownerID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.windows[ownerID] = append(l.windows[ownerID], l.now())
}

// Cleanup purges expired timestamps across all owners and drops owners with
// an empty window, bounding memory growth.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ownerID := range l.windows {
		if len(l.purgeLocked(ownerID, now)) == 0 {
			delete(l.windows, ownerID)
		}
	}
}

// Run invokes Cleanup on the given interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// purgeLocked drops timestamps older than the window for ownerID and
// returns the retained slice, oldest first. Caller holds l.mu.
func (l *Limiter) purgeLocked(ownerID int64, now time.Time) []time.Time {
	cutoff := now.Add(-window)

	ts := l.windows[ownerID]
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) == 0 && ts != nil {
		l.windows[ownerID] = nil
		return nil
	}
	l.windows[ownerID] = kept
	return kept
}
