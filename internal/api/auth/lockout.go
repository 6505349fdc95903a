package auth

import (
	"sync"
	"time"
)

type lockoutEntry struct {
	failures  int
	expiresAt time.Time // zero while not locked
}

// LockoutTracker locks an account after repeated failed logins.
// State is in memory only; a restart clears it.
type LockoutTracker struct {
	mu        sync.Mutex
	entries   map[string]*lockoutEntry // keyed by normalized email
	threshold int
	duration  time.Duration
	now       func() time.Time
	stop      chan struct{}
	once      sync.Once
}

// NewLockoutTracker creates a tracker that locks after threshold failures for duration.
func NewLockoutTracker(threshold int, duration time.Duration) *LockoutTracker {
	t := &LockoutTracker{
		entries:   make(map[string]*lockoutEntry),
		threshold: threshold,
		duration:  duration,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
	go t.cleanupLoop(5 * time.Minute)
	return t
}

// RecordFailure counts a failed login and reports whether the account is now locked.
func (t *LockoutTracker) RecordFailure(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	entry, ok := t.entries[key]
	if !ok {
		entry = &lockoutEntry{}
		t.entries[key] = entry
	}
	if !entry.expiresAt.IsZero() {
		if now.Before(entry.expiresAt) {
			return true
		}
		*entry = lockoutEntry{}
	}

	entry.failures++
	if t.threshold > 0 && entry.failures >= t.threshold {
		entry.expiresAt = now.Add(t.duration)
		return true
	}
	return false
}

// Remaining returns how long key stays locked, or zero.
func (t *LockoutTracker) Remaining(key string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[key]
	if !ok || entry.expiresAt.IsZero() {
		return 0
	}
	if d := entry.expiresAt.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}

// IsLocked reports whether key is currently locked.
func (t *LockoutTracker) IsLocked(key string) bool {
	return t.Remaining(key) > 0
}

// ClearFailures forgets key after a successful login.
func (t *LockoutTracker) ClearFailures(key string) {
	t.mu.Lock()
	delete(t.entries, key)
	t.mu.Unlock()
}

// Close stops the cleanup loop.
func (t *LockoutTracker) Close() {
	t.once.Do(func() { close(t.stop) })
}

func (t *LockoutTracker) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

func (t *LockoutTracker) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, entry := range t.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(t.entries, key)
		}
	}
}
