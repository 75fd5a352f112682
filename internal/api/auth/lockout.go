package auth

import (
	"strings"
	"sync"
	"time"
)

// lockoutEntry tracks failed login attempts for one login email.
type lockoutEntry struct {
	failures  int
	lockedAt  time.Time
	expiresAt time.Time
}

// LockoutTracker counts failed logins per email and locks the email for a
// fixed duration once the threshold is reached.
//
// State is kept in memory and does not survive a restart.
type LockoutTracker struct {
	mu              sync.RWMutex
	entries         map[string]*lockoutEntry
	threshold       int
	lockoutDuration time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// NewLockoutTracker creates a tracker and starts its cleanup goroutine.
// Call Stop to release it.
func NewLockoutTracker(threshold int, duration time.Duration) *LockoutTracker {
	tracker := &LockoutTracker{
		entries:         make(map[string]*lockoutEntry),
		threshold:       threshold,
		lockoutDuration: duration,
		done:            make(chan struct{}),
	}

	go tracker.cleanupLoop(5 * time.Minute)

	return tracker
}

// key normalizes a login identifier so that case variants share a counter.
func key(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RecordFailure records a failed login attempt.
// Returns true if the email is now locked.
func (t *LockoutTracker) RecordFailure(email string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key(email)
	entry, exists := t.entries[k]
	if !exists {
		entry = &lockoutEntry{}
		t.entries[k] = entry
	}

	now := time.Now()
	if !entry.lockedAt.IsZero() {
		if now.Before(entry.expiresAt) {
			return true
		}
		// Lockout expired; start counting again.
		*entry = lockoutEntry{}
	}

	entry.failures++
	if entry.failures >= t.threshold {
		entry.lockedAt = now
		entry.expiresAt = now.Add(t.lockoutDuration)
		return true
	}

	return false
}

// IsLocked returns true if the email is currently locked.
func (t *LockoutTracker) IsLocked(email string) bool {
	return t.RemainingLockoutTime(email) > 0
}

// RemainingLockoutTime returns how long until the lockout expires.
func (t *LockoutTracker) RemainingLockoutTime(email string) time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, exists := t.entries[key(email)]
	if !exists || entry.lockedAt.IsZero() {
		return 0
	}

	remaining := time.Until(entry.expiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ClearFailures clears failed attempts on successful login.
func (t *LockoutTracker) ClearFailures(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, key(email))
}

// Stop terminates the cleanup goroutine. It is safe to call more than once.
func (t *LockoutTracker) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *LockoutTracker) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

// cleanup removes entries whose lockout has expired.
func (t *LockoutTracker) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for k, entry := range t.entries {
		if entry.failures == 0 || (!entry.lockedAt.IsZero() && now.After(entry.expiresAt)) {
			delete(t.entries, k)
		}
	}
}
