package core

import (
	"strconv"
	"sync"

	"pkt.systems/layoutsync/schema"
)

// Header names attached to every mutating config store call.
const (
	SessionHeader  = "X-Layout-Session"
	UnlockedHeader = "X-Layout-Unlocked"
)

// EditLock is the process-wide advisory gate controlling whether
// mutations may be persisted remotely. It is created locked, toggled
// by explicit user action, and never server-validated. Mutations still
// update in-memory state while locked; only remote writes are gated.
type EditLock struct {
	mu        sync.Mutex
	unlocked  bool
	sessionID schema.SessionID
}

// NewEditLock returns a lock in the locked state for the session.
func NewEditLock(sessionID schema.SessionID) *EditLock {
	return &EditLock{sessionID: sessionID}
}

// Toggle flips the lock and returns the new unlocked state.
func (l *EditLock) Toggle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unlocked = !l.unlocked
	return l.unlocked
}

// IsUnlocked reports whether remote persistence is currently allowed.
func (l *EditLock) IsUnlocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlocked
}

// SessionID returns the session identifier carried in lock headers.
func (l *EditLock) SessionID() schema.SessionID {
	return l.sessionID
}

// AuthHeaders returns the session and lock-state headers attached to
// every mutating config store call.
func (l *EditLock) AuthHeaders() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]string{
		SessionHeader:  string(l.sessionID),
		UnlockedHeader: strconv.FormatBool(l.unlocked),
	}
}
