package services

import "sync"

// SessionLocks serializes all state-mutating operations against one session.
// Sessions are independent, so each gets its own mutex; the game service and
// the claim service share one table so a move can never race a claim.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-session mutex and returns the unlock func.
func (l *SessionLocks) Lock(sessionID string) func() {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
