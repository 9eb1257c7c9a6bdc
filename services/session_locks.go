// services/session_locks.go
package services

import "sync"

// sessionLocks serializes work per session id inside one process.
// The database row lock covers the multi-process case.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// Lock blocks until id is free and returns the matching unlock.
func (l *sessionLocks) Lock(id string) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &sessionLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
