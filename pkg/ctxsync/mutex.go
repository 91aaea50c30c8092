// Package ctxsync contains synchronization primitives whose waits can be
// abandoned through a [context.Context].
package ctxsync

import (
	"context"
)

// A Mutex is a mutual exclusion lock whose Lock can be canceled. The zero
// value is not usable; create mutexes with [NewMutex].
type Mutex struct {
	unlock chan struct{}
}

// NewMutex creates a new instance of Mutex.
func NewMutex() *Mutex {
	return &Mutex{
		unlock: make(chan struct{}, 1),
	}
}

// Lock locks m, waiting as long as it takes.
func (m *Mutex) Lock() {
	m.unlock <- struct{}{}
}

// LockWithContext locks m unless ctx is done first, in which case it returns
// the cause of ctx. A context that is already done never acquires the lock,
// even if m is free.
func (m *Mutex) LockWithContext(ctx context.Context) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case m.unlock <- struct{}{}:
		return nil
	}
}

// TryLock tries to lock m and reports whether it succeeded.
func (m *Mutex) TryLock() bool {
	select {
	case m.unlock <- struct{}{}:
		return true
	default:
		return false
	}
}

// Unlock unlocks m. It panics if m is not locked.
func (m *Mutex) Unlock() {
	select {
	case <-m.unlock:
	default:
		panic("ctxsync: unlock of unlocked mutex")
	}
}
