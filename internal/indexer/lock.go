package indexer

import "sync/atomic"

// IndexLock is a non-blocking guard that keeps a second Build from
// starting while one is running.
type IndexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *IndexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *IndexLock) Release() {
	l.state.Store(0)
}

// Locked reports whether a build currently holds the lock
func (l *IndexLock) Locked() bool {
	return l.state.Load() == 1
}
