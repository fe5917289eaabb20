package parallel

import (
	"runtime"
	"sync/atomic"
)

// Spinlock is a busy-waiting mutual exclusion lock for critical sections
// of a few instructions, such as advancing a shared work cursor. Waiters
// yield the processor between attempts. Never hold a Spinlock across a
// call that can block.
//
// The zero value is an unlocked Spinlock.
type Spinlock struct {
	locked atomic.Bool
}

// Lock acquires the lock, spinning until it is available.
func (l *Spinlock) Lock() {
	for !l.locked.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *Spinlock) TryLock() bool {
	return l.locked.CompareAndSwap(false, true)
}

// Unlock releases the lock.
func (l *Spinlock) Unlock() {
	l.locked.Store(false)
}
