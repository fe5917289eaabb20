package parallel

import "sync"

// Barrier coordinates one controller with a fixed number of workers that
// run in lockstep phases.
//
// The controller publishes the next phase for every worker with Release,
// which runs the publish callback under the barrier lock before waking the
// workers, so no worker can observe a partially published phase. Workers
// block in Await until their state says there is work, and report the end
// of a phase with Arrive. Wait returns once every worker has arrived and
// re-arms the barrier for the next phase.
//
// Thread safety: Barrier is safe for concurrent use. State shared between
// the controller and workers must only be read or written inside the
// callbacks.
type Barrier struct {
	mu   sync.Mutex
	cond sync.Cond

	// parties is the number of workers that must arrive per phase.
	parties int

	// finished counts workers that arrived in the current phase.
	finished int
}

// NewBarrier creates a barrier for parties workers.
func NewBarrier(parties int) *Barrier {
	b := &Barrier{parties: parties}
	b.cond.L = &b.mu
	return b
}

// Parties returns the number of workers per phase.
func (b *Barrier) Parties() int { return b.parties }

// Release runs publish with the lock held, then wakes every waiting
// worker.
func (b *Barrier) Release(publish func()) {
	b.mu.Lock()
	if publish != nil {
		publish()
	}
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Await blocks until ready returns true. ready is evaluated with the lock
// held, initially and after every wake-up.
func (b *Barrier) Await(ready func() bool) {
	b.mu.Lock()
	for !ready() {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// Arrive records that a worker finished its phase. update, if non-nil,
// runs with the lock held before the controller is woken.
func (b *Barrier) Arrive(update func()) {
	b.mu.Lock()
	if update != nil {
		update()
	}
	b.finished++
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Wait blocks the controller until every worker has arrived, then resets
// the arrival count.
func (b *Barrier) Wait() {
	b.mu.Lock()
	for b.finished < b.parties {
		b.cond.Wait()
	}
	b.finished = 0
	b.mu.Unlock()
}

// Do runs fn with the lock held.
func (b *Barrier) Do(fn func()) {
	b.mu.Lock()
	fn()
	b.mu.Unlock()
}
