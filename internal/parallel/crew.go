package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Crew is a fixed set of persistent worker goroutines.
//
// Unlike a task queue, a crew runs one long-lived function per worker for
// its whole lifetime. Workers coordinate with their controller through a
// Barrier and exit when their function returns. With lockOSThread set,
// every worker is wired to its own OS thread, which thread-affine graphics
// contexts require.
//
// Thread safety: Crew is safe for concurrent use.
type Crew struct {
	// workers is the number of worker goroutines.
	workers int

	// wg waits for all workers to return.
	wg sync.WaitGroup

	// running indicates whether the workers have not been joined yet.
	running atomic.Bool
}

// StartCrew starts workers goroutines running fn with their worker index.
// If workers is 0 or negative, GOMAXPROCS is used.
func StartCrew(workers int, lockOSThread bool, fn func(id int)) *Crew {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	c := &Crew{workers: workers}
	c.running.Store(true)

	c.wg.Add(workers)
	for i := range workers {
		go func(id int) {
			defer c.wg.Done()
			if lockOSThread {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
			}
			fn(id)
		}(i)
	}

	return c
}

// Workers returns the number of workers.
func (c *Crew) Workers() int {
	return c.workers
}

// Join waits for every worker function to return. It is safe to call Join
// more than once; only the first call waits.
func (c *Crew) Join() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.wg.Wait()
}

// IsRunning reports whether Join has not been called yet.
func (c *Crew) IsRunning() bool {
	return c.running.Load()
}
