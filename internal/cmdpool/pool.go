// Package cmdpool provides frame-epoch command buffer pools.
package cmdpool

import (
	"fmt"

	"github.com/gogpu/scenegraph/render"
)

// Pool hands out command buffers for one frame at a time.
//
// Buffers are never freed individually. The first Acquire of a new frame
// (a new epoch) resets the underlying pool and returns every buffer to the
// idle state; buffers are then checked out again in creation order, and
// only the shortfall is allocated. Reset-not-reallocate keeps per-frame
// allocation at zero once the pool has grown to its working size.
//
// Pool is not safe for concurrent use; it is only touched by the thread
// that sets up a draw.
type Pool struct {
	pool  render.CommandBufferPool
	usage render.CommandBufferUsage

	// epoch is the frame the checked-out buffers belong to.
	epoch   uint64
	started bool

	// buffers holds every buffer created so far, in creation order.
	buffers []render.CommandBuffer

	// checkedOut is the number of buffers handed out in the current epoch.
	checkedOut int
}

// New creates a pool with the given usage.
func New(rm render.ResourceManager, usage render.CommandBufferUsage) (*Pool, error) {
	p, err := rm.CreateCommandBufferPool(usage)
	if err != nil {
		return nil, fmt.Errorf("cmdpool: create pool: %w", err)
	}
	return &Pool{pool: p, usage: usage}, nil
}

// Acquire checks out n buffers for frame. Buffers acquired earlier in the
// same frame stay checked out.
func (p *Pool) Acquire(frame uint64, n int) ([]render.CommandBuffer, error) {
	if !p.started || frame != p.epoch {
		if len(p.buffers) > 0 {
			if err := p.pool.Reset(); err != nil {
				return nil, fmt.Errorf("cmdpool: reset for frame %d: %w", frame, err)
			}
			slogger().Debug("cmdpool: new epoch",
				"frame", frame, "previous", p.epoch, "returned", p.checkedOut, "capacity", len(p.buffers))
		}
		p.epoch = frame
		p.started = true
		p.checkedOut = 0
	}
	if n <= 0 {
		return nil, nil
	}

	if need := p.checkedOut + n - len(p.buffers); need > 0 {
		created, err := p.pool.Create(need)
		if err != nil {
			return nil, fmt.Errorf("cmdpool: create %d buffers: %w", need, err)
		}
		p.buffers = append(p.buffers, created...)
	}

	out := p.buffers[p.checkedOut : p.checkedOut+n : p.checkedOut+n]
	p.checkedOut += n
	return out, nil
}

// Usage returns the pool usage flags.
func (p *Pool) Usage() render.CommandBufferUsage { return p.usage }

// Epoch returns the frame of the current checkout.
func (p *Pool) Epoch() uint64 { return p.epoch }

// CheckedOut returns how many buffers are checked out in the current epoch.
func (p *Pool) CheckedOut() int { return p.checkedOut }

// Capacity returns how many buffers the pool has created.
func (p *Pool) Capacity() int { return len(p.buffers) }

// Destroy releases the underlying pool and every buffer.
func (p *Pool) Destroy() error {
	p.buffers = nil
	p.checkedOut = 0
	if p.pool == nil {
		return nil
	}
	err := p.pool.Destroy()
	p.pool = nil
	return err
}
