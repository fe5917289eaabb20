package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/scenegraph/internal/cmdpool"
	"github.com/gogpu/scenegraph/internal/parallel"
	"github.com/gogpu/scenegraph/render"
)

// contextMu serializes resource context creation and destruction across
// every thread manager; graphics backends do not allow concurrent context
// creation.
var contextMu sync.Mutex

type workerState int

const (
	stateInitializing workerState = iota
	stateWaiting
	stateSharedItems
	statePipeline
	stateStop
	stateThreadError
	stateResourceContextError
)

// workItem is one item list to record during a draw.
type workItem struct {
	list ItemList

	// buffer indexes ThreadManager.buffers, or is -1 for lists that do not
	// record commands.
	buffer int

	// Render pass draw lists record into secondary buffers.
	secondary   bool
	framebuffer render.Framebuffer
	renderPass  render.RenderPass
	subpass     int
	viewport    render.Viewport
}

type stepKind int

const (
	stepSubmit stepKind = iota
	stepBeginPass
	stepNextSubpass
	stepEndPass
)

// planStep is one operation of the submission replay.
type planStep struct {
	kind   stepKind
	buffer int
	stage  int

	// Set for stepBeginPass.
	framebuffer render.Framebuffer
	viewport    render.Viewport
}

// DrawStats is a snapshot of thread manager counters.
type DrawStats struct {
	// Draws is the number of completed Draw calls.
	Draws uint64

	// ItemsRecorded and ItemsSkipped count item lists committed
	// successfully and item lists whose recording failed.
	ItemsRecorded uint64
	ItemsSkipped  uint64

	// CommandBuffersSubmitted counts buffers submitted into destination
	// command buffers.
	CommandBuffersSubmitted uint64

	// Durations of the phases of the last draw.
	LastSetup  time.Duration
	LastRecord time.Duration
	LastSubmit time.Duration

	// WorkerClaims counts the items claimed by each recording thread.
	// Index 0 is the thread calling Draw.
	WorkerClaims []uint64
}

// ThreadManager records the item lists of a view on a fixed set of
// persistent draw threads and submits the results in pipeline order.
//
// Each draw thread owns one resource context for its whole lifetime. The
// thread calling Draw records items alongside the draw threads. Items are
// claimed in declared order, recorded in any order, and always submitted in
// declared order, so the destination command buffer receives the same
// command sequence for any thread count.
//
// Draw and Destroy must not be called concurrently.
type ThreadManager struct {
	renderer render.Renderer
	opts     threadManagerOptions

	crew    *parallel.Crew
	barrier *parallel.Barrier

	// states is guarded by the barrier lock.
	states []workerState

	primaryPool   *cmdpool.Pool
	secondaryPool *cmdpool.Pool

	// Per-draw state, written by the controller before a phase is
	// released and read by the workers during the phase.
	view     *View
	buffers  []render.CommandBuffer
	failed   []bool
	shared   [][]workItem
	pipeline []workItem
	plan     []planStep
	current  []workItem

	cursorLock parallel.Spinlock
	cursor     int

	draws      atomic.Uint64
	recorded   atomic.Uint64
	skipped    atomic.Uint64
	submitted  atomic.Uint64
	lastSetup  atomic.Int64
	lastRecord atomic.Int64
	lastSubmit atomic.Int64
	claims     []atomic.Uint64

	destroyed bool
}

// NewThreadManager starts threadCount draw threads, each with its own
// resource context. If threadCount is 0 or negative, GOMAXPROCS is used.
//
// If any thread fails to acquire a context, every started thread is stopped
// and ErrResourceContext is returned.
func NewThreadManager(r render.Renderer, threadCount int, opts ...ThreadManagerOption) (*ThreadManager, error) {
	if r == nil {
		return nil, fmt.Errorf("thread manager renderer: %w", ErrInvalidArgument)
	}
	if threadCount <= 0 {
		threadCount = runtime.GOMAXPROCS(0)
	}
	o := defaultThreadManagerOptions()
	for _, opt := range opts {
		opt(&o)
	}

	tm := &ThreadManager{
		renderer: r,
		opts:     o,
		barrier:  parallel.NewBarrier(threadCount),
		states:   make([]workerState, threadCount),
		claims:   make([]atomic.Uint64, threadCount+1),
	}
	tm.crew = parallel.StartCrew(threadCount, o.lockOSThread, tm.run)

	// Every worker reports once after acquiring its context.
	tm.barrier.Wait()
	var failure error
	tm.barrier.Do(func() {
		for _, s := range tm.states {
			switch s {
			case stateThreadError:
				failure = ErrThreadCreation
			case stateResourceContextError:
				if failure == nil {
					failure = ErrResourceContext
				}
			}
		}
	})
	if failure != nil {
		tm.stopWorkers()
		Logger().Error("scene: draw threads failed to start", "name", o.name, "threads", threadCount, "err", failure)
		return nil, failure
	}

	rm := r.Resources()
	var err error
	if tm.primaryPool, err = cmdpool.New(rm, render.CommandBufferUsageStandard); err == nil {
		tm.secondaryPool, err = cmdpool.New(rm, render.CommandBufferUsageSecondary)
	}
	if err != nil {
		_ = tm.Destroy()
		return nil, err
	}

	Logger().Info("scene: draw threads started", "name", o.name, "threads", threadCount)
	return tm, nil
}

// run is the body of a draw thread.
func (tm *ThreadManager) run(id int) {
	log := Logger().With("name", tm.opts.name, "worker", id+1)

	ctx, state := tm.acquireContext(log)
	tm.barrier.Arrive(func() { tm.states[id] = state })
	if state != stateWaiting {
		return
	}
	defer func() {
		contextMu.Lock()
		err := ctx.Destroy()
		contextMu.Unlock()
		if err != nil {
			log.Warn("scene: destroy resource context", "err", err)
		}
	}()

	for {
		var s workerState
		tm.barrier.Await(func() bool {
			s = tm.states[id]
			return s != stateWaiting
		})
		if s == stateStop {
			return
		}
		tm.recordItems(id + 1)
		tm.barrier.Arrive(func() { tm.states[id] = stateWaiting })
	}
}

func (tm *ThreadManager) acquireContext(log *slog.Logger) (ctx render.ResourceContext, state workerState) {
	contextMu.Lock()
	defer contextMu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			log.Error("scene: draw thread panicked during start", "panic", p)
			ctx, state = nil, stateThreadError
		}
	}()

	ctx, err := tm.renderer.Resources().CreateResourceContext()
	if err != nil {
		log.Error("scene: create resource context", "err", err)
		return nil, stateResourceContextError
	}
	return ctx, stateWaiting
}

// stopWorkers tells every draw thread to exit and waits for them.
func (tm *ThreadManager) stopWorkers() {
	tm.barrier.Release(func() {
		for i := range tm.states {
			tm.states[i] = stateStop
		}
	})
	tm.crew.Join()
}

// ThreadCount returns the number of draw threads.
func (tm *ThreadManager) ThreadCount() int { return tm.crew.Workers() }

// Draw records every item list of view's scene and submits the recorded
// command buffers into cb in pipeline order.
//
// An item list whose recording fails is skipped; its command buffer is not
// submitted. Draw fails only when command buffers cannot be acquired or the
// submission into cb fails, in which case the contents of cb are undefined.
func (tm *ThreadManager) Draw(view *View, cb render.CommandBuffer) error {
	if tm.destroyed {
		return ErrDestroyed
	}
	if view == nil || cb == nil {
		return fmt.Errorf("thread manager draw: %w", ErrInvalidArgument)
	}
	if view.destroyed {
		return ErrDestroyed
	}

	start := time.Now()
	if err := tm.setupForDraw(view); err != nil {
		return err
	}
	setupDone := time.Now()

	for _, items := range tm.shared {
		tm.runPhase(stateSharedItems, items)
	}
	tm.runPhase(statePipeline, tm.pipeline)
	recordDone := time.Now()

	err := tm.submitCommandBuffers(cb)
	submitDone := time.Now()
	tm.view = nil

	tm.lastSetup.Store(int64(setupDone.Sub(start)))
	tm.lastRecord.Store(int64(recordDone.Sub(setupDone)))
	tm.lastSubmit.Store(int64(submitDone.Sub(recordDone)))
	if err != nil {
		return err
	}
	tm.draws.Add(1)

	Logger().Debug("scene: draw",
		"buffers", len(tm.buffers),
		"setup", setupDone.Sub(start),
		"record", recordDone.Sub(setupDone),
		"submit", submitDone.Sub(recordDone))
	return nil
}

// setupForDraw assigns one command buffer per recording item list and
// builds the work items and the submission plan. Buffers are assigned in
// the order they are submitted.
func (tm *ThreadManager) setupForDraw(view *View) error {
	s := view.scene
	tm.view = view

	var nPrimary, nSecondary int
	for _, group := range s.sharedItems {
		for _, l := range group {
			if l.NeedsCommandBuffer() {
				nPrimary++
			}
		}
	}
	for i := range s.pipeline {
		st := &s.pipeline[i]
		if st.Items != nil {
			if st.Items.NeedsCommandBuffer() {
				nPrimary++
			}
			continue
		}
		if fb, _ := view.stageTarget(i); fb == nil {
			continue
		}
		for _, lists := range st.RenderPass.DrawLists {
			nSecondary += len(lists)
		}
	}

	frame := tm.renderer.FrameNumber()
	primary, err := tm.primaryPool.Acquire(frame, nPrimary)
	if err != nil {
		return fmt.Errorf("acquire command buffers: %w", err)
	}
	secondary, err := tm.secondaryPool.Acquire(frame, nSecondary)
	if err != nil {
		return fmt.Errorf("acquire secondary command buffers: %w", err)
	}

	tm.buffers = tm.buffers[:0]
	tm.plan = tm.plan[:0]
	tm.pipeline = tm.pipeline[:0]
	take := func(pool *[]render.CommandBuffer) int {
		tm.buffers = append(tm.buffers, (*pool)[0])
		*pool = (*pool)[1:]
		return len(tm.buffers) - 1
	}
	standalone := func(l ItemList) workItem {
		item := workItem{list: l, buffer: -1}
		if l.NeedsCommandBuffer() {
			item.buffer = take(&primary)
			tm.plan = append(tm.plan, planStep{kind: stepSubmit, buffer: item.buffer})
		}
		return item
	}

	tm.shared = resizeGroups(tm.shared, len(s.sharedItems))
	for gi, group := range s.sharedItems {
		items := tm.shared[gi][:0]
		for _, l := range group {
			items = append(items, standalone(l))
		}
		tm.shared[gi] = items
	}

	for i := range s.pipeline {
		st := &s.pipeline[i]
		if st.Items != nil {
			tm.pipeline = append(tm.pipeline, standalone(st.Items))
			continue
		}

		rs := st.RenderPass
		fb, viewport := view.stageTarget(i)
		if fb == nil {
			Logger().Debug("scene: skipping render pass without framebuffer", "stage", i, "framebuffer", rs.Framebuffer)
			continue
		}
		tm.plan = append(tm.plan, planStep{kind: stepBeginPass, stage: i, framebuffer: fb, viewport: viewport})
		for sp, lists := range rs.DrawLists {
			if sp > 0 {
				tm.plan = append(tm.plan, planStep{kind: stepNextSubpass, stage: i})
			}
			for _, l := range lists {
				item := workItem{
					list:        l,
					buffer:      take(&secondary),
					secondary:   true,
					framebuffer: fb,
					renderPass:  rs.RenderPass,
					subpass:     sp,
					viewport:    viewport,
				}
				tm.pipeline = append(tm.pipeline, item)
				tm.plan = append(tm.plan, planStep{kind: stepSubmit, buffer: item.buffer})
			}
		}
		tm.plan = append(tm.plan, planStep{kind: stepEndPass, stage: i})
	}

	if cap(tm.failed) < len(tm.buffers) {
		tm.failed = make([]bool, len(tm.buffers))
	}
	tm.failed = tm.failed[:len(tm.buffers)]
	clear(tm.failed)
	return nil
}

func resizeGroups(groups [][]workItem, n int) [][]workItem {
	if cap(groups) < n {
		grown := make([][]workItem, n)
		copy(grown, groups)
		return grown
	}
	return groups[:n]
}

// runPhase records items on every draw thread and the calling goroutine
// and returns once all of them are idle again.
func (tm *ThreadManager) runPhase(state workerState, items []workItem) {
	if len(items) == 0 {
		return
	}
	tm.current = items
	tm.cursor = 0
	tm.barrier.Release(func() {
		for i := range tm.states {
			tm.states[i] = state
		}
	})
	tm.recordItems(0)
	tm.barrier.Wait()
	tm.current = nil
}

// recordItems claims and records items of the current phase until none are
// left. worker is 0 for the controller.
func (tm *ThreadManager) recordItems(worker int) {
	for {
		tm.cursorLock.Lock()
		i := tm.cursor
		if i < len(tm.current) {
			tm.cursor++
		}
		tm.cursorLock.Unlock()
		if i >= len(tm.current) {
			return
		}

		tm.claims[worker].Add(1)
		item := &tm.current[i]
		if err := tm.record(item); err != nil {
			tm.skipped.Add(1)
			if item.buffer >= 0 {
				tm.failed[item.buffer] = true
			}
			Logger().Warn("scene: skipping item list", "list", item.list.Name(), "worker", worker, "err", err)
			continue
		}
		tm.recorded.Add(1)
	}
}

func (tm *ThreadManager) record(item *workItem) error {
	if item.buffer < 0 {
		return item.list.Commit(tm.view, nil)
	}

	cb := tm.buffers[item.buffer]
	var err error
	if item.secondary {
		err = cb.BeginSecondary(item.framebuffer, item.renderPass, item.subpass, item.viewport)
	} else {
		err = cb.Begin()
	}
	if err != nil {
		return fmt.Errorf("begin command buffer: %w", err)
	}
	commitErr := item.list.Commit(tm.view, cb)
	if endErr := cb.End(); endErr != nil {
		return errors.Join(commitErr, fmt.Errorf("end command buffer: %w", endErr))
	}
	return commitErr
}

// submitCommandBuffers replays the plan built by setupForDraw into cb.
func (tm *ThreadManager) submitCommandBuffers(cb render.CommandBuffer) error {
	pipeline := tm.view.scene.pipeline
	for _, step := range tm.plan {
		switch step.kind {
		case stepSubmit:
			if tm.failed[step.buffer] {
				continue
			}
			if err := cb.Submit(tm.buffers[step.buffer]); err != nil {
				return fmt.Errorf("submit command buffer %d: %w", step.buffer, err)
			}
			tm.submitted.Add(1)
		case stepBeginPass:
			rs := pipeline[step.stage].RenderPass
			if err := rs.RenderPass.Begin(cb, step.framebuffer, step.viewport, rs.ClearValues, true); err != nil {
				return fmt.Errorf("begin render pass of stage %d: %w", step.stage, err)
			}
		case stepNextSubpass:
			if err := pipeline[step.stage].RenderPass.RenderPass.NextSubpass(cb, true); err != nil {
				return fmt.Errorf("next subpass of stage %d: %w", step.stage, err)
			}
		case stepEndPass:
			if err := pipeline[step.stage].RenderPass.RenderPass.End(cb); err != nil {
				return fmt.Errorf("end render pass of stage %d: %w", step.stage, err)
			}
		}
	}
	return nil
}

// Stats returns a snapshot of the draw counters.
func (tm *ThreadManager) Stats() DrawStats {
	st := DrawStats{
		Draws:                   tm.draws.Load(),
		ItemsRecorded:           tm.recorded.Load(),
		ItemsSkipped:            tm.skipped.Load(),
		CommandBuffersSubmitted: tm.submitted.Load(),
		LastSetup:               time.Duration(tm.lastSetup.Load()),
		LastRecord:              time.Duration(tm.lastRecord.Load()),
		LastSubmit:              time.Duration(tm.lastSubmit.Load()),
		WorkerClaims:            make([]uint64, len(tm.claims)),
	}
	for i := range tm.claims {
		st.WorkerClaims[i] = tm.claims[i].Load()
	}
	return st
}

// Destroy stops the draw threads, releasing their resource contexts, and
// destroys the command buffer pools. Calling Destroy more than once is a
// no-op.
func (tm *ThreadManager) Destroy() error {
	if tm == nil || tm.destroyed {
		return nil
	}
	tm.destroyed = true
	tm.stopWorkers()

	var errs []error
	for _, p := range []*cmdpool.Pool{tm.primaryPool, tm.secondaryPool} {
		if p == nil {
			continue
		}
		if err := p.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	tm.buffers = nil
	tm.shared = nil
	tm.pipeline = nil
	tm.plan = nil

	Logger().Info("scene: draw threads stopped", "name", tm.opts.name, "threads", tm.crew.Workers())
	return errors.Join(errs...)
}
