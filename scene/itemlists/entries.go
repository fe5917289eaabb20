package itemlists

import (
	"cmp"
	"iter"
	"slices"

	"github.com/gogpu/scenegraph/scene"
)

type entry[T any] struct {
	id    scene.EntryID
	value T
}

// Entries stores item list entries keyed by generated ids.
//
// Ids increase monotonically, so entries stay sorted by id and lookups are
// binary searches. Removal is either immediate or queued with QueueRemove
// and applied in one compaction pass by Flush; queued entries are hidden
// from Find and All but still counted by Len until flushed.
//
// The zero value is ready to use. Entries is not safe for concurrent use.
type Entries[T any] struct {
	items   []entry[T]
	nextID  scene.EntryID
	pending map[scene.EntryID]struct{}
}

// Add appends v and returns its id.
func (e *Entries[T]) Add(v T) scene.EntryID {
	id := e.nextID
	e.nextID++
	e.items = append(e.items, entry[T]{id: id, value: v})
	return id
}

func (e *Entries[T]) index(id scene.EntryID) (int, bool) {
	return slices.BinarySearchFunc(e.items, id, func(en entry[T], id scene.EntryID) int {
		return cmp.Compare(en.id, id)
	})
}

func (e *Entries[T]) queued(id scene.EntryID) bool {
	_, ok := e.pending[id]
	return ok
}

// Find returns a pointer to the value with the given id. The pointer is
// valid until the next Add, Remove or Flush.
func (e *Entries[T]) Find(id scene.EntryID) (*T, bool) {
	i, ok := e.index(id)
	if !ok || e.queued(id) {
		return nil, false
	}
	return &e.items[i].value, true
}

// Remove deletes the entry with the given id immediately.
func (e *Entries[T]) Remove(id scene.EntryID) bool {
	i, ok := e.index(id)
	if !ok {
		return false
	}
	e.items = slices.Delete(e.items, i, i+1)
	delete(e.pending, id)
	return true
}

// QueueRemove schedules the entry for removal by the next Flush.
func (e *Entries[T]) QueueRemove(id scene.EntryID) {
	if e.pending == nil {
		e.pending = make(map[scene.EntryID]struct{})
	}
	e.pending[id] = struct{}{}
}

// Pending returns the number of queued removals.
func (e *Entries[T]) Pending() int { return len(e.pending) }

// Flush applies every queued removal and returns how many entries were
// removed.
func (e *Entries[T]) Flush() int {
	if len(e.pending) == 0 {
		return 0
	}
	out := 0
	for _, en := range e.items {
		if e.queued(en.id) {
			continue
		}
		e.items[out] = en
		out++
	}
	removed := len(e.items) - out
	clear(e.items[out:])
	e.items = e.items[:out]
	clear(e.pending)
	return removed
}

// Len returns the number of stored entries, including queued removals.
func (e *Entries[T]) Len() int { return len(e.items) }

// All iterates over live entries in id order.
func (e *Entries[T]) All() iter.Seq2[scene.EntryID, *T] {
	return func(yield func(scene.EntryID, *T) bool) {
		for i := range e.items {
			en := &e.items[i]
			if len(e.pending) > 0 && e.queued(en.id) {
				continue
			}
			if !yield(en.id, &en.value) {
				return
			}
		}
	}
}

// Reset removes every entry. Ids are not reused.
func (e *Entries[T]) Reset() {
	clear(e.items)
	e.items = e.items[:0]
	clear(e.pending)
}
