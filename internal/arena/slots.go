// Package arena provides stable slot storage and slot-keyed dirty tracking.
package arena

// Slots stores values at stable integer indices. Freed indices are reused
// by later inserts, so an index stays valid exactly as long as its value is
// stored.
//
// Slots is not safe for concurrent use.
type Slots[T any] struct {
	items []T
	used  []bool
	free  []int
	live  int
}

// Insert stores v and returns its slot.
func (s *Slots[T]) Insert(v T) int {
	s.live++
	if n := len(s.free); n > 0 {
		slot := s.free[n-1]
		s.free = s.free[:n-1]
		s.items[slot] = v
		s.used[slot] = true
		return slot
	}
	s.items = append(s.items, v)
	s.used = append(s.used, true)
	return len(s.items) - 1
}

// Remove frees slot. Removing a free or out-of-range slot is a no-op.
func (s *Slots[T]) Remove(slot int) {
	if !s.Valid(slot) {
		return
	}
	var zero T
	s.items[slot] = zero
	s.used[slot] = false
	s.free = append(s.free, slot)
	s.live--
}

// Get returns the value at slot, or the zero value for a free slot.
func (s *Slots[T]) Get(slot int) T {
	if !s.Valid(slot) {
		var zero T
		return zero
	}
	return s.items[slot]
}

// Valid reports whether slot holds a value.
func (s *Slots[T]) Valid(slot int) bool {
	return slot >= 0 && slot < len(s.items) && s.used[slot]
}

// Len returns the number of stored values.
func (s *Slots[T]) Len() int { return s.live }

// Reset frees every slot.
func (s *Slots[T]) Reset() {
	clear(s.items)
	s.items = s.items[:0]
	s.used = s.used[:0]
	s.free = s.free[:0]
	s.live = 0
}
