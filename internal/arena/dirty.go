package arena

import "math/bits"

// DirtySet tracks which slots need updating using a bitmap.
//
// The bitmap uses one bit per slot, packed into uint64 words (64 slots per
// word), and grows on demand. Mark, Unmark and IsDirty are O(1), so entries
// can be dropped when a slot is freed without searching a list.
//
// DirtySet is not safe for concurrent use.
type DirtySet struct {
	// words is the bitmap where each bit represents a slot's dirty state.
	// Word index = slot / 64
	// Bit position = slot % 64
	words []uint64

	// count is the number of set bits.
	count int
}

// Mark marks slot as dirty. Returns true if the slot was clean before.
// Negative slots are ignored.
func (d *DirtySet) Mark(slot int) bool {
	if slot < 0 {
		return false
	}
	wordIdx := slot / 64
	if wordIdx >= len(d.words) {
		grown := make([]uint64, wordIdx+1, max(2*len(d.words), wordIdx+1))
		copy(grown, d.words)
		d.words = grown
	}
	mask := uint64(1) << (slot & 63)
	if d.words[wordIdx]&mask != 0 {
		return false
	}
	d.words[wordIdx] |= mask
	d.count++
	return true
}

// Unmark clears the dirty state of slot.
func (d *DirtySet) Unmark(slot int) {
	if !d.IsDirty(slot) {
		return
	}
	d.words[slot/64] &^= uint64(1) << (slot & 63)
	d.count--
}

// IsDirty returns true if slot is marked as dirty.
// Returns false for out-of-range slots.
func (d *DirtySet) IsDirty(slot int) bool {
	if slot < 0 || slot/64 >= len(d.words) {
		return false
	}
	return d.words[slot/64]&(uint64(1)<<(slot&63)) != 0
}

// Len returns the number of dirty slots.
func (d *DirtySet) Len() int { return d.count }

// IsEmpty returns true if no slots are dirty.
func (d *DirtySet) IsEmpty() bool { return d.count == 0 }

// Clear marks every slot clean. The bitmap keeps its capacity.
func (d *DirtySet) Clear() {
	clear(d.words)
	d.count = 0
}

// ForEach calls fn for each dirty slot in ascending order without clearing
// the dirty flags. fn may mark or unmark slots: changes above the slot
// being visited are honoured, changes at or below it are not.
func (d *DirtySet) ForEach(fn func(slot int)) {
	if fn == nil {
		return
	}
	for wordIdx := 0; wordIdx < len(d.words); wordIdx++ {
		ahead := ^uint64(0)
		for {
			word := d.words[wordIdx] & ahead
			if word == 0 {
				break
			}
			bitIdx := bits.TrailingZeros64(word)
			fn(wordIdx*64 + bitIdx)
			ahead = ^uint64(0) << (bitIdx + 1)
		}
	}
}
