// Package collections provides compact data structures used by the
// reachability engine.
package collections

import "math/bits"

// Bitset is a fixed-universe boolean set using one bit per element.
// Set grows the set as needed. Test treats indices beyond the current
// size as unset.
type Bitset struct {
	words []uint64
	size  int
}

// NewBitset creates a bitset able to hold indices [0, size) without growing.
func NewBitset(size int) *Bitset {
	if size < 0 {
		size = 0
	}
	return &Bitset{words: make([]uint64, (size+63)/64), size: size}
}

// Set sets bit i. Negative indices are ignored.
func (b *Bitset) Set(i int) {
	if i < 0 {
		return
	}
	w := i / 64
	if w >= len(b.words) {
		grown := make([]uint64, max(w+1, 2*len(b.words)))
		copy(grown, b.words)
		b.words = grown
	}
	b.words[w] |= 1 << (i % 64)
	if i >= b.size {
		b.size = i + 1
	}
}

// Test reports whether bit i is set.
func (b *Bitset) Test(i int) bool {
	if i < 0 || i/64 >= len(b.words) {
		return false
	}
	return b.words[i/64]&(1<<(i%64)) != 0
}

// Count returns the number of set bits.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Size returns one more than the highest index the set can hold without growing.
func (b *Bitset) Size() int {
	return b.size
}
