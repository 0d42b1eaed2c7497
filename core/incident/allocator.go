package incident

import "sync/atomic"

// IDAllocator hands out incident identifiers. Implementations must never
// return the same value twice.
type IDAllocator interface {
	Next() int
}

// SequenceAllocator returns consecutive identifiers. It is safe for
// concurrent use.
type SequenceAllocator struct {
	last atomic.Int64
}

// NewSequenceAllocator returns an allocator whose first identifier is first.
func NewSequenceAllocator(first int) *SequenceAllocator {
	a := &SequenceAllocator{}
	a.last.Store(int64(first) - 1)
	return a
}

// Next returns the next identifier.
func (a *SequenceAllocator) Next() int { return int(a.last.Add(1)) }
