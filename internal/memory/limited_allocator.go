package memory

import (
	"sync/atomic"

	"github.com/23skdu/tinyalloc/internal/metrics"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// LimitedAllocator is a heap with a fixed byte budget. Once a request would
// exceed the budget it returns nil, the exhaustion signal SmallAllocator
// propagates to its callers.
type LimitedAllocator struct {
	base    memory.Allocator
	limit   int64
	inUse   atomic.Int64
	rejects atomic.Int64
}

// NewLimitedAllocator caps base at limit bytes in use. If base is nil,
// memory.DefaultAllocator is used.
func NewLimitedAllocator(base memory.Allocator, limit int64) *LimitedAllocator {
	if base == nil {
		base = memory.DefaultAllocator
	}
	return &LimitedAllocator{base: base, limit: limit}
}

func (a *LimitedAllocator) reserve(size int) bool {
	if a.inUse.Add(int64(size)) > a.limit {
		a.inUse.Add(-int64(size))
		a.rejects.Add(1)
		metrics.HeapLimitRejectsTotal.Inc()
		return false
	}
	return true
}

func (a *LimitedAllocator) Allocate(size int) []byte {
	if !a.reserve(size) {
		return nil
	}
	b := a.base.Allocate(size)
	if b == nil {
		a.inUse.Add(-int64(size))
	}
	return b
}

// Reallocate returns nil, leaving b untouched, when growth exceeds the budget
// or the base allocator fails.
func (a *LimitedAllocator) Reallocate(size int, b []byte) []byte {
	grow := size - len(b)
	if grow > 0 && !a.reserve(grow) {
		return nil
	}
	out := a.base.Reallocate(size, b)
	switch {
	case out == nil && size > 0:
		if grow > 0 {
			a.inUse.Add(-int64(grow))
		}
	case grow < 0:
		a.inUse.Add(int64(grow))
	}
	return out
}

func (a *LimitedAllocator) Free(b []byte) {
	a.inUse.Add(-int64(len(b)))
	a.base.Free(b)
}

// InUse returns the bytes currently charged against the budget.
func (a *LimitedAllocator) InUse() int64 {
	return a.inUse.Load()
}

// Rejects returns how many requests were refused.
func (a *LimitedAllocator) Rejects() int64 {
	return a.rejects.Load()
}

var _ memory.Allocator = (*LimitedAllocator)(nil)
