package memory

import (
	"sync/atomic"

	"github.com/23skdu/tinyalloc/internal/metrics"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// TrackingAllocator wraps a heap allocator and counts the traffic that reaches it.
// Put it under a SmallAllocator to observe refill chunks and large passthroughs.
type TrackingAllocator struct {
	base memory.Allocator

	BytesAllocated atomic.Int64
	BytesFreed     atomic.Int64
	Allocations    atomic.Int64
	Frees          atomic.Int64
}

// NewTrackingAllocator wraps base. If base is nil, memory.DefaultAllocator is used.
func NewTrackingAllocator(base memory.Allocator) *TrackingAllocator {
	if base == nil {
		base = memory.DefaultAllocator
	}
	return &TrackingAllocator{base: base}
}

func (a *TrackingAllocator) Allocate(size int) []byte {
	b := a.base.Allocate(size)
	if b == nil {
		return nil
	}
	a.Allocations.Add(1)
	a.BytesAllocated.Add(int64(len(b)))
	metrics.HeapBytesAllocatedTotal.Add(float64(len(b)))
	metrics.HeapAllocationsActive.Inc()
	return b
}

// Reallocate counts the new size as fresh allocation volume; the number of
// live allocations is unchanged. A failed reallocation is not counted.
func (a *TrackingAllocator) Reallocate(size int, b []byte) []byte {
	out := a.base.Reallocate(size, b)
	if out == nil && size > 0 {
		return nil
	}
	a.BytesAllocated.Add(int64(len(out)))
	a.BytesFreed.Add(int64(len(b)))
	metrics.HeapBytesAllocatedTotal.Add(float64(len(out)))
	metrics.HeapBytesFreedTotal.Add(float64(len(b)))
	return out
}

func (a *TrackingAllocator) Free(b []byte) {
	a.Frees.Add(1)
	a.BytesFreed.Add(int64(len(b)))
	metrics.HeapBytesFreedTotal.Add(float64(len(b)))
	metrics.HeapAllocationsActive.Dec()
	a.base.Free(b)
}

// InUse returns bytes allocated and not yet freed.
func (a *TrackingAllocator) InUse() int64 {
	return a.BytesAllocated.Load() - a.BytesFreed.Load()
}

var _ memory.Allocator = (*TrackingAllocator)(nil)
