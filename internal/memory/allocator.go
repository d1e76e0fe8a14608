package memory

import (
	"github.com/23skdu/tinyalloc/internal/metrics"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
)

// Allocation paths, resolved once so the hot path only pays for an atomic add.
var (
	allocFreelist = metrics.AllocationsTotal.WithLabelValues("freelist")
	allocPool     = metrics.AllocationsTotal.WithLabelValues("pool")
	allocRefill   = metrics.AllocationsTotal.WithLabelValues("refill")
	allocLarge    = metrics.AllocationsTotal.WithLabelValues("large")

	freeFreelist = metrics.FreesTotal.WithLabelValues("freelist")
	freeLarge    = metrics.FreesTotal.WithLabelValues("large")
	freeAdopted  = metrics.FreesTotal.WithLabelValues("adopted")
	freeDropped  = metrics.FreesTotal.WithLabelValues("dropped")
)

// SmallAllocator pools requests of up to MaxSmallSize bytes into per-class
// free lists carved from chunks of a heap allocator. Larger requests are
// passed through to the heap untouched.
//
// Chunks acquired from the heap are never returned to it.
//
// SmallAllocator is NOT safe for concurrent use; wrap it with
// SynchronizedAllocator when it must be shared between goroutines.
type SmallAllocator struct {
	heap   memory.Allocator
	logger zerolog.Logger

	free   freeLists
	pool   poolRegion
	chunks chunkRegistry
	stats  counters
}

// NewSmallAllocator creates an allocator with empty free lists and an empty pool.
// If heap is nil, memory.DefaultAllocator is used.
func NewSmallAllocator(heap memory.Allocator, logger zerolog.Logger) *SmallAllocator {
	if heap == nil {
		heap = memory.DefaultAllocator
	}
	return &SmallAllocator{
		heap:   heap,
		logger: logger,
		pool:   emptyPool(),
	}
}

// Allocate returns a slice of len size. Small requests get a block of
// cap RoundUp(size) whose first byte is Alignment-aligned. Returns nil for
// size <= 0, or when the heap fails to supply memory.
func (a *SmallAllocator) Allocate(size int) []byte {
	if size <= 0 {
		return nil
	}
	if size > MaxSmallSize {
		a.stats.large++
		allocLarge.Inc()
		return a.heap.Allocate(size)
	}

	rounded := RoundUp(size)
	class := ClassIndex(size)

	var ref blockRef
	switch {
	case a.free.heads[class] != nilRef:
		ref = a.pop(class)
		a.stats.fromFreelist++
		allocFreelist.Inc()
	case a.pool.remaining() >= rounded:
		ref = a.carve(rounded, class)
		a.stats.fromPool++
		allocPool.Inc()
	default:
		ref = a.refill(rounded, class)
		if ref == nilRef {
			return nil
		}
		a.stats.fromRefill++
		allocRefill.Inc()
	}

	return a.chunks.block(ref, rounded)[:size]
}

// Deallocate returns b, obtained from Allocate(size), to the allocator.
// size must be the value passed to Allocate; a mismatched size files the block
// under the wrong class and is not detected.
//
// The first word of a small block is overwritten. Small blocks that were not
// carved by this allocator are adopted as new chunks when they have room for
// a block of their class. Misaligned blocks, blocks too short for their class
// and blocks that would overrun the chunk they start in are dropped.
func (a *SmallAllocator) Deallocate(b []byte, size int) {
	if size <= 0 {
		return
	}
	if size > MaxSmallSize {
		a.stats.largeFrees++
		freeLarge.Inc()
		a.heap.Free(b)
		return
	}

	if addressOf(b)%Alignment != 0 {
		a.dropped(size)
		return
	}
	rounded := RoundUp(size)
	ref, ok := a.chunks.lookup(b)
	if ok && !a.chunks.fits(ref, rounded) {
		a.dropped(size)
		return
	}
	if !ok {
		if ref, ok = a.adopt(b, rounded); !ok {
			a.dropped(size)
			return
		}
	}
	a.push(ClassIndex(size), ref)
	a.stats.smallFrees++
	freeFreelist.Inc()
}

func (a *SmallAllocator) dropped(size int) {
	a.stats.dropped++
	freeDropped.Inc()
	a.logger.Debug().Int("size", size).Msg("dropped unusable block")
}

func (a *SmallAllocator) adopt(b []byte, rounded int) (blockRef, bool) {
	if cap(b) < rounded {
		return nilRef, false
	}
	idx := a.chunks.add(b[:rounded:rounded])
	a.stats.adopted++
	freeAdopted.Inc()
	return makeRef(idx, 0), true
}

// Reallocate resizes b to size bytes. Blocks that stay within the same size
// class are resliced in place.
func (a *SmallAllocator) Reallocate(size int, b []byte) []byte {
	if size == len(b) {
		return b
	}
	if IsSmall(size) && IsSmall(len(b)) && ClassIndex(size) == ClassIndex(len(b)) {
		return b[:size]
	}
	newBuf := a.Allocate(size)
	if newBuf == nil && size > 0 {
		// b is still owned by the caller
		return nil
	}
	copy(newBuf, b)
	a.Deallocate(b, len(b))
	return newBuf
}

// Free returns b to the allocator using len(b) as its size.
func (a *SmallAllocator) Free(b []byte) {
	a.Deallocate(b, len(b))
}

var _ memory.Allocator = (*SmallAllocator)(nil)
