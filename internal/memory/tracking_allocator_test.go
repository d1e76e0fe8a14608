package memory

import (
	"testing"

	"github.com/23skdu/tinyalloc/internal/metrics"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingAllocator_Counts(t *testing.T) {
	heap := NewTrackingAllocator(memory.NewGoAllocator())
	before := testutil.ToFloat64(metrics.HeapBytesAllocatedTotal)

	buf := heap.Allocate(300)
	require.Len(t, buf, 300)
	assert.Equal(t, int64(1), heap.Allocations.Load())
	assert.Equal(t, int64(300), heap.InUse())
	assert.Equal(t, before+300, testutil.ToFloat64(metrics.HeapBytesAllocatedTotal))

	heap.Free(buf)
	assert.Equal(t, int64(1), heap.Frees.Load())
	assert.Zero(t, heap.InUse())
}

func TestTrackingAllocator_UnderSmallAllocator(t *testing.T) {
	heap := NewTrackingAllocator(nil)
	alloc := NewSmallAllocator(heap, zerolog.Nop())

	for i := 0; i < 20; i++ {
		_ = alloc.Allocate(10)
	}
	assert.Equal(t, int64(1), heap.Allocations.Load(), "twenty 16-byte blocks fit one carve")

	_ = alloc.Allocate(10)
	assert.Equal(t, int64(1), heap.Allocations.Load(), "pool still holds 320 bytes")

	large := alloc.Allocate(4096)
	assert.Equal(t, int64(2), heap.Allocations.Load())
	alloc.Deallocate(large, 4096)
	assert.Equal(t, int64(1), heap.Frees.Load())
	assert.Equal(t, int64(640), heap.InUse())
}

func TestLimitedAllocator_Budget(t *testing.T) {
	heap := NewLimitedAllocator(memory.NewGoAllocator(), 1000)

	a := heap.Allocate(600)
	require.Len(t, a, 600)
	assert.Nil(t, heap.Allocate(600))
	assert.Equal(t, int64(1), heap.Rejects())

	b := heap.Allocate(400)
	require.Len(t, b, 400)
	assert.Equal(t, int64(1000), heap.InUse())

	heap.Free(a)
	assert.Equal(t, int64(400), heap.InUse())

	assert.Nil(t, heap.Reallocate(1200, b), "growth past the budget is refused")
	b = heap.Reallocate(100, b)
	require.Len(t, b, 100)
	assert.Equal(t, int64(100), heap.InUse())
}

func TestLimitedAllocator_ExhaustsSmallAllocator(t *testing.T) {
	heap := NewLimitedAllocator(nil, 640)
	alloc := NewSmallAllocator(heap, zerolog.Nop())

	var got int
	for i := 0; i < 100; i++ {
		if alloc.Allocate(16) == nil {
			break
		}
		got++
	}
	assert.Equal(t, 40, got, "one 640 byte chunk holds forty 16-byte blocks")
	assert.Equal(t, int64(1), alloc.Stats().RefillFailures)
}

func TestLimitedAllocator_BaseFailureReleasesBudget(t *testing.T) {
	heap := NewLimitedAllocator(failingAllocator{}, 1000)

	assert.Nil(t, heap.Allocate(600))
	assert.Zero(t, heap.InUse())
	assert.Zero(t, heap.Rejects())

	assert.Nil(t, heap.Reallocate(800, make([]byte, 100)))
	assert.Zero(t, heap.InUse())
}

func TestTrackingAllocator_IgnoresFailures(t *testing.T) {
	heap := NewTrackingAllocator(failingAllocator{})

	assert.Nil(t, heap.Allocate(64))
	assert.Nil(t, heap.Reallocate(256, make([]byte, 64)))
	assert.Zero(t, heap.Allocations.Load())
	assert.Zero(t, heap.BytesAllocated.Load())
	assert.Zero(t, heap.BytesFreed.Load())
	assert.Zero(t, heap.InUse())
}

// failingAllocator is a heap that is always out of memory.
type failingAllocator struct{}

func (failingAllocator) Allocate(int) []byte           { return nil }
func (failingAllocator) Reallocate(int, []byte) []byte { return nil }
func (failingAllocator) Free([]byte)                   {}
