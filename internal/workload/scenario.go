package workload

import (
	"unsafe"

	"github.com/23skdu/tinyalloc/internal/memory"
)

// ScenarioReport records what the allocator looked like at each step of the
// canonical allocate(10) / deallocate / allocate(10) sequence.
type ScenarioReport struct {
	RoundedSize    int
	Class          int
	ChunkBytes     int64
	PoolAfterCarve int
	FreeAfterCarve int
	FreeAfterFree  int
	Reused         bool
	PoolUntouched  bool
}

// Scenario runs the canonical sequence on a fresh allocator and reports it.
func Scenario(a *memory.SmallAllocator) ScenarioReport {
	const size = 10
	class := memory.ClassIndex(size)

	first := a.Allocate(size)
	carved := a.Stats()

	a.Deallocate(first, size)
	freed := a.Stats()

	again := a.Allocate(size)
	reused := a.Stats()

	return ScenarioReport{
		RoundedSize:    memory.RoundUp(size),
		Class:          class,
		ChunkBytes:     carved.ChunkBytes,
		PoolAfterCarve: carved.PoolBytes,
		FreeAfterCarve: carved.FreeBlocks[class],
		FreeAfterFree:  freed.FreeBlocks[class],
		Reused:         first != nil && uintptrOf(first) == uintptrOf(again),
		PoolUntouched:  reused.PoolBytes == carved.PoolBytes && reused.ChunkBytes == carved.ChunkBytes,
	}
}

func uintptrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
