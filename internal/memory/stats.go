package memory

import "github.com/23skdu/tinyalloc/internal/metrics"

// counters are plain integers: SmallAllocator is single-goroutine.
type counters struct {
	fromFreelist   int64
	fromPool       int64
	fromRefill     int64
	large          int64
	smallFrees     int64
	largeFrees     int64
	adopted        int64
	dropped        int64
	carves         int64
	salvagedBytes  int64
	refillFailures int64
}

// Stats is a point-in-time snapshot of a SmallAllocator.
type Stats struct {
	FreeBlocks [NumClasses]int
	PoolBytes  int
	Chunks     int
	ChunkBytes int64

	FromFreelist int64
	FromPool     int64
	FromRefill   int64
	Large        int64

	SmallFrees     int64
	LargeFrees     int64
	Adopted        int64
	Dropped        int64
	Carves         int64
	SalvagedBytes  int64
	RefillFailures int64
}

// Stats returns a snapshot of the allocator's lists, pool and counters.
func (a *SmallAllocator) Stats() Stats {
	return Stats{
		FreeBlocks:     a.free.lens,
		PoolBytes:      a.pool.remaining(),
		Chunks:         len(a.chunks.chunks),
		ChunkBytes:     a.chunks.bytes,
		FromFreelist:   a.stats.fromFreelist,
		FromPool:       a.stats.fromPool,
		FromRefill:     a.stats.fromRefill,
		Large:          a.stats.large,
		SmallFrees:     a.stats.smallFrees,
		LargeFrees:     a.stats.largeFrees,
		Adopted:        a.stats.adopted,
		Dropped:        a.stats.dropped,
		Carves:         a.stats.carves,
		SalvagedBytes:  a.stats.salvagedBytes,
		RefillFailures: a.stats.refillFailures,
	}
}

// SmallAllocations is the number of requests served from the pool.
func (s Stats) SmallAllocations() int64 {
	return s.FromFreelist + s.FromPool + s.FromRefill
}

// FreeBytes is the total size of all blocks sitting on free lists.
func (s Stats) FreeBytes() int64 {
	var total int64
	for class, n := range s.FreeBlocks {
		total += int64(n) * int64(ClassSize(class))
	}
	return total
}

// HitRatio is the fraction of small allocations served without carving.
func (s Stats) HitRatio() float64 {
	n := s.SmallAllocations()
	if n == 0 {
		return 0
	}
	return float64(s.FromFreelist) / float64(n)
}

// Add returns the element-wise sum of s and o, for reporting several
// allocators as one.
func (s Stats) Add(o Stats) Stats {
	for class := range s.FreeBlocks {
		s.FreeBlocks[class] += o.FreeBlocks[class]
	}
	s.PoolBytes += o.PoolBytes
	s.Chunks += o.Chunks
	s.ChunkBytes += o.ChunkBytes
	s.FromFreelist += o.FromFreelist
	s.FromPool += o.FromPool
	s.FromRefill += o.FromRefill
	s.Large += o.Large
	s.SmallFrees += o.SmallFrees
	s.LargeFrees += o.LargeFrees
	s.Adopted += o.Adopted
	s.Dropped += o.Dropped
	s.Carves += o.Carves
	s.SalvagedBytes += o.SalvagedBytes
	s.RefillFailures += o.RefillFailures
	return s
}

// Publish copies the snapshot into the allocator gauges.
func (s Stats) Publish() {
	metrics.PoolBytes.Set(float64(s.PoolBytes))
	metrics.ChunkBytes.Set(float64(s.ChunkBytes))
	for class, n := range s.FreeBlocks {
		metrics.FreeListBlocks.WithLabelValues(ClassLabel(class)).Set(float64(n))
	}
}
