package memory

import "github.com/23skdu/tinyalloc/internal/metrics"

// refill replaces the pool with a fresh chunk of RefillFactor*size bytes and
// carves from it. Leftover pool bytes are first pushed, as a single block,
// onto the list of the class matching their byte count, which need not be
// the class being served.
//
// Returns nilRef when the heap cannot supply the chunk.
func (a *SmallAllocator) refill(size, class int) blockRef {
	if left := a.pool.remaining(); left > 0 {
		a.push(ClassIndex(left), makeRef(a.pool.chunk, a.pool.start))
		a.stats.salvagedBytes += int64(left)
		metrics.SalvagedBytesTotal.Add(float64(left))
	}
	a.pool = emptyPool()

	want := RefillFactor * size
	chunk := a.heap.Allocate(want)
	if len(chunk) < want {
		if chunk != nil {
			a.heap.Free(chunk)
		}
		a.stats.refillFailures++
		metrics.RefillFailuresTotal.Inc()
		a.logger.Warn().
			Int("class", class).
			Int("chunk_bytes", want).
			Msg("heap could not supply refill chunk")
		return nilRef
	}

	idx := a.chunks.add(chunk[:want:want])
	a.pool = poolRegion{chunk: idx, start: 0, end: want}
	metrics.RefillBytesTotal.Add(float64(want))
	a.logger.Debug().
		Int("class", class).
		Int("chunk_bytes", want).
		Int("chunks", len(a.chunks.chunks)).
		Msg("pool refilled")

	return a.carve(size, class)
}
