package memory

// poolRegion is the not-yet-carved span [start, end) of one chunk.
type poolRegion struct {
	chunk int
	start int
	end   int
}

func emptyPool() poolRegion {
	return poolRegion{chunk: noChunk}
}

func (p poolRegion) remaining() int {
	return p.end - p.start
}

// carve splits up to CarveBatch blocks of size bytes off the front of the pool,
// chains them into class's free list and pops the first one for the caller.
// The pool must hold at least size bytes and class's list must be empty.
func (a *SmallAllocator) carve(size, class int) blockRef {
	n := a.pool.remaining() / size
	if n > CarveBatch {
		n = CarveBatch
	}

	chunk := a.chunks.chunks[a.pool.chunk]
	off := a.pool.start
	for i := 1; i < n; i++ {
		next := off + size
		writeLink(chunk[off:], makeRef(a.pool.chunk, next))
		off = next
	}
	writeLink(chunk[off:], nilRef)

	a.free.heads[class] = makeRef(a.pool.chunk, a.pool.start)
	a.free.lens[class] = n
	a.pool.start += n * size
	a.stats.carves++

	return a.pop(class)
}
