package memory

import (
	"sort"
	"unsafe"
)

// blockRef names a block inside the chunk registry.
// Layout = (chunkIndex+1) << 32 | offset, so the zero value terminates a list.
type blockRef uint64

const nilRef blockRef = 0

// noChunk marks a pool that is not backed by any chunk yet.
const noChunk = -1

func makeRef(chunk, offset int) blockRef {
	return blockRef(uint64(chunk+1)<<32 | uint64(uint32(offset)))
}

func (r blockRef) chunk() int {
	return int(r>>32) - 1
}

func (r blockRef) offset() int {
	return int(r & 0xFFFFFFFF)
}

// chunkSpan locates a chunk in the address space.
type chunkSpan struct {
	base  uintptr
	size  int
	index int
}

// chunkRegistry retains every chunk the allocator has ever owned.
// Chunks are never released, so a blockRef stays valid for the allocator's lifetime.
type chunkRegistry struct {
	chunks [][]byte
	spans  []chunkSpan // sorted by base
	bytes  int64
}

// add retains b and returns its chunk index.
func (r *chunkRegistry) add(b []byte) int {
	idx := len(r.chunks)
	r.chunks = append(r.chunks, b)
	r.bytes += int64(len(b))

	span := chunkSpan{base: addressOf(b), size: len(b), index: idx}
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].base > span.base })
	r.spans = append(r.spans, chunkSpan{})
	copy(r.spans[i+1:], r.spans[i:])
	r.spans[i] = span
	return idx
}

// lookup maps the first byte of b back to a block reference.
func (r *chunkRegistry) lookup(b []byte) (blockRef, bool) {
	addr := addressOf(b)
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].base > addr }) - 1
	if i < 0 {
		return nilRef, false
	}
	span := r.spans[i]
	off := addr - span.base
	if off >= uintptr(span.size) {
		return nilRef, false
	}
	return makeRef(span.index, int(off)), true
}

// fits reports whether a block of size bytes at ref lies inside its chunk.
func (r *chunkRegistry) fits(ref blockRef, size int) bool {
	return ref.offset()+size <= len(r.chunks[ref.chunk()])
}

// block returns the size bytes named by ref, capped at size.
func (r *chunkRegistry) block(ref blockRef, size int) []byte {
	c := r.chunks[ref.chunk()]
	off := ref.offset()
	return c[off : off+size : off+size]
}

func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}
