package memory

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFreeList_PushPop(t *testing.T) {
	alloc := NewSmallAllocator(panicAllocator{}, zerolog.Nop())
	alloc.chunks.add(make([]byte, 256))

	assert.Equal(t, nilRef, alloc.pop(3))

	refs := []blockRef{makeRef(0, 0), makeRef(0, 32), makeRef(0, 64)}
	for _, ref := range refs {
		alloc.push(3, ref)
	}
	assert.Equal(t, 3, alloc.free.lens[3])

	assert.Equal(t, refs[2], alloc.pop(3))
	assert.Equal(t, refs[1], alloc.pop(3))
	assert.Equal(t, refs[0], alloc.pop(3))
	assert.Equal(t, nilRef, alloc.pop(3))
	assert.Zero(t, alloc.free.lens[3])
}

func TestFreeList_LinkOverwritesFirstWordOnly(t *testing.T) {
	alloc := NewSmallAllocator(panicAllocator{}, zerolog.Nop())
	chunk := make([]byte, 32)
	for i := range chunk {
		chunk[i] = 0xAA
	}
	alloc.chunks.add(chunk)

	alloc.push(ClassIndex(16), makeRef(0, 16))
	assert.Equal(t, nilRef, readLink(chunk[16:]))
	for i := 24; i < 32; i++ {
		assert.Equal(t, byte(0xAA), chunk[i], "byte %d", i)
	}

	alloc.push(ClassIndex(16), makeRef(0, 0))
	assert.Equal(t, makeRef(0, 16), readLink(chunk[0:]))
}
