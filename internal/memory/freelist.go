package memory

import "encoding/binary"

// linkSize is the number of leading bytes of a free block used as its link.
const linkSize = 8

// freeLists holds one LIFO chain per size class. The chain runs through the
// first word of each free block; nothing else is allocated for bookkeeping.
type freeLists struct {
	heads [NumClasses]blockRef
	lens  [NumClasses]int
}

func readLink(b []byte) blockRef {
	return blockRef(binary.LittleEndian.Uint64(b))
}

func writeLink(b []byte, next blockRef) {
	binary.LittleEndian.PutUint64(b, uint64(next))
}

// push puts ref at the head of class's list, overwriting its first word.
func (a *SmallAllocator) push(class int, ref blockRef) {
	writeLink(a.chunks.block(ref, linkSize), a.free.heads[class])
	a.free.heads[class] = ref
	a.free.lens[class]++
}

// pop removes the head of class's list. Returns nilRef if the list is empty.
func (a *SmallAllocator) pop(class int) blockRef {
	ref := a.free.heads[class]
	if ref == nilRef {
		return nilRef
	}
	a.free.heads[class] = readLink(a.chunks.block(ref, linkSize))
	a.free.lens[class]--
	return ref
}
