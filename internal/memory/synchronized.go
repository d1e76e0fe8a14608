package memory

import (
	"sync"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// SynchronizedAllocator serializes every call into one SmallAllocator.
type SynchronizedAllocator struct {
	mu sync.Mutex
	a  *SmallAllocator
}

func NewSynchronizedAllocator(a *SmallAllocator) *SynchronizedAllocator {
	return &SynchronizedAllocator{a: a}
}

func (s *SynchronizedAllocator) Allocate(size int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(size)
}

func (s *SynchronizedAllocator) Deallocate(b []byte, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Deallocate(b, size)
}

func (s *SynchronizedAllocator) Reallocate(size int, b []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Reallocate(size, b)
}

func (s *SynchronizedAllocator) Free(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Free(b)
}

func (s *SynchronizedAllocator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Stats()
}

var _ memory.Allocator = (*SynchronizedAllocator)(nil)
