package memory

import "strconv"

const (
	// Alignment is the granularity and minimum alignment of every small block.
	Alignment = 8
	// MaxSmallSize is the largest request served from the size-class lists.
	// Anything larger goes straight to the heap.
	MaxSmallSize = 128
	// NumClasses is the number of size classes: 8, 16, ..., 128.
	NumClasses = MaxSmallSize / Alignment
	// CarveBatch caps how many blocks a single carve links into a free list.
	CarveBatch = 20
	// RefillFactor is the multiple of the rounded request acquired from the heap on refill.
	RefillFactor = 40
)

// classLabels holds the metric label (block size in bytes) for each class.
var classLabels = func() [NumClasses]string {
	var labels [NumClasses]string
	for i := range labels {
		labels[i] = strconv.Itoa(ClassSize(i))
	}
	return labels
}()

// RoundUp rounds size up to the next multiple of Alignment.
func RoundUp(size int) int {
	return (size + Alignment - 1) &^ (Alignment - 1)
}

// ClassIndex returns the size class serving a request of size bytes.
// Only meaningful for 1 <= size <= MaxSmallSize.
func ClassIndex(size int) int {
	return RoundUp(size)/Alignment - 1
}

// ClassSize returns the block size in bytes of class.
func ClassSize(class int) int {
	return (class + 1) * Alignment
}

// ClassLabel returns the metric label for class.
func ClassLabel(class int) string {
	return classLabels[class]
}

// IsSmall reports whether a request of size bytes is pool-served.
func IsSmall(size int) bool {
	return size > 0 && size <= MaxSmallSize
}
