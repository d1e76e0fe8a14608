package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Heap collaborator metrics
var (
	HeapBytesAllocatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinyalloc_heap_bytes_allocated_total",
			Help: "Total bytes allocated from the underlying heap",
		},
	)

	HeapBytesFreedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinyalloc_heap_bytes_freed_total",
			Help: "Total bytes returned to the underlying heap",
		},
	)

	HeapAllocationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tinyalloc_heap_allocations_active",
			Help: "Current number of live heap allocations",
		},
	)

	// HeapLimitRejectsTotal counts heap requests refused by a byte budget
	HeapLimitRejectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinyalloc_heap_limit_rejects_total",
			Help: "Total heap requests rejected because the byte budget was exhausted",
		},
	)
)
