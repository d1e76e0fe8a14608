package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllocationsTotal counts small-allocator requests by the path that served them
	// (freelist, pool, refill, large).
	AllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinyalloc_alloc_total",
			Help: "Total allocation requests by serving path",
		},
		[]string{"path"},
	)

	// FreesTotal counts deallocations by destination (freelist, large, adopted, dropped)
	FreesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinyalloc_free_total",
			Help: "Total deallocations by destination",
		},
		[]string{"path"},
	)

	// RefillBytesTotal tracks bytes acquired from the heap to replenish pools
	RefillBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinyalloc_refill_bytes_total",
			Help: "Total bytes acquired from the heap by pool refills",
		},
	)

	RefillFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinyalloc_refill_failures_total",
			Help: "Total refills the heap could not satisfy",
		},
	)

	// SalvagedBytesTotal tracks pool leftovers moved onto free lists during refill
	SalvagedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tinyalloc_salvaged_bytes_total",
			Help: "Total leftover pool bytes pushed onto free lists before a refill",
		},
	)

	PoolBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tinyalloc_pool_bytes",
			Help: "Bytes remaining in the pool region at the last snapshot",
		},
	)

	ChunkBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tinyalloc_chunk_bytes",
			Help: "Bytes held in chunks acquired by the allocator at the last snapshot",
		},
	)

	// FreeListBlocks tracks free list length per size class (block size in bytes)
	FreeListBlocks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tinyalloc_freelist_blocks",
			Help: "Blocks on each size-class free list at the last snapshot",
		},
		[]string{"class"},
	)
)

// =============================================================================
// Workload Metrics
// =============================================================================

var (
	WorkloadOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinyalloc_workload_ops_total",
			Help: "Total workload operations executed by kind",
		},
		[]string{"op"},
	)

	// PacerWaitsTotal counts rate limiter waits by result (allowed, interrupted)
	PacerWaitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tinyalloc_workload_pacer_waits_total",
			Help: "Total workload pacer waits by result",
		},
		[]string{"result"},
	)

	WorkloadDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tinyalloc_workload_duration_seconds",
			Help:    "Wall time of complete workload runs",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
)
