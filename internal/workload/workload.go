package workload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	aerrors "github.com/23skdu/tinyalloc/internal/errors"
	"github.com/23skdu/tinyalloc/internal/limiter"
	"github.com/23skdu/tinyalloc/internal/memory"
	"github.com/23skdu/tinyalloc/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// Allocator is the facade a workload drives.
type Allocator interface {
	Allocate(size int) []byte
	Deallocate(b []byte, size int)
}

type OpKind uint8

const (
	OpAlloc OpKind = iota
	OpFree
)

func (k OpKind) String() string {
	if k == OpFree {
		return "free"
	}
	return "alloc"
}

// Op is one step of a workload. Slot names the live block an OpFree releases;
// for OpAlloc it is the slot the new block occupies.
type Op struct {
	Kind OpKind
	Size int
	Slot int
}

// Spec describes a generated workload.
type Spec struct {
	Seed      uint64
	Ops       int
	MinSize   int
	MaxSize   int
	FreeRatio float64
	// Rate limits operations per second per worker; 0 disables pacing.
	Rate float64
}

// DefaultSpec returns a mixed small/large churn workload.
func DefaultSpec() Spec {
	return Spec{
		Seed:      1,
		Ops:       100_000,
		MinSize:   1,
		MaxSize:   256,
		FreeRatio: 0.5,
	}
}

// Validate reports the first invalid field of s.
func (s Spec) Validate() error {
	switch {
	case s.Ops <= 0:
		return aerrors.NewValidationError("workload_spec", "ops must be positive")
	case s.MinSize <= 0:
		return aerrors.NewValidationError("workload_spec", "min size must be positive")
	case s.MaxSize < s.MinSize:
		return aerrors.NewValidationError("workload_spec", "max size must be >= min size")
	case s.FreeRatio < 0 || s.FreeRatio >= 1:
		return aerrors.NewValidationError("workload_spec", "free ratio must be in [0, 1)")
	case s.Rate < 0:
		return aerrors.NewValidationError("workload_spec", "rate must not be negative")
	}
	return nil
}

// Generate expands s into a deterministic op sequence. Frees only name slots
// holding a live block; every block still live at the end is freed by Run.
func Generate(s Spec) []Op {
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9E3779B97F4A7C15))
	ops := make([]Op, 0, s.Ops)
	live := make([]int, 0, 64)
	next := 0

	for len(ops) < s.Ops {
		if len(live) > 0 && rng.Float64() < s.FreeRatio {
			i := rng.IntN(len(live))
			ops = append(ops, Op{Kind: OpFree, Slot: live[i]})
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		size := s.MinSize + rng.IntN(s.MaxSize-s.MinSize+1)
		ops = append(ops, Op{Kind: OpAlloc, Size: size, Slot: next})
		live = append(live, next)
		next++
	}
	return ops
}

// Result summarises a run.
type Result struct {
	Workers   int
	Ops       int64
	Allocs    int64
	Frees     int64
	Exhausted int64
	Bytes     int64
	Duration  time.Duration
}

// OpsPerSecond is the aggregate throughput of the run.
func (r Result) OpsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Duration.Seconds()
}

func (r *Result) add(o Result) {
	r.Ops += o.Ops
	r.Allocs += o.Allocs
	r.Frees += o.Frees
	r.Exhausted += o.Exhausted
	r.Bytes += o.Bytes
}

// Run executes s on each allocator in allocs concurrently, one worker per
// entry; pass the same SynchronizedAllocator several times to share it.
// Worker i runs the sequence generated from Seed+i. Every block is stamped on
// allocation and verified before it is freed. A nil block counts as Exhausted;
// a run in which no allocation succeeded at all is a resource error.
func Run(ctx context.Context, s Spec, allocs ...Allocator) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	if len(allocs) == 0 {
		return Result{}, aerrors.NewValidationError("workload_run", "no allocators")
	}

	start := time.Now()
	results := make([]Result, len(allocs))
	g, ctx := errgroup.WithContext(ctx)
	for i, alloc := range allocs {
		spec := s
		spec.Seed += uint64(i)
		g.Go(func() error {
			r, err := runWorker(ctx, spec, alloc)
			results[i] = r
			if err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}
			return nil
		})
	}
	err := g.Wait()

	total := Result{Workers: len(allocs), Duration: time.Since(start)}
	for _, r := range results {
		total.add(r)
	}
	metrics.WorkloadDurationSeconds.Observe(total.Duration.Seconds())
	if err == nil && total.Allocs == 0 && total.Exhausted > 0 {
		err = aerrors.NewResourceError("workload_run", "heap exhausted on every allocation").
			WithContext("exhausted", total.Exhausted)
	}
	return total, err
}

type liveBlock struct {
	buf   []byte
	size  int
	stamp byte
}

func runWorker(ctx context.Context, s Spec, alloc Allocator) (Result, error) {
	pacer := limiter.NewRateLimiter(limiter.Config{RPS: s.Rate})
	allocOps := metrics.WorkloadOpsTotal.WithLabelValues(OpAlloc.String())
	freeOps := metrics.WorkloadOpsTotal.WithLabelValues(OpFree.String())

	var res Result
	live := make(map[int]liveBlock)
	defer func() {
		for _, blk := range live {
			alloc.Deallocate(blk.buf, blk.size)
		}
	}()

	for n, op := range Generate(s) {
		if pacer.Enabled() {
			if err := pacer.Wait(ctx); err != nil {
				return res, aerrors.WrapCancelledError(err, "workload_run", "pacing interrupted")
			}
		} else if n&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return res, aerrors.WrapCancelledError(err, "workload_run", "run cancelled")
			}
		}
		res.Ops++

		switch op.Kind {
		case OpAlloc:
			allocOps.Inc()
			buf := alloc.Allocate(op.Size)
			if buf == nil {
				res.Exhausted++
				continue
			}
			if err := checkBlock(buf, op.Size); err != nil {
				return res, err
			}
			stamp := byte(op.Slot) | 1
			for i := range buf {
				buf[i] = stamp
			}
			live[op.Slot] = liveBlock{buf: buf, size: op.Size, stamp: stamp}
			res.Allocs++
			res.Bytes += int64(op.Size)
		case OpFree:
			freeOps.Inc()
			blk, ok := live[op.Slot]
			if !ok {
				// its allocation hit an exhausted heap
				continue
			}
			if err := verifyStamp(blk); err != nil {
				return res, err
			}
			delete(live, op.Slot)
			alloc.Deallocate(blk.buf, blk.size)
			res.Frees++
		}
	}
	return res, nil
}

func checkBlock(buf []byte, size int) error {
	if len(buf) != size {
		return aerrors.NewValidationError("workload_alloc", "short block").
			WithContext("size", size).
			WithContext("len", len(buf))
	}
	if memory.IsSmall(size) && uintptrOf(buf)%memory.Alignment != 0 {
		return aerrors.NewValidationError("workload_alloc", "misaligned block").
			WithContext("size", size)
	}
	return nil
}

func verifyStamp(blk liveBlock) error {
	for i, v := range blk.buf {
		if v != blk.stamp {
			return aerrors.NewValidationError("workload_free", "block contents corrupted").
				WithContext("size", blk.size).
				WithContext("offset", i)
		}
	}
	return nil
}
