package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/23skdu/tinyalloc/internal/logging"
	"github.com/23skdu/tinyalloc/internal/memory"
	"github.com/23skdu/tinyalloc/internal/report"
	"github.com/23skdu/tinyalloc/internal/workload"
	arrowmem "github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "allocbench:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cfg, err := LoadConfig(args)
	if errors.Is(err, flag.ErrHelp) {
		printUsage(out)
		return nil
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: out})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	heap := newHeap(&cfg)
	logger.Info().
		Str("mode", cfg.Mode).
		Int64("heap_limit", cfg.HeapLimit).
		Int("workers", cfg.Workers).
		Msg("Starting allocbench")

	var smalls []*memory.SmallAllocator
	switch cfg.Mode {
	case ModeScenario:
		small := memory.NewSmallAllocator(heap, logger)
		smalls = append(smalls, small)
		rep := workload.Scenario(small)
		logger.Info().
			Int("rounded_size", rep.RoundedSize).
			Int("class", rep.Class).
			Int64("chunk_bytes", rep.ChunkBytes).
			Int("pool_after_carve", rep.PoolAfterCarve).
			Int("free_after_carve", rep.FreeAfterCarve).
			Int("free_after_free", rep.FreeAfterFree).
			Bool("reused", rep.Reused).
			Bool("pool_untouched", rep.PoolUntouched).
			Msg("Scenario complete")

	case ModeArrow:
		small := memory.NewSmallAllocator(heap, logger)
		smalls = append(smalls, small)
		start := time.Now()
		if err := workload.BuildArrow(small, cfg.ArrowRows); err != nil {
			return err
		}
		logger.Info().
			Int("rows", cfg.ArrowRows).
			Dur("duration", time.Since(start)).
			Msg("Arrow build complete")

	default:
		var allocs []workload.Allocator
		if cfg.Shared {
			small := memory.NewSmallAllocator(heap, logger)
			smalls = append(smalls, small)
			shared := memory.NewSynchronizedAllocator(small)
			for i := 0; i < cfg.Workers; i++ {
				allocs = append(allocs, shared)
			}
		} else {
			for i := 0; i < cfg.Workers; i++ {
				small := memory.NewSmallAllocator(heap, logger.With().Int("worker", i).Logger())
				smalls = append(smalls, small)
				allocs = append(allocs, small)
			}
		}

		res, err := workload.Run(ctx, cfg.WorkloadSpec(), allocs...)
		if err != nil {
			return err
		}
		logger.Info().
			Int64("ops", res.Ops).
			Int64("allocs", res.Allocs).
			Int64("frees", res.Frees).
			Int64("exhausted", res.Exhausted).
			Int64("bytes", res.Bytes).
			Float64("ops_per_sec", res.OpsPerSecond()).
			Dur("duration", res.Duration).
			Msg("Churn complete")
	}

	var total memory.Stats
	var rows []report.Row
	for i, small := range smalls {
		stats := small.Stats()
		total = total.Add(stats)
		rows = append(rows, report.FromStats(cfg.Mode+"-"+strconv.Itoa(i), stats)...)
	}
	total.Publish()

	logger.Info().
		Int("chunks", total.Chunks).
		Int64("chunk_bytes", total.ChunkBytes).
		Int("pool_bytes", total.PoolBytes).
		Int64("free_bytes", total.FreeBytes()).
		Int64("large", total.Large).
		Int64("refill_failures", total.RefillFailures).
		Float64("hit_ratio", total.HitRatio()).
		Int64("heap_bytes_in_use", heap.InUse()).
		Msg("Allocator summary")

	if cfg.ReportPath != "" {
		if err := report.Write(cfg.ReportPath, rows); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.ReportPath).Int("rows", len(rows)).Msg("Report written")
	}
	return nil
}

// newHeap builds the heap every SmallAllocator draws from: the Go allocator,
// optionally under a byte budget, always tracked.
func newHeap(cfg *Config) *memory.TrackingAllocator {
	var base arrowmem.Allocator = arrowmem.NewGoAllocator()
	if cfg.HeapLimit > 0 {
		base = memory.NewLimitedAllocator(base, cfg.HeapLimit)
	}
	return memory.NewTrackingAllocator(base)
}

func startMetricsServer(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info().Str("address", addr).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}

func printUsage(w io.Writer) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("allocbench", flag.ContinueOnError)
	bindFlags(fs, &cfg)
	fs.SetOutput(w)
	fmt.Fprintln(w, "Usage: allocbench [flags]")
	fs.PrintDefaults()
}
