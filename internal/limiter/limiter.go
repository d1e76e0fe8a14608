package limiter

import (
	"context"

	"github.com/23skdu/tinyalloc/internal/metrics"
	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	RPS   float64 // 0 means disabled
	Burst int     // 0 means 1
}

// RateLimiter paces a workload with a token bucket
type RateLimiter struct {
	limiter *rate.Limiter
	enabled bool
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg Config) *RateLimiter {
	if cfg.RPS <= 0 {
		return &RateLimiter{enabled: false}
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), burst),
		enabled: true,
	}
}

// Enabled reports whether Wait paces at all
func (l *RateLimiter) Enabled() bool {
	return l.enabled
}

// Wait blocks until the next operation may run or ctx is done.
// A disabled limiter returns immediately.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if !l.enabled {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		metrics.PacerWaitsTotal.WithLabelValues("interrupted").Inc()
		return err
	}
	metrics.PacerWaitsTotal.WithLabelValues("allowed").Inc()
	return nil
}
