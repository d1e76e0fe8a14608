package main

import (
	"errors"
	"flag"
	"io"

	aerrors "github.com/23skdu/tinyalloc/internal/errors"
	"github.com/23skdu/tinyalloc/internal/workload"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable, e.g. TINYALLOC_OPS.
const EnvPrefix = "TINYALLOC"

// Run modes
const (
	ModeChurn    = "churn"
	ModeScenario = "scenario"
	ModeArrow    = "arrow"
)

// Config is the allocbench configuration. Environment variables are read
// first; explicitly set flags override them.
type Config struct {
	Mode      string  `envconfig:"MODE" default:"churn"`
	Ops       int     `envconfig:"OPS" default:"100000"`
	Seed      uint64  `envconfig:"SEED" default:"1"`
	MinSize   int     `envconfig:"MIN_SIZE" default:"1"`
	MaxSize   int     `envconfig:"MAX_SIZE" default:"256"`
	FreeRatio float64 `envconfig:"FREE_RATIO" default:"0.5"`
	Workers   int     `envconfig:"WORKERS" default:"1"`
	Shared    bool    `envconfig:"SHARED" default:"false"`
	Rate      float64 `envconfig:"RATE" default:"0"`       // ops/s per worker, 0 disables pacing
	HeapLimit int64   `envconfig:"HEAP_LIMIT" default:"0"` // bytes, 0 means unlimited
	ArrowRows int     `envconfig:"ARROW_ROWS" default:"10000"`

	MetricsAddr string `envconfig:"METRICS_ADDR"` // empty disables the endpoint
	ReportPath  string `envconfig:"REPORT_PATH"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

// Config validation errors
var (
	ErrInvalidMode      = errors.New("mode must be churn, scenario, or arrow")
	ErrInvalidOps       = errors.New("ops must be positive")
	ErrInvalidSizeRange = errors.New("min_size must be positive and not above max_size")
	ErrInvalidFreeRatio = errors.New("free_ratio must be in [0, 1)")
	ErrInvalidWorkers   = errors.New("workers must be positive")
	ErrInvalidRate      = errors.New("rate must not be negative")
	ErrInvalidHeapLimit = errors.New("heap_limit must not be negative")
	ErrInvalidArrowRows = errors.New("arrow_rows must be positive")
	ErrInvalidLogFormat = errors.New("log_format must be 'json' or 'console'")
	ErrInvalidLogLevel  = errors.New("log_level must be debug, info, warn, or error")
)

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Mode:      ModeChurn,
		Ops:       100000,
		Seed:      1,
		MinSize:   1,
		MaxSize:   256,
		FreeRatio: 0.5,
		Workers:   1,
		ArrowRows: 10000,
		LogFormat: "json",
		LogLevel:  "info",
	}
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	switch cfg.Mode {
	case ModeChurn, ModeScenario, ModeArrow:
	default:
		return ErrInvalidMode
	}
	if cfg.Ops <= 0 {
		return ErrInvalidOps
	}
	if cfg.MinSize <= 0 || cfg.MaxSize < cfg.MinSize {
		return ErrInvalidSizeRange
	}
	if cfg.FreeRatio < 0 || cfg.FreeRatio >= 1 {
		return ErrInvalidFreeRatio
	}
	if cfg.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if cfg.Rate < 0 {
		return ErrInvalidRate
	}
	if cfg.HeapLimit < 0 {
		return ErrInvalidHeapLimit
	}
	if cfg.ArrowRows <= 0 {
		return ErrInvalidArrowRows
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	return nil
}

// WorkloadSpec converts the churn settings into a workload.Spec
func (c *Config) WorkloadSpec() workload.Spec {
	return workload.Spec{
		Seed:      c.Seed,
		Ops:       c.Ops,
		MinSize:   c.MinSize,
		MaxSize:   c.MaxSize,
		FreeRatio: c.FreeRatio,
		Rate:      c.Rate,
	}
}

func bindFlags(fs *flag.FlagSet, cfg *Config) *string {
	envFile := fs.String("env-file", "", "Optional .env file loaded before reading the environment")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Run mode: churn, scenario, or arrow")
	fs.IntVar(&cfg.Ops, "ops", cfg.Ops, "Operations per worker")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Workload seed")
	fs.IntVar(&cfg.MinSize, "min-size", cfg.MinSize, "Smallest request size in bytes")
	fs.IntVar(&cfg.MaxSize, "max-size", cfg.MaxSize, "Largest request size in bytes")
	fs.Float64Var(&cfg.FreeRatio, "free-ratio", cfg.FreeRatio, "Probability that an op frees a live block")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent workers")
	fs.BoolVar(&cfg.Shared, "shared", cfg.Shared, "Share one synchronized allocator between workers")
	fs.Float64Var(&cfg.Rate, "rate", cfg.Rate, "Ops per second per worker, 0 disables pacing")
	fs.Int64Var(&cfg.HeapLimit, "heap-limit", cfg.HeapLimit, "Heap budget in bytes, 0 means unlimited")
	fs.IntVar(&cfg.ArrowRows, "arrow-rows", cfg.ArrowRows, "Rows built in arrow mode")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Address for the Prometheus endpoint, empty disables it")
	fs.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "Parquet report path, empty disables the report")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or console")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, or error")
	return envFile
}

// LoadConfig reads the optional env file named by -env-file, then the
// TINYALLOC_* environment, then applies the flags set in args.
func LoadConfig(args []string) (Config, error) {
	probe := DefaultConfig()
	fs := flag.NewFlagSet("allocbench", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	envFile := bindFlags(fs, &probe)
	if err := fs.Parse(args); err != nil {
		return Config{}, aerrors.WrapConfigurationError(err, "load_config", "parse flags")
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return Config{}, aerrors.WrapConfigurationError(err, "load_config", "load env file").
				WithContext("path", *envFile)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, aerrors.WrapConfigurationError(err, "load_config", "process environment")
	}

	// second pass binds to the env-derived values so only explicit flags win
	fs = flag.NewFlagSet("allocbench", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	bindFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, aerrors.WrapConfigurationError(err, "load_config", "parse flags")
	}

	if err := ValidateConfig(&cfg); err != nil {
		return Config{}, aerrors.WrapConfigurationError(err, "load_config", "invalid configuration")
	}
	return cfg, nil
}
