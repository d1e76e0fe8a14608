package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(&cfg); err != nil {
		t.Errorf("ValidateConfig() error = %v, want nil", err)
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"mode", func(c *Config) { c.Mode = "soak" }, ErrInvalidMode},
		{"ops", func(c *Config) { c.Ops = 0 }, ErrInvalidOps},
		{"min size", func(c *Config) { c.MinSize = 0 }, ErrInvalidSizeRange},
		{"inverted range", func(c *Config) { c.MinSize, c.MaxSize = 64, 8 }, ErrInvalidSizeRange},
		{"free ratio", func(c *Config) { c.FreeRatio = 1 }, ErrInvalidFreeRatio},
		{"workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"rate", func(c *Config) { c.Rate = -5 }, ErrInvalidRate},
		{"heap limit", func(c *Config) { c.HeapLimit = -1 }, ErrInvalidHeapLimit},
		{"arrow rows", func(c *Config) { c.ArrowRows = 0 }, ErrInvalidArrowRows},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := ValidateConfig(&cfg); err != tt.want {
				t.Errorf("ValidateConfig() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadConfig() = %+v, want %+v", cfg, DefaultConfig())
	}
}

func TestLoadConfig_EnvVars(t *testing.T) {
	t.Setenv("TINYALLOC_MODE", "arrow")
	t.Setenv("TINYALLOC_OPS", "500")
	t.Setenv("TINYALLOC_SHARED", "true")
	t.Setenv("TINYALLOC_HEAP_LIMIT", "1048576")

	cfg, err := LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Mode != ModeArrow {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeArrow)
	}
	if cfg.Ops != 500 {
		t.Errorf("Ops = %d, want 500", cfg.Ops)
	}
	if !cfg.Shared {
		t.Error("Shared = false, want true")
	}
	if cfg.HeapLimit != 1048576 {
		t.Errorf("HeapLimit = %d, want 1048576", cfg.HeapLimit)
	}
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TINYALLOC_OPS", "500")
	t.Setenv("TINYALLOC_SEED", "9")

	cfg, err := LoadConfig([]string{"-ops", "700", "-max-size=64"})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Ops != 700 {
		t.Errorf("Ops = %d, want 700 from flag", cfg.Ops)
	}
	if cfg.Seed != 9 {
		t.Errorf("Seed = %d, want 9 from env", cfg.Seed)
	}
	if cfg.MaxSize != 64 {
		t.Errorf("MaxSize = %d, want 64", cfg.MaxSize)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	// register restoration, then clear so godotenv may set it
	t.Setenv("TINYALLOC_ARROW_ROWS", "")
	_ = os.Unsetenv("TINYALLOC_ARROW_ROWS")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("TINYALLOC_ARROW_ROWS=77\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig([]string{"-env-file", path})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ArrowRows != 77 {
		t.Errorf("ArrowRows = %d, want 77", cfg.ArrowRows)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := LoadConfig([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}); err == nil {
		t.Error("LoadConfig() with missing env file, want error")
	}
	if _, err := LoadConfig([]string{"-no-such-flag"}); err == nil {
		t.Error("LoadConfig() with unknown flag, want error")
	}
	if _, err := LoadConfig([]string{"-workers", "0"}); !errors.Is(err, ErrInvalidWorkers) {
		t.Errorf("LoadConfig() error = %v, want %v", err, ErrInvalidWorkers)
	}

	t.Setenv("TINYALLOC_OPS", "lots")
	if _, err := LoadConfig(nil); err == nil {
		t.Error("LoadConfig() with malformed env, want error")
	}
}

func TestWorkloadSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rate = 250
	spec := cfg.WorkloadSpec()
	if err := spec.Validate(); err != nil {
		t.Fatalf("WorkloadSpec().Validate() error = %v", err)
	}
	if spec.Ops != cfg.Ops || spec.Seed != cfg.Seed || spec.Rate != 250 {
		t.Errorf("WorkloadSpec() = %+v, does not mirror %+v", spec, cfg)
	}
}
