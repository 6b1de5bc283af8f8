package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "unknown race code",
			mutate: func(cfg *Config) {
				cfg.Code = "trotting"
			},
			wantErr: "race code",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "block status outside 4xx",
			mutate: func(cfg *Config) {
				cfg.BlockStatus = 503
			},
			wantErr: "block status",
		},
		{
			name: "zero block attempts",
			mutate: func(cfg *Config) {
				cfg.BlockAttempts = 0
			},
			wantErr: "block attempts",
		},
		{
			name: "backoff cap below base",
			mutate: func(cfg *Config) {
				cfg.BackoffMax = time.Second
			},
			wantErr: "backoff max",
		},
		{
			name: "jitter out of range",
			mutate: func(cfg *Config) {
				cfg.BackoffJitter = 1.5
			},
			wantErr: "jitter",
		},
		{
			name: "unsupported format",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "gzip sqlite",
			mutate: func(cfg *Config) {
				cfg.OutputFormat = "sqlite"
				cfg.Gzip = true
			},
			wantErr: "gzip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestSidecarPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputFile = "data/dates/gb/2025_11_17.csv"
	cfg.Gzip = true

	if got := cfg.OutputPath(); got != "data/dates/gb/2025_11_17.csv.gz" {
		t.Fatalf("output path = %q", got)
	}
	if got := cfg.MetadataPath(); got != "data/dates/gb/2025_11_17_metadata.json" {
		t.Fatalf("metadata path = %q", got)
	}
	if got := cfg.FailureLogPath(); got != "data/dates/gb/2025_11_17_failures.json" {
		t.Fatalf("failure log path = %q", got)
	}
	if got := cfg.FileName(); got != "2025_11_17" {
		t.Fatalf("file name = %q", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("RACESCRAPE_DELAY", "250ms")
	t.Setenv("RACESCRAPE_BLOCK_ATTEMPTS", "3")
	t.Setenv("RACESCRAPE_OUTPUT", "  out/x.csv ")

	cfg := DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.Delay != 250*time.Millisecond {
		t.Fatalf("delay = %v", cfg.Delay)
	}
	if cfg.BlockAttempts != 3 {
		t.Fatalf("block attempts = %d", cfg.BlockAttempts)
	}
	if cfg.OutputFile != "out/x.csv" {
		t.Fatalf("output = %q", cfg.OutputFile)
	}
}

func TestApplyEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("RACESCRAPE_TIMEOUT", "soon")
	if err := DefaultConfig().ApplyEnv(); err == nil || !strings.Contains(err.Error(), "RACESCRAPE_TIMEOUT") {
		t.Fatalf("expected timeout parse error, got %v", err)
	}
}

func TestLoadSettingsMergesLocalOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "settings.json5")
	local := filepath.Join(dir, "settings.local.json5")

	writeFile(t, base, `{
		// defaults shared by the team
		delay: "2s",
		gzip_output: false,
		fields: { comment: false, ids: true },
	}`)
	writeFile(t, local, `{ gzip_output: true, fields: { comment: true } }`)

	settings, err := LoadSettings(base)
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Fields.Comment = false
	if err := settings.Apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Delay != 2*time.Second {
		t.Fatalf("delay = %v, want 2s", cfg.Delay)
	}
	if !cfg.Gzip {
		t.Fatalf("local override should enable gzip")
	}
	if !cfg.Fields.Comment || !cfg.Fields.IDs {
		t.Fatalf("fields = %+v", cfg.Fields)
	}
	if !cfg.Fields.Pedigree {
		t.Fatalf("unset toggles must keep defaults")
	}
}

func TestLoadSettingsMissing(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.json5"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
