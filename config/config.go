package config

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL string
	Code    string // flat, jumps, or empty when inferred per race
	Region  string

	Timeout          time.Duration
	BlockStatus      int
	BlockAttempts    int
	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	Delay            time.Duration
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	BackoffJitter    float64
	RespectRobotsTxt bool
	UserAgent        string

	OutputFile    string
	OutputFormat  string // csv, json, dual, or sqlite
	Gzip          bool
	DedupeMaxSize int
	Fields        Fields
	VoidMarkers   []string

	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the cadence the target tolerates in practice.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.racingpost.com",
		Timeout:          14 * time.Second,
		BlockStatus:      http.StatusNotAcceptable,
		BlockAttempts:    7,
		RetryBackoff:     500 * time.Millisecond,
		RetryBackoffMax:  8 * time.Second,
		Delay:            time.Second,
		BackoffBase:      5 * time.Second,
		BackoffMax:       60 * time.Second,
		BackoffJitter:    0.2,
		RespectRobotsTxt: false,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		OutputFile:       "data/results.csv",
		OutputFormat:     "csv",
		DedupeMaxSize:    100000,
		Fields:           DefaultFields(),
		VoidMarkers:      []string{"race void", "void race", "race abandoned", "declared void"},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	switch c.Code {
	case "", "flat", "jumps":
	default:
		return fmt.Errorf("race code must be flat, jumps, or empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.BlockStatus < 400 || c.BlockStatus > 499 {
		return fmt.Errorf("block status must be a 4xx code, got %d", c.BlockStatus)
	}
	if c.BlockAttempts <= 0 {
		return fmt.Errorf("block attempts must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("backoff base must be positive")
	}
	if c.BackoffMax < c.BackoffBase {
		return fmt.Errorf("backoff max (%s) cannot be below backoff base (%s)", c.BackoffMax, c.BackoffBase)
	}
	if c.BackoffJitter < 0 || c.BackoffJitter >= 1 {
		return fmt.Errorf("backoff jitter must be in [0, 1)")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "sqlite":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or sqlite")
	}
	if c.Gzip && c.OutputFormat == "sqlite" {
		return fmt.Errorf("gzip output is not supported for sqlite")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// OutputPath returns the row output path, with the gzip suffix applied when enabled.
func (c *Config) OutputPath() string {
	if c.Gzip && !strings.HasSuffix(c.OutputFile, ".gz") {
		return c.OutputFile + ".gz"
	}
	return c.OutputFile
}

// SidecarPath derives a sibling file of the output, e.g. results_metadata.json.
func (c *Config) SidecarPath(suffix string) string {
	base := strings.TrimSuffix(c.OutputFile, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "_" + suffix
}

// MetadataPath is where the run metadata document is written.
func (c *Config) MetadataPath() string {
	return c.SidecarPath("metadata.json")
}

// FailureLogPath is where the failure log is written when a run has failures.
func (c *Config) FailureLogPath() string {
	return c.SidecarPath("failures.json")
}

// FileName is the output stem recorded in run metadata.
func (c *Config) FileName() string {
	base := filepath.Base(strings.TrimSuffix(c.OutputFile, ".gz"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
