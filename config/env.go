package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer when set.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvDuration parses key as a Go duration ("750ms", "2s") when set.
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, true, nil
}

// ApplyEnv overlays RACESCRAPE_* variables onto c.
func (c *Config) ApplyEnv() error {
	if v, ok := EnvString("RACESCRAPE_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := EnvString("RACESCRAPE_OUTPUT"); ok {
		c.OutputFile = v
	}
	if v, ok := EnvString("RACESCRAPE_METRICS_ADDR"); ok {
		c.MetricsAddr = v
	}
	if v, ok, err := EnvInt("RACESCRAPE_BLOCK_ATTEMPTS"); err != nil {
		return err
	} else if ok {
		c.BlockAttempts = v
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RACESCRAPE_TIMEOUT", &c.Timeout},
		{"RACESCRAPE_DELAY", &c.Delay},
		{"RACESCRAPE_BACKOFF_BASE", &c.BackoffBase},
		{"RACESCRAPE_BACKOFF_MAX", &c.BackoffMax},
	}
	for _, d := range durations {
		v, ok, err := EnvDuration(d.key)
		if err != nil {
			return err
		}
		if ok {
			*d.dst = v
		}
	}
	return nil
}
