package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Settings is the on-disk form of the options a user typically pins. Nil fields
// leave the corresponding Config value untouched.
type Settings struct {
	BaseURL      *string `json:"base_url"`
	Timeout      *string `json:"timeout"`
	Delay        *string `json:"delay"`
	BackoffBase  *string `json:"backoff_base"`
	BackoffMax   *string `json:"backoff_max"`
	BlockStatus  *int    `json:"block_status"`
	OutputFormat *string `json:"output_format"`
	Gzip         *bool   `json:"gzip_output"`

	Fields FieldSettings `json:"fields"`
}

// FieldSettings mirrors Fields with optional values.
type FieldSettings struct {
	Region      *bool `json:"region"`
	Nat         *bool `json:"nat"`
	RawBeaten   *bool `json:"raw_beaten"`
	Weight      *bool `json:"weight"`
	Headgear    *bool `json:"headgear"`
	WinningTime *bool `json:"winning_time"`
	Pedigree    *bool `json:"pedigree"`
	Owner       *bool `json:"owner"`
	Comment     *bool `json:"comment"`
	IDs         *bool `json:"ids"`
	SilkURL     *bool `json:"silk_url"`
}

func splitExt(f string) (string, string) {
	ext := filepath.Ext(f)
	return strings.TrimSuffix(f, ext), strings.TrimPrefix(ext, ".")
}

// LoadSettings reads name (e.g. settings.json5) and merges name.local.json5 over it.
// It returns os.ErrNotExist when neither file exists.
func LoadSettings(name string) (Settings, error) {
	var out Settings
	found := false

	data, err := os.ReadFile(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, fmt.Errorf("read settings: %w", err)
	}
	if len(data) > 0 {
		if err := json5.Unmarshal(data, &out); err != nil {
			return out, fmt.Errorf("decode %s: %w", name, err)
		}
		found = true
	}

	prefix, ext := splitExt(name)
	localPath := fmt.Sprintf("%s.local.%s", prefix, ext)
	local, err := os.ReadFile(localPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, fmt.Errorf("read local settings: %w", err)
	}
	if len(local) > 0 {
		var override Settings
		if err := json5.Unmarshal(local, &override); err != nil {
			return out, fmt.Errorf("decode %s: %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return out, fmt.Errorf("merge local settings: %w", err)
		}
		slog.Info("merging settings with local overrides", slog.String("local", localPath))
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

// Apply copies every set value onto c.
func (s Settings) Apply(c *Config) error {
	if s.BaseURL != nil {
		c.BaseURL = *s.BaseURL
	}
	if s.BlockStatus != nil {
		c.BlockStatus = *s.BlockStatus
	}
	if s.OutputFormat != nil {
		c.OutputFormat = strings.ToLower(*s.OutputFormat)
	}
	if s.Gzip != nil {
		c.Gzip = *s.Gzip
	}

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"timeout", s.Timeout, &c.Timeout},
		{"delay", s.Delay, &c.Delay},
		{"backoff_base", s.BackoffBase, &c.BackoffBase},
		{"backoff_max", s.BackoffMax, &c.BackoffMax},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("settings %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	toggles := []struct {
		src *bool
		dst *bool
	}{
		{s.Fields.Region, &c.Fields.Region},
		{s.Fields.Nat, &c.Fields.Nat},
		{s.Fields.RawBeaten, &c.Fields.RawBeaten},
		{s.Fields.Weight, &c.Fields.Weight},
		{s.Fields.Headgear, &c.Fields.Headgear},
		{s.Fields.WinningTime, &c.Fields.WinningTime},
		{s.Fields.Pedigree, &c.Fields.Pedigree},
		{s.Fields.Owner, &c.Fields.Owner},
		{s.Fields.Comment, &c.Fields.Comment},
		{s.Fields.IDs, &c.Fields.IDs},
		{s.Fields.SilkURL, &c.Fields.SilkURL},
	}
	for _, t := range toggles {
		if t.src != nil {
			*t.dst = *t.src
		}
	}
	return nil
}
