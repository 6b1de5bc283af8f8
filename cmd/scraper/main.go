package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aluiziolira/go-scrape-races/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing the current race")
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// app carries the configuration shared by every subcommand.
type app struct {
	cfg          *config.Config
	settingsPath string
	coursesDir   string
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.DefaultConfig()}
	envErr := a.cfg.ApplyEnv()

	root := &cobra.Command{
		Use:           "racescrape",
		Short:         "racescrape fetches race result pages and writes one row per runner.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envErr != nil {
				return fmt.Errorf("invalid environment: %w", envErr)
			}
			logger, level := newLogger(a.cfg.Verbose)
			slog.SetDefault(logger)
			slog.SetLogLoggerLevel(level.Level())
			return a.loadSettings(cmd)
		},
	}

	cfg := a.cfg
	f := root.PersistentFlags()
	f.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Publisher base URL")
	f.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file path")
	f.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Output format: csv, json, dual, or sqlite")
	f.BoolVar(&cfg.Gzip, "gzip", cfg.Gzip, "Gzip the row output")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose logging")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	f.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Delay between races")
	f.DurationVar(&cfg.BackoffBase, "backoff-base", cfg.BackoffBase, "Delay after the first blocked race")
	f.DurationVar(&cfg.BackoffMax, "backoff-max", cfg.BackoffMax, "Cap on the blocked-race delay")
	f.IntVar(&cfg.BlockAttempts, "block-attempts", cfg.BlockAttempts, "Attempts per race while the block status persists")
	f.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	f.StringVar(&a.settingsPath, "settings", "settings.json5", "Settings file; <name>.local.json5 is merged over it")
	f.StringVar(&a.coursesDir, "courses-dir", "courses", "Directory holding _countries.json5 and <region>_course_ids files")

	root.AddCommand(
		a.urlsCmd(),
		a.dateCmd(),
		a.courseCmd(),
		a.retryCmd(),
		a.coursesCmd(),
	)
	return root
}

// loadSettings applies the settings file underneath any flag given explicitly.
func (a *app) loadSettings(cmd *cobra.Command) error {
	settings, err := config.LoadSettings(a.settingsPath)
	if errors.Is(err, os.ErrNotExist) {
		if cmd.Flags().Changed("settings") {
			return fmt.Errorf("settings file %s not found", a.settingsPath)
		}
		return nil
	}
	if err != nil {
		return err
	}

	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	if err := settings.Apply(a.cfg); err != nil {
		return err
	}
	for name, value := range changed {
		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("reapply --%s: %w", name, err)
		}
	}
	slog.Debug("settings loaded", slog.String("path", a.settingsPath))
	return nil
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
