package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-scrape-races/identity"
	"github.com/aluiziolira/go-scrape-races/models"
	"github.com/aluiziolira/go-scrape-races/pipeline"
	"github.com/aluiziolira/go-scrape-races/report"
	"github.com/aluiziolira/go-scrape-races/scraper"
)

// scrape runs targets through the orchestrator and prints the summary.
func (a *app) scrape(ctx context.Context, targets []models.TargetURL) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(targets) == 0 {
		slog.Warn("no races to scrape")
		return nil
	}

	metrics := scraper.NewMetrics()
	client, err := scraper.NewClient(cfg, identity.NewRotator(), metrics)
	if err != nil {
		return fmt.Errorf("initialising client: %w", err)
	}

	schema := pipeline.NewSchema(cfg.Fields)
	writer, err := pipeline.NewWriter(cfg, schema)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	p, err := pipeline.NewPipeline(writer, schema, cfg.DedupeMaxSize)
	if err != nil {
		writer.Close()
		return err
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr, metrics)
	defer stopMetrics()
	if cfg.Verbose {
		p.StartMetricsReporting(ctx, 30*time.Second)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("races", len(targets)),
		slog.String("format", cfg.OutputFormat),
	)

	s := scraper.NewScraper(cfg, client, metrics)
	result, runErr := s.Run(ctx, targets, p)
	if err := p.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("scraping failed: %w", runErr)
	}

	if result.Metadata.RowsWritten > 0 {
		if err := writer.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}

	report.PrintSummary(os.Stdout, result, cfg.OutputPath())
	return nil
}

func serveMetrics(addr string, metrics *scraper.Metrics) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}
