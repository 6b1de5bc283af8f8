package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-scrape-races/analyzer"
	"github.com/aluiziolira/go-scrape-races/config"
	"github.com/aluiziolira/go-scrape-races/models"
	"github.com/aluiziolira/go-scrape-races/parser"
	"github.com/aluiziolira/go-scrape-races/pipeline"
)

// Fetcher retrieves one result page. *Client is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, target models.TargetURL) models.FetchOutcome
}

// Scraper drives the sequential fetch-parse-write loop over a URL list.
type Scraper struct {
	cfg     *config.Config
	client  Fetcher
	Metrics *Metrics
	backoff *Backoff

	sleep  func(context.Context, time.Duration) error
	jitter func() float64
	now    func() time.Time
}

// NewScraper builds an orchestrator around client. metrics may be nil.
func NewScraper(cfg *config.Config, client Fetcher, metrics *Metrics) *Scraper {
	return &Scraper{
		cfg:     cfg,
		client:  client,
		Metrics: metrics,
		backoff: NewBackoff(cfg.Delay, cfg.BackoffBase, cfg.BackoffMax, cfg.BackoffJitter),
		sleep:   sleepContext,
		jitter:  func() float64 { return rand.Float64()*2 - 1 },
		now:     time.Now,
	}
}

type urlResult int

const (
	urlSucceeded urlResult = iota
	urlVoid
	urlFailed
	urlInterrupted
)

// Run processes targets in order. Per-URL failures are recorded, never
// returned; the error return is reserved for output that cannot be written.
// Metadata is written even when ctx is cancelled part way through.
func (s *Scraper) Run(ctx context.Context, targets []models.TargetURL, p *pipeline.Pipeline) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	code, err := models.ParseRaceCode(s.cfg.Code)
	if err != nil {
		return nil, err
	}

	start := s.now()
	meta := models.RunMetadata{
		RunID:           uuid.NewString(),
		ScrapeTimestamp: start.UTC(),
		FileName:        s.cfg.FileName(),
		Country:         s.cfg.Region,
		Discovered:      len(targets),
	}
	var failures []models.FailureRecord
	var fatal error
	processed := 0

	slog.Info("scrape started",
		slog.String("run_id", meta.RunID),
		slog.Int("urls", len(targets)),
		slog.String("output", s.cfg.OutputPath()),
	)

	for i, target := range targets {
		if i > 0 {
			delay := s.backoff.Delay(s.jitter())
			s.Metrics.SetBackoff(s.backoff.Consecutive(), delay)
			if s.backoff.Consecutive() > 0 {
				slog.Warn("rate limited, backing off",
					slog.Int("consecutive_blocks", s.backoff.Consecutive()),
					slog.Duration("delay", delay),
				)
			}
			if err := s.sleep(ctx, delay); err != nil {
				meta.Interrupted = true
				break
			}
		}
		if ctx.Err() != nil {
			meta.Interrupted = true
			break
		}

		result, rows, failure, err := s.process(ctx, target, code, p)
		if err != nil {
			fatal = err
			processed++
			break
		}

		switch result {
		case urlSucceeded:
			meta.Succeeded++
			meta.RowsWritten += rows
			s.Metrics.IncRace("success")
			s.Metrics.AddRows(rows)
			s.resetBackoff()
		case urlVoid:
			meta.Void++
			s.Metrics.IncRace("void")
			s.resetBackoff()
		case urlFailed:
			failures = append(failures, *failure)
			s.Metrics.IncRace("failed")
			if failure.IsBlock() {
				s.backoff.OnBlock()
			}
			if err := pipeline.WriteFailureLog(s.cfg.FailureLogPath(), failureLog(meta, failures)); err != nil {
				slog.Warn("failure log not updated", slog.Any("error", err))
			}
		case urlInterrupted:
			meta.Interrupted = true
		}
		if result == urlInterrupted {
			break
		}
		processed++
	}

	meta.Failed = len(failures)
	meta.Skipped = len(targets) - processed
	if meta.Discovered > 0 {
		meta.CompletenessPct = math.Round(float64(meta.Succeeded)/float64(meta.Discovered)*100*100) / 100
	}
	diag := analyzer.Summarize(failures)
	meta.BlockErrors = diag.BlockErrors
	meta.LikelyRateLimited = diag.LikelyRateLimited
	meta.ErrorPattern = string(diag.Pattern)
	meta.DurationSeconds = math.Round(s.now().Sub(start).Seconds()*100) / 100

	res := &models.RunResult{Metadata: meta, Failures: failures}
	if err := s.persist(res); err != nil {
		return res, errors.Join(fatal, err)
	}

	slog.Info("scrape finished",
		slog.Int("succeeded", meta.Succeeded),
		slog.Int("void", meta.Void),
		slog.Int("failed", meta.Failed),
		slog.Float64("completeness_pct", meta.CompletenessPct),
		slog.String("error_pattern", meta.ErrorPattern),
		slog.Bool("interrupted", meta.Interrupted),
	)
	return res, fatal
}

func (s *Scraper) resetBackoff() {
	if n := s.backoff.Consecutive(); n > 0 {
		slog.Info("success after consecutive blocks, resetting backoff", slog.Int("consecutive_blocks", n))
	}
	s.backoff.OnSuccess()
}

// failureLog snapshots the failures so far. The log is rewritten after every
// failure so a killed run still leaves its failures on disk.
func failureLog(meta models.RunMetadata, failures []models.FailureRecord) models.FailureLog {
	return models.FailureLog{
		RunID:           meta.RunID,
		ScrapeTimestamp: meta.ScrapeTimestamp,
		Failures:        failures,
	}
}

func (s *Scraper) persist(res *models.RunResult) error {
	res.MetadataPath = s.cfg.MetadataPath()
	if err := pipeline.WriteMetadata(res.MetadataPath, res.Metadata); err != nil {
		return fmt.Errorf("write run metadata: %w", err)
	}
	if len(res.Failures) == 0 {
		return nil
	}

	res.FailureLogPath = s.cfg.FailureLogPath()
	if err := pipeline.WriteFailureLog(res.FailureLogPath, failureLog(res.Metadata, res.Failures)); err != nil {
		return fmt.Errorf("write failure log: %w", err)
	}
	slog.Warn("races failed to scrape",
		slog.Int("failures", len(res.Failures)),
		slog.String("failure_log", res.FailureLogPath),
	)
	return nil
}

// process handles one URL. A non-nil error means the output sink failed.
func (s *Scraper) process(ctx context.Context, target models.TargetURL, code models.RaceCode, p *pipeline.Pipeline) (result urlResult, rows int, failure *models.FailureRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected error", slog.String("url", target.URL), slog.Any("panic", r))
			result = urlFailed
			failure = s.failure(target, models.ErrorKindException, "EXCEPTION", fmt.Sprintf("unexpected: %v", r), 0, 1)
			rows, err = 0, nil
			s.Metrics.IncError("exception")
		}
	}()

	out := s.client.Fetch(ctx, target)

	switch out.Kind {
	case models.OutcomeSuccess:
	case models.OutcomeBlocked:
		slog.Error("persistent block status after all retry attempts",
			slog.String("url", target.URL),
			slog.Int("status", out.Status),
			slog.Int("attempts", out.Attempts),
		)
		s.Metrics.IncError(errorTypeLabel(out.Err))
		msg := fmt.Sprintf("rate limited (HTTP %d) after all retries", out.Status)
		return urlFailed, 0, s.failure(target, models.ErrorKindBlocked, httpErrorType(out.Status), msg, out.Status, out.Attempts), nil
	case models.OutcomeHTTPError:
		slog.Error("http error", slog.String("url", target.URL), slog.Int("status", out.Status))
		s.Metrics.IncError(errorTypeLabel(out.Err))
		msg := fmt.Sprintf("HTTP %d", out.Status)
		return urlFailed, 0, s.failure(target, models.ErrorKindHTTP, httpErrorType(out.Status), msg, out.Status, out.Attempts), nil
	default:
		if ctx.Err() != nil {
			return urlInterrupted, 0, nil, nil
		}
		label := errorTypeLabel(out.Err)
		slog.Error("network error", slog.String("url", target.URL), slog.String("category", label), slog.Any("error", out.Err))
		s.Metrics.IncError(label)
		return urlFailed, 0, s.failure(target, models.ErrorKindNetwork, "NETWORK_ERROR", fmt.Sprint(out.Err), 0, out.Attempts), nil
	}

	parsed, perr := parser.Parse(ctx, out.Body, target, code, parser.Options{VoidMarkers: s.cfg.VoidMarkers})
	if perr != nil {
		slog.Error("parse error", slog.String("url", target.URL), slog.Any("error", perr))
		s.Metrics.IncError("parse")
		return urlFailed, 0, s.failure(target, models.ErrorKindParse, "PARSE_ERROR", "parse error: "+perr.Error(), 0, 1), nil
	}
	if parsed.Kind == parser.ResultVoid {
		slog.Info("void race", slog.String("url", target.URL))
		return urlVoid, 0, nil, nil
	}

	parsed.Race.Region = s.cfg.Region
	n, werr := p.Process(parsed.Race, parsed.Runners)
	if werr != nil {
		return urlFailed, 0, nil, fmt.Errorf("write output: %w", werr)
	}
	slog.Debug("race written",
		slog.String("url", target.URL),
		slog.String("race_id", parsed.Race.RaceID),
		slog.Int("rows", n),
	)
	return urlSucceeded, n, nil, nil
}

func (s *Scraper) failure(target models.TargetURL, kind models.ErrorKind, errorType, msg string, status, attempts int) *models.FailureRecord {
	return &models.FailureRecord{
		RaceID:       target.RaceID,
		Course:       target.CourseName,
		CourseID:     target.CourseID,
		Date:         target.Date,
		Country:      s.cfg.Region,
		URL:          target.URL,
		ErrorKind:    kind,
		ErrorType:    errorType,
		ErrorMessage: msg,
		Status:       status,
		Attempts:     attempts,
		Timestamp:    s.now().UTC(),
	}
}

func httpErrorType(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}
