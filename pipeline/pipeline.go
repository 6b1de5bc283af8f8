package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-races/models"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(rows []models.Row) error
	Close() error
	Validate() error
}

// Pipeline flattens parsed races into rows and writes them as soon as each race
// is processed, so an interrupted run keeps everything finished so far.
type Pipeline struct {
	writer OutputWriter
	schema *Schema
	seen   *lru.Cache[string, struct{}]

	metrics metrics

	mu     sync.Mutex // guards closed/err and serializes writes
	closed bool
	err    error
}

// NewPipeline builds a pipeline that remembers up to dedupeSize race ids.
func NewPipeline(writer OutputWriter, schema *Schema, dedupeSize int) (*Pipeline, error) {
	if dedupeSize <= 0 {
		dedupeSize = 1
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &Pipeline{
		writer:  writer,
		schema:  schema,
		seen:    seen,
		metrics: newMetrics(),
	}, nil
}

// Schema is the column set rows are written with.
func (p *Pipeline) Schema() *Schema {
	return p.schema
}

// Process writes one race's runners. It returns the number of rows written; a
// race id already written this run is skipped with zero rows.
func (p *Pipeline) Process(race models.RaceRecord, runners []models.RunnerRow) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return 0, p.err
	}
	if p.closed {
		return 0, ErrPipelineClosed
	}

	if race.RaceID != "" {
		if p.seen.Contains(race.RaceID) {
			p.metrics.addSkipped("duplicate_race")
			return 0, nil
		}
	}
	if len(runners) == 0 {
		p.metrics.addSkipped("no_runners")
		return 0, nil
	}

	rows := make([]models.Row, len(runners))
	for i := range runners {
		rows[i] = models.Row{Race: &race, Runner: &runners[i]}
	}

	if err := p.writer.Write(rows); err != nil {
		p.err = fmt.Errorf("write race %s: %w", race.RaceID, err)
		return 0, p.err
	}
	if race.RaceID != "" {
		p.seen.Add(race.RaceID, struct{}{})
	}
	p.metrics.addRace(len(rows))
	return len(rows), nil
}

// Close closes the writer and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.err
	}
	p.closed = true
	if err := p.writer.Close(); err != nil && p.err == nil {
		p.err = fmt.Errorf("close writer: %w", err)
	}
	return p.err
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() Snapshot {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs until ctx is done.
func (p *Pipeline) StartMetricsReporting(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				snap := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("races", snap.Races),
					slog.Int64("rows", snap.Rows),
					slog.Int("skipped", len(snap.Skipped)),
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Snapshot is a point-in-time copy of pipeline counters.
type Snapshot struct {
	Races   int64
	Rows    int64
	Skipped map[string]int
}

type metrics struct {
	mu      sync.Mutex
	races   int64
	rows    int64
	skipped map[string]int
}

func newMetrics() metrics {
	return metrics{
		skipped: make(map[string]int),
	}
}

func (m *metrics) addRace(rows int) {
	m.mu.Lock()
	m.races++
	m.rows += int64(rows)
	m.mu.Unlock()
}

func (m *metrics) addSkipped(kind string) {
	m.mu.Lock()
	m.skipped[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	skipped := make(map[string]int, len(m.skipped))
	for k, v := range m.skipped {
		skipped[k] = v
	}
	return Snapshot{Races: m.races, Rows: m.rows, Skipped: skipped}
}
