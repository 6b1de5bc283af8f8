package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-races/config"
	"github.com/aluiziolira/go-scrape-races/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]models.Row
	closed      bool
	writeErr    error
	validateErr error
}

func (mw *mockWriter) Write(rows []models.Row) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]models.Row, len(rows))
	copy(copyBatch, rows)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) totalWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	total := 0
	for _, batch := range mw.batches {
		total += len(batch)
	}
	return total
}

func sampleRace(id string) (models.RaceRecord, []models.RunnerRow) {
	race := models.RaceRecord{
		RaceID:     id,
		CourseID:   "38",
		Course:     "Newmarket",
		Date:       "2024-05-04",
		Off:        "2:25",
		Name:       "Test Handicap",
		Type:       "Flat",
		Class:      "Class 4",
		Distance:   "1m2f",
		DistYards:  2200,
		DistMetres: 2012,
		Going:      "Good",
		Ran:        2,
	}
	runners := []models.RunnerRow{
		{Num: "1", Pos: "1", Horse: "First Horse", SP: "2/1", Dec: "3.00", Lbs: 133},
		{Num: "2", Pos: "2", Horse: "Second Horse", SP: "Evs", Dec: "2.00", Lbs: 128},
	}
	return race, runners
}

func TestPipelineProcessWritesRowsPerRunner(t *testing.T) {
	writer := &mockWriter{}
	p, err := NewPipeline(writer, NewSchema(config.DefaultFields()), 16)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	race, runners := sampleRace("100")
	n, err := p.Process(race, runners)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows=%d, want 2", n)
	}
	if writer.totalWritten() != 2 {
		t.Fatalf("written=%d, want 2", writer.totalWritten())
	}

	row := writer.batches[0][1]
	if row.Race.RaceID != "100" || row.Runner.Horse != "Second Horse" {
		t.Fatalf("unexpected row: race=%s horse=%s", row.Race.RaceID, row.Runner.Horse)
	}
}

func TestPipelineSkipsDuplicateRace(t *testing.T) {
	writer := &mockWriter{}
	p, err := NewPipeline(writer, NewSchema(config.DefaultFields()), 16)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	race, runners := sampleRace("100")
	if _, err := p.Process(race, runners); err != nil {
		t.Fatalf("first process: %v", err)
	}
	n, err := p.Process(race, runners)
	if err != nil {
		t.Fatalf("second process: %v", err)
	}
	if n != 0 {
		t.Fatalf("duplicate rows=%d, want 0", n)
	}

	snap := p.GetMetrics()
	if snap.Races != 1 || snap.Rows != 2 {
		t.Fatalf("snapshot races=%d rows=%d, want 1 and 2", snap.Races, snap.Rows)
	}
	if snap.Skipped["duplicate_race"] != 1 {
		t.Fatalf("duplicate_race=%d, want 1", snap.Skipped["duplicate_race"])
	}
}

func TestPipelineWriteErrorIsSticky(t *testing.T) {
	writer := &mockWriter{writeErr: errors.New("disk full")}
	p, err := NewPipeline(writer, NewSchema(config.DefaultFields()), 16)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	race, runners := sampleRace("100")
	if _, err := p.Process(race, runners); err == nil {
		t.Fatalf("expected write error")
	}

	writer.writeErr = nil
	other, otherRunners := sampleRace("101")
	if _, err := p.Process(other, otherRunners); err == nil {
		t.Fatalf("expected sticky error after failed write")
	}
	if p.Err() == nil {
		t.Fatalf("Err() should report the write failure")
	}
}

func TestPipelineRejectsAfterClose(t *testing.T) {
	writer := &mockWriter{}
	p, err := NewPipeline(writer, NewSchema(config.DefaultFields()), 16)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !writer.closed {
		t.Fatalf("writer not closed")
	}

	race, runners := sampleRace("100")
	if _, err := p.Process(race, runners); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("err=%v, want ErrPipelineClosed", err)
	}
}

func TestPipelineMetricsReportingStopsWithContext(t *testing.T) {
	p, err := NewPipeline(&mockWriter{}, NewSchema(config.DefaultFields()), 16)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.StartMetricsReporting(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()
}

func TestRunFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "results_failures.json")

	log := models.FailureLog{
		RunID:           "run-1",
		ScrapeTimestamp: time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC),
		Failures: []models.FailureRecord{
			{RaceID: "1", URL: "https://example.test/results/1/a/2024-05-04/1", ErrorKind: models.ErrorKindBlocked, Status: 406, Attempts: 7},
			{RaceID: "2", URL: "https://example.test/results/1/a/2024-05-04/2", ErrorKind: models.ErrorKindParse, Attempts: 1},
		},
	}
	if err := WriteFailureLog(path, log); err != nil {
		t.Fatalf("write failure log: %v", err)
	}

	got, err := ReadFailureLog(path)
	if err != nil {
		t.Fatalf("read failure log: %v", err)
	}
	if got.TotalFailures != 2 {
		t.Fatalf("total=%d, want 2", got.TotalFailures)
	}
	urls := got.URLs()
	if len(urls) != 2 || urls[1] != log.Failures[1].URL {
		t.Fatalf("urls=%v", urls)
	}

	metaPath := filepath.Join(dir, "results_metadata.json")
	if err := WriteMetadata(metaPath, models.RunMetadata{RunID: "run-1", Discovered: 2}); err != nil {
		t.Fatalf("write metadata: %v", err)
	}
	if _, err := os.Stat(metaPath); err != nil {
		t.Fatalf("metadata missing: %v", err)
	}
}
