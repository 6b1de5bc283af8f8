package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-scrape-races/config"
	"github.com/aluiziolira/go-scrape-races/identity"
	"github.com/aluiziolira/go-scrape-races/models"
	"github.com/aluiziolira/go-scrape-races/parser/parsertest"
	"github.com/aluiziolira/go-scrape-races/pipeline"
)

const testBase = "https://www.racingpost.com/results/38/newmarket/2024-05-04/"

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (sr *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	sr.mu.Lock()
	sr.delays = append(sr.delays, d)
	sr.mu.Unlock()
	return ctx.Err()
}

func (sr *sleepRecorder) all() []time.Duration {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	out := make([]time.Duration, len(sr.delays))
	copy(out, sr.delays)
	return out
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "results.csv")
	cfg.Region = "gb"
	return cfg
}

func testTarget(t *testing.T, id string) models.TargetURL {
	t.Helper()
	target, err := models.ParseTargetURL(testBase + id)
	if err != nil {
		t.Fatalf("parse target: %v", err)
	}
	return target
}

func newTestClient(t *testing.T, cfg *config.Config, transport http.RoundTripper, rec *sleepRecorder) *Client {
	t.Helper()
	client, err := NewClient(cfg, nil, NewMetrics())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.useTransport(transport)
	client.sleep = rec.sleep
	return client
}

func htmlResponder(body []byte) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		resp := httpmock.NewBytesResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "text/html; charset=utf-8")
		return resp, nil
	}
}

// sequenceResponder replies with statuses in order, repeating the last one.
func sequenceResponder(body []byte, statuses ...int) (httpmock.Responder, func() []*http.Request) {
	var mu sync.Mutex
	var seen []*http.Request
	responder := func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		i := len(seen)
		seen = append(seen, req)
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if statuses[i] == http.StatusOK {
			resp := httpmock.NewBytesResponse(http.StatusOK, body)
			resp.Header.Set("Content-Type", "text/html; charset=utf-8")
			return resp, nil
		}
		return httpmock.NewStringResponse(statuses[i], ""), nil
	}
	requests := func() []*http.Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]*http.Request(nil), seen...)
	}
	return responder, requests
}

func TestClientFetchSuccess(t *testing.T) {
	cfg := testConfig(t)
	body := parsertest.Page(parsertest.Flat())

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, testBase+"100", htmlResponder(body))

	rec := &sleepRecorder{}
	client := newTestClient(t, cfg, transport, rec)

	out := client.Fetch(context.Background(), testTarget(t, "100"))
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("kind=%s err=%v, want success", out.Kind, out.Err)
	}
	if out.Attempts != 1 || out.Status != http.StatusOK {
		t.Fatalf("attempts=%d status=%d", out.Attempts, out.Status)
	}
	if !bytes.Equal(out.Body, body) {
		t.Fatalf("body mismatch")
	}
	if len(rec.all()) != 0 {
		t.Fatalf("unexpected sleeps: %v", rec.all())
	}
}

func TestClientRetriesBlockStatus(t *testing.T) {
	cfg := testConfig(t)
	body := parsertest.Page(parsertest.Flat())

	responder, requests := sequenceResponder(body, http.StatusNotAcceptable, http.StatusNotAcceptable, http.StatusOK)
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, testBase+"100", responder)

	rec := &sleepRecorder{}
	client := newTestClient(t, cfg, transport, rec)

	out := client.Fetch(context.Background(), testTarget(t, "100"))
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("kind=%s, want success", out.Kind)
	}
	if out.Attempts != 3 {
		t.Fatalf("attempts=%d, want 3", out.Attempts)
	}

	want := []time.Duration{500 * time.Millisecond, time.Second}
	got := rec.all()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("retry delays=%v, want %v", got, want)
	}

	rotator := identity.NewRotator()
	for i, req := range requests() {
		if ua := req.Header.Get("User-Agent"); ua != rotator.At(i).UserAgent {
			t.Fatalf("request %d user agent=%q, want %q", i, ua, rotator.At(i).UserAgent)
		}
	}
}

func TestClientPersistentBlock(t *testing.T) {
	cfg := testConfig(t)

	responder, requests := sequenceResponder(nil, http.StatusNotAcceptable)
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, testBase+"100", responder)

	rec := &sleepRecorder{}
	client := newTestClient(t, cfg, transport, rec)

	out := client.Fetch(context.Background(), testTarget(t, "100"))
	if out.Kind != models.OutcomeBlocked {
		t.Fatalf("kind=%s, want blocked", out.Kind)
	}
	if out.Attempts != cfg.BlockAttempts || len(requests()) != cfg.BlockAttempts {
		t.Fatalf("attempts=%d requests=%d, want %d", out.Attempts, len(requests()), cfg.BlockAttempts)
	}
	var blocked ErrBlocked
	if !errors.As(out.Err, &blocked) || blocked.Status != http.StatusNotAcceptable {
		t.Fatalf("err=%v, want ErrBlocked(406)", out.Err)
	}

	delays := rec.all()
	if len(delays) != cfg.BlockAttempts-1 {
		t.Fatalf("sleeps=%d, want %d", len(delays), cfg.BlockAttempts-1)
	}
	for _, d := range delays {
		if d > cfg.RetryBackoffMax {
			t.Fatalf("delay %v exceeds max %v", d, cfg.RetryBackoffMax)
		}
	}
}

func TestClientDoesNotRetryOtherStatuses(t *testing.T) {
	tests := []struct {
		status int
		label  string
	}{
		{status: http.StatusInternalServerError, label: "http_status"},
		{status: http.StatusForbidden, label: "http_status"},
		{status: http.StatusNotFound, label: "not_found"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			cfg := testConfig(t)
			responder, requests := sequenceResponder(nil, tt.status)
			transport := httpmock.NewMockTransport()
			transport.RegisterResponder(http.MethodGet, testBase+"100", responder)

			client := newTestClient(t, cfg, transport, &sleepRecorder{})
			out := client.Fetch(context.Background(), testTarget(t, "100"))

			if out.Kind != models.OutcomeHTTPError || out.Status != tt.status {
				t.Fatalf("kind=%s status=%d", out.Kind, out.Status)
			}
			if len(requests()) != 1 {
				t.Fatalf("requests=%d, want 1", len(requests()))
			}
			if got := errorTypeLabel(out.Err); got != tt.label {
				t.Fatalf("label=%q, want %q", got, tt.label)
			}
		})
	}
}

func TestClientNetworkError(t *testing.T) {
	cfg := testConfig(t)
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, testBase+"100",
		httpmock.NewErrorResponder(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}))

	client := newTestClient(t, cfg, transport, &sleepRecorder{})
	out := client.Fetch(context.Background(), testTarget(t, "100"))
	if out.Kind != models.OutcomeNetworkError {
		t.Fatalf("kind=%s, want network_error", out.Kind)
	}
	if out.Attempts != 1 {
		t.Fatalf("attempts=%d, want 1", out.Attempts)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "server error", err: nil, statusCode: http.StatusBadGateway, expected: "http_status"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "blocked", err: ErrBlocked{Status: 406, Attempts: 7}, statusCode: 0, expected: "blocked"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestBackoffEscalatesAndResets(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second, 60*time.Second, 0.2)

	if got := b.Base(); got != time.Second {
		t.Fatalf("normal base=%v, want 1s", got)
	}
	if got := b.Delay(1); got != time.Second {
		t.Fatalf("normal delay is jittered: %v", got)
	}

	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second}
	for i, w := range want {
		b.OnBlock()
		if got := b.Base(); got != w {
			t.Fatalf("after %d blocks base=%v, want %v", i+1, got, w)
		}
	}

	b.OnSuccess()
	if b.Consecutive() != 0 || b.Base() != time.Second {
		t.Fatalf("success did not reset: consecutive=%d base=%v", b.Consecutive(), b.Base())
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second, 60*time.Second, 0.2)
	b.OnBlock()

	if got := b.Delay(-1); got != 4*time.Second {
		t.Fatalf("low jitter=%v, want 4s", got)
	}
	if got := b.Delay(0); got != 5*time.Second {
		t.Fatalf("zero jitter=%v, want 5s", got)
	}
	if got := b.Delay(0.5); got != 5500*time.Millisecond {
		t.Fatalf("half jitter=%v, want 5.5s", got)
	}
}

type runFixture struct {
	cfg       *config.Config
	scraper   *Scraper
	pipeline  *pipeline.Pipeline
	transport *httpmock.MockTransport
	delays    *sleepRecorder
}

func newRunFixture(t *testing.T) *runFixture {
	t.Helper()
	cfg := testConfig(t)
	transport := httpmock.NewMockTransport()
	client := newTestClient(t, cfg, transport, &sleepRecorder{})

	rec := &sleepRecorder{}
	s := NewScraper(cfg, client, NewMetrics())
	s.sleep = rec.sleep
	s.jitter = func() float64 { return 0 }

	schema := pipeline.NewSchema(cfg.Fields)
	writer, err := pipeline.NewWriter(cfg, schema)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	p, err := pipeline.NewPipeline(writer, schema, cfg.DedupeMaxSize)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return &runFixture{cfg: cfg, scraper: s, pipeline: p, transport: transport, delays: rec}
}

func racePage(id string) []byte {
	race := parsertest.Flat()
	race.Title = "Handicap " + id + " (Class 4)"
	return parsertest.Page(race)
}

func TestScraperRunMixedOutcomes(t *testing.T) {
	f := newRunFixture(t)

	broken := parsertest.Flat()
	broken.OmitRan = true
	blocked, _ := sequenceResponder(nil, http.StatusNotAcceptable)

	f.transport.RegisterResponder(http.MethodGet, testBase+"1", htmlResponder(racePage("1")))
	f.transport.RegisterResponder(http.MethodGet, testBase+"2", blocked)
	f.transport.RegisterResponder(http.MethodGet, testBase+"3", htmlResponder(racePage("3")))
	f.transport.RegisterResponder(http.MethodGet, testBase+"4", htmlResponder(parsertest.Page(broken)))
	f.transport.RegisterResponder(http.MethodGet, testBase+"5", htmlResponder(racePage("5")))

	var targets []models.TargetURL
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		targets = append(targets, testTarget(t, id))
	}

	res, err := f.scraper.Run(context.Background(), targets, f.pipeline)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := f.pipeline.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}

	meta := res.Metadata
	if meta.Discovered != 5 || meta.Succeeded != 3 || meta.Failed != 2 || meta.Void != 0 {
		t.Fatalf("counts discovered=%d succeeded=%d failed=%d void=%d", meta.Discovered, meta.Succeeded, meta.Failed, meta.Void)
	}
	if meta.CompletenessPct != 60.0 {
		t.Fatalf("completeness=%v, want 60", meta.CompletenessPct)
	}
	if meta.RowsWritten != 9 {
		t.Fatalf("rows=%d, want 9", meta.RowsWritten)
	}
	if meta.BlockErrors != 1 || meta.ErrorPattern != "mixed_with_rate_limiting" {
		t.Fatalf("block_errors=%d pattern=%s", meta.BlockErrors, meta.ErrorPattern)
	}

	if len(res.Failures) != 2 {
		t.Fatalf("failures=%d, want 2", len(res.Failures))
	}
	if f0 := res.Failures[0]; f0.ErrorKind != models.ErrorKindBlocked || f0.ErrorType != "HTTP_406" || f0.Attempts != 7 || f0.RaceID != "2" {
		t.Fatalf("unexpected block failure: %+v", f0)
	}
	if f1 := res.Failures[1]; f1.ErrorKind != models.ErrorKindParse || f1.ErrorType != "PARSE_ERROR" || f1.Attempts != 1 || f1.Country != "gb" {
		t.Fatalf("unexpected parse failure: %+v", f1)
	}

	// Normal delay, then the escalated delay after the block, then normal again.
	want := []time.Duration{time.Second, 5 * time.Second, time.Second, time.Second}
	got := f.delays.all()
	if len(got) != len(want) {
		t.Fatalf("delays=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("delays=%v, want %v", got, want)
		}
	}

	log, err := pipeline.ReadFailureLog(res.FailureLogPath)
	if err != nil {
		t.Fatalf("read failure log: %v", err)
	}
	if log.TotalFailures != 2 || log.RunID != meta.RunID {
		t.Fatalf("failure log total=%d run=%s", log.TotalFailures, log.RunID)
	}

	data, err := os.ReadFile(res.MetadataPath)
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	var decoded models.RunMetadata
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if decoded.Succeeded != 3 || decoded.CompletenessPct != 60 {
		t.Fatalf("metadata on disk: %+v", decoded)
	}
}

func TestScraperRunVoidRace(t *testing.T) {
	f := newRunFixture(t)

	void := parsertest.Flat()
	void.Notice = "Race Void - insufficient runners"
	f.transport.RegisterResponder(http.MethodGet, testBase+"1", htmlResponder(parsertest.Page(void)))

	res, err := f.scraper.Run(context.Background(), []models.TargetURL{testTarget(t, "1")}, f.pipeline)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	meta := res.Metadata
	if meta.Void != 1 || meta.Failed != 0 || meta.Succeeded != 0 || meta.RowsWritten != 0 {
		t.Fatalf("counts void=%d failed=%d succeeded=%d rows=%d", meta.Void, meta.Failed, meta.Succeeded, meta.RowsWritten)
	}
	if meta.ErrorPattern != "none" {
		t.Fatalf("pattern=%s, want none", meta.ErrorPattern)
	}
	if res.FailureLogPath != "" {
		t.Fatalf("failure log written for a run without failures")
	}
	if _, err := os.Stat(f.cfg.FailureLogPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("failure log file should not exist: %v", err)
	}
}

func TestScraperRunIsIdempotent(t *testing.T) {
	run := func() []byte {
		f := newRunFixture(t)
		var targets []models.TargetURL
		for _, id := range []string{"1", "2"} {
			f.transport.RegisterResponder(http.MethodGet, testBase+id, htmlResponder(racePage(id)))
			targets = append(targets, testTarget(t, id))
		}
		if _, err := f.scraper.Run(context.Background(), targets, f.pipeline); err != nil {
			t.Fatalf("run: %v", err)
		}
		if err := f.pipeline.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		data, err := os.ReadFile(f.cfg.OutputPath())
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		return data
	}

	first, second := run(), run()
	if len(first) == 0 {
		t.Fatalf("empty output")
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("outputs differ:\n%s\n---\n%s", first, second)
	}
}

func TestScraperRunStopsOnCancel(t *testing.T) {
	f := newRunFixture(t)
	f.transport.RegisterResponder(http.MethodGet, testBase+"1", htmlResponder(racePage("1")))
	f.transport.RegisterResponder(http.MethodGet, testBase+"2", htmlResponder(racePage("2")))

	ctx, cancel := context.WithCancel(context.Background())
	f.scraper.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res, err := f.scraper.Run(ctx, []models.TargetURL{testTarget(t, "1"), testTarget(t, "2")}, f.pipeline)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	meta := res.Metadata
	if !meta.Interrupted || meta.Succeeded != 1 || meta.Skipped != 1 || meta.Discovered != 2 {
		t.Fatalf("interrupted=%v succeeded=%d skipped=%d discovered=%d", meta.Interrupted, meta.Succeeded, meta.Skipped, meta.Discovered)
	}
	if _, err := os.Stat(res.MetadataPath); err != nil {
		t.Fatalf("metadata not written on interrupt: %v", err)
	}
}

type panicFetcher struct{}

func (panicFetcher) Fetch(context.Context, models.TargetURL) models.FetchOutcome {
	panic("boom")
}

func TestScraperRecoversPanics(t *testing.T) {
	f := newRunFixture(t)
	f.scraper.client = panicFetcher{}

	res, err := f.scraper.Run(context.Background(), []models.TargetURL{testTarget(t, "1")}, f.pipeline)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].ErrorKind != models.ErrorKindException || res.Failures[0].ErrorType != "EXCEPTION" {
		t.Fatalf("failures=%+v", res.Failures)
	}
}

type fetchFunc func(context.Context, models.TargetURL) models.FetchOutcome

func (f fetchFunc) Fetch(ctx context.Context, target models.TargetURL) models.FetchOutcome {
	return f(ctx, target)
}

func TestScraperWritesFailureLogAsFailuresHappen(t *testing.T) {
	f := newRunFixture(t)
	logPath := f.cfg.FailureLogPath()

	var onDisk []int
	f.scraper.client = fetchFunc(func(_ context.Context, target models.TargetURL) models.FetchOutcome {
		if log, err := pipeline.ReadFailureLog(logPath); err == nil {
			onDisk = append(onDisk, log.TotalFailures)
		} else {
			onDisk = append(onDisk, 0)
		}
		return models.FetchOutcome{Kind: models.OutcomeHTTPError, Status: http.StatusInternalServerError, Attempts: 1}
	})

	targets := []models.TargetURL{testTarget(t, "1"), testTarget(t, "2"), testTarget(t, "3")}
	res, err := f.scraper.Run(context.Background(), targets, f.pipeline)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := []int{0, 1, 2}; !slices.Equal(onDisk, want) {
		t.Fatalf("failures on disk before each fetch = %v, want %v", onDisk, want)
	}

	log, err := pipeline.ReadFailureLog(res.FailureLogPath)
	if err != nil {
		t.Fatalf("read failure log: %v", err)
	}
	if log.TotalFailures != 3 || log.RunID != res.Metadata.RunID {
		t.Fatalf("final log: total=%d run=%q, want 3 failures for run %q", log.TotalFailures, log.RunID, res.Metadata.RunID)
	}
}
