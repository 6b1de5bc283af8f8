package pipeline

import (
	"bufio"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/aluiziolira/go-scrape-races/config"
	"github.com/aluiziolira/go-scrape-races/models"
)

func sampleRows(t *testing.T) []models.Row {
	t.Helper()
	race, runners := sampleRace("100")
	rows := make([]models.Row, len(runners))
	for i := range runners {
		rows[i] = models.Row{Race: &race, Runner: &runners[i]}
	}
	return rows
}

func TestSchemaOrderFollowsFields(t *testing.T) {
	fields := config.Fields{}
	names := NewSchema(fields).Names()
	if names[0] != "date" || names[1] != "course_id" {
		t.Fatalf("unexpected leading columns: %v", names[:2])
	}
	for _, optional := range []string{"region", "nat", "wgt", "hg", "owner", "sire", "comment", "horse_id"} {
		for _, n := range names {
			if n == optional {
				t.Fatalf("column %q should be disabled", optional)
			}
		}
	}

	fields.Region = true
	fields.IDs = true
	names = NewSchema(fields).Names()
	if names[1] != "region" {
		t.Fatalf("region should follow date, got %v", names[:3])
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "horse,horse_id,sp") {
		t.Fatalf("horse_id should follow horse: %s", joined)
	}
}

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	schema := NewSchema(config.DefaultFields())

	writer, err := NewCSVWriter(path, schema, false)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleRows(t)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	if len(records[0]) != schema.Len() {
		t.Fatalf("header has %d columns, want %d", len(records[0]), schema.Len())
	}
	if records[0][0] != "date" || records[1][0] != "2024-05-04" {
		t.Fatalf("unexpected first column: %v / %v", records[0][0], records[1][0])
	}
}

func TestCSVWriterGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv.gz")

	writer, err := NewCSVWriter(path, NewSchema(config.DefaultFields()), true)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleRows(t)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open gz: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	records, err := csv.NewReader(gz).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
}

func TestJSONWriterKeepsColumnOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.jsonl")
	schema := NewSchema(config.DefaultFields())

	writer, err := NewJSONWriter(path, schema, false)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleRows(t)); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
		line := scanner.Text()
		if !strings.HasPrefix(line, `{"date":"2024-05-04","course_id":"38"`) {
			t.Fatalf("unexpected key order: %s", line)
		}
		var decoded map[string]string
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		if len(decoded) != schema.Len() {
			t.Fatalf("keys=%d, want %d", len(decoded), schema.Len())
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if lines != 2 {
		t.Fatalf("lines=%d, want 2", lines)
	}
}

func TestDualWriterWritesBothFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutputFile = filepath.Join(dir, "results.csv")
	cfg.OutputFormat = "dual"

	writer, err := NewWriter(cfg, NewSchema(cfg.Fields))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := writer.Write(sampleRows(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "results.jsonl")); err != nil {
		t.Fatalf("jsonl sibling missing: %v", err)
	}
}

func TestJSONSibling(t *testing.T) {
	tests := map[string]string{
		"data/results.csv":    "data/results.jsonl",
		"data/results.csv.gz": "data/results.jsonl.gz",
		"results":             "results.jsonl",
	}
	for in, want := range tests {
		if got := jsonSibling(in); got != want {
			t.Fatalf("jsonSibling(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestSQLiteWriterInsertsRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.db")
	schema := NewSchema(config.DefaultFields())

	writer, err := NewSQLiteWriter(path, schema)
	if err != nil {
		t.Fatalf("create sqlite writer: %v", err)
	}
	if err := writer.Write(sampleRows(t)); err != nil {
		t.Fatalf("write sqlite: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate sqlite: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM "results"`).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 2 {
		t.Fatalf("count=%d, want 2", count)
	}
	var horse string
	if err := db.QueryRow(`SELECT "horse" FROM "results" WHERE "pos" = '2'`).Scan(&horse); err != nil {
		t.Fatalf("select horse: %v", err)
	}
	if horse != "Second Horse" {
		t.Fatalf("horse=%q", horse)
	}
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "results.csv")
	cfg.OutputFormat = "xml"
	if _, err := NewWriter(cfg, NewSchema(cfg.Fields)); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
