package pipeline

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"

	"github.com/aluiziolira/go-scrape-races/config"
	"github.com/aluiziolira/go-scrape-races/models"
)

// NewWriter builds the writer selected by cfg.OutputFormat.
func NewWriter(cfg *config.Config, schema *Schema) (OutputWriter, error) {
	path := cfg.OutputPath()
	switch cfg.OutputFormat {
	case "csv":
		return NewCSVWriter(path, schema, cfg.Gzip)
	case "json":
		return NewJSONWriter(path, schema, cfg.Gzip)
	case "dual":
		return NewDualWriter(path, jsonSibling(path), schema, cfg.Gzip)
	case "sqlite":
		return NewSQLiteWriter(path, schema)
	default:
		return nil, fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
}

// jsonSibling maps results.csv(.gz) to results.jsonl(.gz).
func jsonSibling(path string) string {
	gz := strings.HasSuffix(path, ".gz")
	base := strings.TrimSuffix(path, ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base)) + ".jsonl"
	if gz {
		base += ".gz"
	}
	return base
}

// sink is a buffered output file, optionally gzip-compressed.
type sink struct {
	path string
	file *os.File
	gz   *gzip.Writer
	buf  *bufio.Writer
}

func openSink(path string, gzipped bool) (*sink, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	s := &sink{path: path, file: f}
	if gzipped {
		s.gz = gzip.NewWriter(f)
		s.buf = bufio.NewWriter(s.gz)
	} else {
		s.buf = bufio.NewWriter(f)
	}
	return s, nil
}

func (s *sink) Write(p []byte) (int, error) {
	return s.buf.Write(p)
}

// Flush pushes buffered bytes to disk so an interrupted run leaves a valid prefix.
func (s *sink) Flush() error {
	if err := s.buf.Flush(); err != nil {
		return err
	}
	if s.gz != nil {
		return s.gz.Flush()
	}
	return nil
}

func (s *sink) Close() error {
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return err
	}
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			s.file.Close()
			return err
		}
	}
	return s.file.Close()
}

func (s *sink) validate(kind string) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

// CSVWriter writes rows to CSV with a schema header.
type CSVWriter struct {
	out    *sink
	writer *csv.Writer
	schema *Schema
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string, schema *Schema, gzipped bool) (*CSVWriter, error) {
	out, err := openSink(filename, gzipped)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(schema.Names()); err != nil {
		out.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		out.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}
	if err := out.Flush(); err != nil {
		out.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		out:    out,
		writer: writer,
		schema: schema,
	}, nil
}

// Write appends rows to the CSV output.
func (cw *CSVWriter) Write(rows []models.Row) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, row := range rows {
		if err := cw.writer.Write(cw.schema.Record(row)); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	if err := cw.out.Flush(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.out.Close()
}

// Validate ensures the file has content.
func (cw *CSVWriter) Validate() error {
	return cw.out.validate("csv")
}

// JSONWriter writes newline-delimited JSON records with keys in schema order.
type JSONWriter struct {
	out    *sink
	schema *Schema
	mu     sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string, schema *Schema, gzipped bool) (*JSONWriter, error) {
	out, err := openSink(filename, gzipped)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{out: out, schema: schema}, nil
}

// Write appends rows in JSONL format.
func (jw *JSONWriter) Write(rows []models.Row) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	names := jw.schema.Names()
	for _, row := range rows {
		line, err := encodeOrdered(names, jw.schema.Record(row))
		if err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		if _, err := jw.out.Write(line); err != nil {
			return fmt.Errorf("write json record: %w", err)
		}
	}

	if err := jw.out.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.out.Close()
}

// Validate ensures the JSON file has data.
func (jw *JSONWriter) Validate() error {
	return jw.out.validate("json")
}

// encodeOrdered renders one JSON object; a map would lose column order.
func encodeOrdered(names, values []string) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(values[i])
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteString("}\n")
	return b.Bytes(), nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
