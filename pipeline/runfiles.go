package pipeline

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aluiziolira/go-scrape-races/models"
)

// WriteMetadata writes the run summary document.
func WriteMetadata(path string, meta models.RunMetadata) error {
	return writeJSON(path, meta)
}

// WriteFailureLog writes the replayable failure log.
func WriteFailureLog(path string, log models.FailureLog) error {
	if log.Failures == nil {
		log.Failures = []models.FailureRecord{}
	}
	log.TotalFailures = len(log.Failures)
	return writeJSON(path, log)
}

// ReadFailureLog loads a failure log written by a previous run.
func ReadFailureLog(path string) (*models.FailureLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read failure log: %w", err)
	}
	var log models.FailureLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode failure log %s: %w", path, err)
	}
	return &log, nil
}

func writeJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	data = append(data, '\n')

	// The document on disk is always complete: write aside, then rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
