package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// RaceCode selects the racing code a result page belongs to. An empty code means
// the code is unknown up front (date discovery) and is inferred per race.
type RaceCode string

const (
	CodeFlat    RaceCode = "flat"
	CodeJumps   RaceCode = "jumps"
	CodeUnknown RaceCode = ""
)

// ParseRaceCode accepts the spellings the CLI has always accepted.
func ParseRaceCode(s string) (RaceCode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "-f", "f":
		return CodeFlat, nil
	case "jumps", "jump", "-j", "j":
		return CodeJumps, nil
	case "":
		return CodeUnknown, nil
	default:
		return CodeUnknown, fmt.Errorf("invalid racing code %q: expected flat or jumps", s)
	}
}

var resultPathPattern = regexp.MustCompile(`^/results/([^/]+)/([^/]+)/(\d{4}-\d{2}-\d{2})/([^/]+)/?$`)

// TargetURL is one result page plus the identifiers encoded in its path.
type TargetURL struct {
	URL        string
	CourseID   string
	CourseName string
	Date       string
	RaceID     string
}

// ParseTargetURL matches /results/{course_id}/{course_name}/{yyyy-mm-dd}/{race_id}.
func ParseTargetURL(raw string) (TargetURL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return TargetURL{}, fmt.Errorf("parse target url: %w", err)
	}
	if u.Host == "" {
		return TargetURL{}, fmt.Errorf("target url %q must be absolute", raw)
	}
	m := resultPathPattern.FindStringSubmatch(u.Path)
	if m == nil {
		return TargetURL{}, fmt.Errorf("target url %q does not match /results/{course_id}/{course}/{date}/{race_id}", raw)
	}
	return TargetURL{
		URL:        raw,
		CourseID:   m[1],
		CourseName: m[2],
		Date:       m[3],
		RaceID:     m[4],
	}, nil
}

// ParseTargetURLs parses every entry, returning the first error encountered.
func ParseTargetURLs(raws []string) ([]TargetURL, error) {
	out := make([]TargetURL, 0, len(raws))
	for _, raw := range raws {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		t, err := ParseTargetURL(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
