// Package analyzer diagnoses a run's failures: was the target throttling us, or
// did something about the pages change?
package analyzer

import (
	"sort"
	"time"

	"github.com/aluiziolira/go-scrape-races/models"
)

// Pattern is the five-way classification of a failure set.
type Pattern string

const (
	PatternNone           Pattern = "none"
	PatternAllRateLimited Pattern = "all_rate_limited"
	PatternMostly         Pattern = "mostly_rate_limited"
	PatternMixed          Pattern = "mixed_with_rate_limiting"
	PatternOtherErrors    Pattern = "other_errors"
)

const (
	clusterWindow          = 2 * time.Minute
	clusterMinimumFailures = 3
)

// Diagnosis bundles the analyzer outputs recorded in run metadata.
type Diagnosis struct {
	BlockErrors       int
	LikelyRateLimited bool
	Pattern           Pattern
}

func blockCount(failures []models.FailureRecord) int {
	n := 0
	for _, f := range failures {
		if f.IsBlock() {
			n++
		}
	}
	return n
}

// LikelyRateLimited is true when more than half the failures are blocks, or when
// at least three failures all happened inside a two-minute window.
func LikelyRateLimited(failures []models.FailureRecord) bool {
	if len(failures) == 0 {
		return false
	}
	if float64(blockCount(failures))/float64(len(failures)) > 0.5 {
		return true
	}
	if len(failures) < clusterMinimumFailures {
		return false
	}

	stamps := make([]time.Time, 0, len(failures))
	for _, f := range failures {
		if f.Timestamp.IsZero() {
			return false
		}
		stamps = append(stamps, f.Timestamp)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	return stamps[len(stamps)-1].Sub(stamps[0]) < clusterWindow
}

// Classify buckets the failures by the share that are blocks.
func Classify(failures []models.FailureRecord) Pattern {
	if len(failures) == 0 {
		return PatternNone
	}

	blocks := blockCount(failures)
	share := float64(blocks) / float64(len(failures))
	switch {
	case blocks == 0:
		return PatternOtherErrors
	case blocks == len(failures):
		return PatternAllRateLimited
	case share > 0.8:
		return PatternMostly
	case share >= 0.5:
		return PatternMixed
	default:
		return PatternOtherErrors
	}
}

// Summarize runs both analyses.
func Summarize(failures []models.FailureRecord) Diagnosis {
	return Diagnosis{
		BlockErrors:       blockCount(failures),
		LikelyRateLimited: LikelyRateLimited(failures),
		Pattern:           Classify(failures),
	}
}

// Advice is the operator hint printed next to the pattern.
func (p Pattern) Advice() string {
	switch p {
	case PatternAllRateLimited, PatternMostly:
		return "target throttled the run; retry the failure log later with a longer delay"
	case PatternMixed:
		return "partly throttled; retry the failure log and inspect any non-block failures"
	case PatternOtherErrors:
		return "failures are not block-related; inspect the parser against a failed page"
	default:
		return ""
	}
}
