package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-races/models"
)

var timeRe = regexp.MustCompile(`(?:(\d+)m\s*)?(\d+(?:\.\d+)?)s`)

// LengthsPerSecond converts beaten lengths to seconds for the given going.
// The all-weather surface at Southwell rides slower than other fast ground.
func LengthsPerSecond(going string, code models.RaceCode, course string) float64 {
	g := strings.ToLower(going)
	southwell := strings.Contains(strings.ToLower(course), "southwell")
	softish := strings.Contains(g, "soft") || strings.Contains(g, "yielding")

	if code == models.CodeFlat {
		switch {
		case containsAny(g, "firm", "standard", "fast", "hard", "slow", "sloppy"):
			if southwell {
				return 5
			}
			return 6
		case strings.Contains(g, "good"):
			if softish {
				return 5.5
			}
			return 6
		case containsAny(g, "soft", "heavy", "yielding"):
			return 5
		}
		return 6
	}

	switch {
	case containsAny(g, "firm", "standard"):
		if southwell {
			return 4
		}
		return 5
	case strings.Contains(g, "good"):
		if softish {
			return 4.5
		}
		return 5
	case containsAny(g, "soft", "heavy", "yielding", "slow"):
		return 4
	}
	return 5
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ParseWinningTime reads a displayed winning time such as "1m 39.86s". When the
// primary reading is the zero sentinel, the parenthesised phrase is used instead.
func ParseWinningTime(text string) (float64, bool) {
	primary, fallback, _ := strings.Cut(text, "(")
	if secs, ok := readTime(primary); ok && secs > 0 {
		return secs, true
	}
	if secs, ok := readTime(fallback); ok && secs > 0 {
		return secs, true
	}
	return 0, false
}

func readTime(s string) (float64, bool) {
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	if m[1] != "" {
		mins, _ := strconv.Atoi(m[1])
		secs += float64(mins * 60)
	}
	return secs, true
}

// FormatRaceTime renders seconds as "m:ss.hh", rounded to hundredths.
func FormatRaceTime(secs float64) string {
	hundredths := int64(math.Round(secs * 100))
	mins := hundredths / 6000
	rest := hundredths % 6000
	return fmt.Sprintf("%d:%d.%02d", mins, rest/100, rest%100)
}

// RunnerTime is the elapsed time of a runner beaten dist lengths.
func RunnerTime(winning, dist, lps float64) float64 {
	return winning + dist/lps
}
