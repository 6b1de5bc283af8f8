package discovery

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006/01/02"

// ParseDates accepts a single YYYY/MM/DD date or an inclusive range
// YYYY/MM/DD-YYYY/MM/DD, in either order.
func ParseDates(arg string) ([]time.Time, error) {
	from, to, isRange := strings.Cut(strings.TrimSpace(arg), "-")
	start, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: want YYYY/MM/DD", from)
	}
	if !isRange {
		return []time.Time{start}, nil
	}
	end, err := time.Parse(dateLayout, strings.TrimSpace(to))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: want YYYY/MM/DD", to)
	}
	if end.Before(start) {
		start, end = end, start
	}

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out, nil
}

// ParseYears accepts a single year or an inclusive range like 2019-2021.
func ParseYears(arg string) ([]string, error) {
	from, to, isRange := strings.Cut(strings.TrimSpace(arg), "-")
	start, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil || start < 1900 {
		return nil, fmt.Errorf("invalid year %q", from)
	}
	end := start
	if isRange {
		end, err = strconv.Atoi(strings.TrimSpace(to))
		if err != nil || end < 1900 {
			return nil, fmt.Errorf("invalid year %q", to)
		}
	}
	if end < start {
		start, end = end, start
	}

	out := make([]string, 0, end-start+1)
	for y := start; y <= end; y++ {
		out = append(out, strconv.Itoa(y))
	}
	return out, nil
}
