package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-races/models"
)

// Race types.
const (
	TypeFlat   = "Flat"
	TypeHurdle = "Hurdle"
	TypeChase  = "Chase"
	TypeNHFlat = "NH Flat"
)

var classTags = []struct {
	tags  []string
	class string
}{
	{[]string{"Class A", "Class 1"}, "Class 1"},
	{[]string{"Class B", "Class 2"}, "Class 2"},
	{[]string{"Class C", "Class 3"}, "Class 3"},
	{[]string{"Class D", "Class 4"}, "Class 4"},
	{[]string{"Class E", "Class 5"}, "Class 5"},
	{[]string{"Class F", "Class 6"}, "Class 6"},
	{[]string{"Class H", "Class 7"}, "Class 7"},
	{[]string{"Class G"}, "Class 6"},
}

var (
	parenPatternRe = regexp.MustCompile(`\((Group|Grade)\s*(\d|[A-Z][a-z]*)`)
	gradeRe        = regexp.MustCompile(`\bGrade\s+(\d|[A-C])\b`)
	localGroupRe   = regexp.MustCompile(`\(Local Group\s*(\d)`)
	nameTagRe      = regexp.MustCompile(`\(?\b(?:Class [1-7A-H]|Group [1-3]|Grade [1-3])\b\)?`)
	emptyParensRe  = regexp.MustCompile(`\(\s*\)`)
)

// ClassFromName reads a class tag embedded in a race name.
func ClassFromName(name string) string {
	for _, c := range classTags {
		for _, tag := range c.tags {
			if strings.Contains(name, tag) {
				return c.class
			}
		}
	}
	if strings.Contains(strings.ToLower(name), "(premier handicap)") {
		return "Class 2"
	}
	return ""
}

// CleanRaceName removes class and pattern tags from a race name.
func CleanRaceName(name string) string {
	s := nameTagRe.ReplaceAllString(name, "")
	s = emptyParensRe.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// PatternFromName reads a Group, Grade or Listed tag from a race name.
func PatternFromName(name string) string {
	if strings.Contains(name, "Forte Mile") && strings.Contains(name, "(Group") {
		return "Group 2"
	}
	if m := parenPatternRe.FindStringSubmatch(name); m != nil {
		return m[1] + " " + m[2]
	}
	if m := gradeRe.FindStringSubmatch(name); m != nil {
		return "Grade " + m[1]
	}
	if m := localGroupRe.FindStringSubmatch(name); m != nil {
		return "Group " + m[1]
	}
	if strings.Contains(name, "(Listed") {
		return "Listed"
	}
	return ""
}

var (
	flatBands = []struct {
		min   int
		class string
	}{
		{100, "Class 2"}, {90, "Class 3"}, {80, "Class 4"}, {70, "Class 5"}, {60, "Class 6"}, {40, "Class 7"},
	}
	jumpBands = []struct {
		min   int
		class string
	}{
		{140, "Class 2"}, {120, "Class 3"}, {100, "Class 4"}, {85, "Class 5"},
	}
)

// ClassFromRatingBand maps the upper bound of a rating band ("0-85") to a class.
func ClassFromRatingBand(band string, code models.RaceCode) string {
	_, upper, ok := strings.Cut(band, "-")
	if !ok {
		return ""
	}
	top, err := strconv.Atoi(strings.TrimSpace(upper))
	if err != nil {
		return ""
	}
	bands := flatBands
	if code == models.CodeJumps {
		bands = jumpBands
	}
	for _, b := range bands {
		if top >= b.min {
			return b.class
		}
	}
	return ""
}

// InferClass applies the class sources in priority order: the explicit class
// element, a class tag in the name, then a pattern tag (which always means
// Class 1), then the rating band.
func InferClass(explicit, rawName, ratingBand string, code models.RaceCode) (class, pattern string) {
	class = strings.TrimSpace(strings.Trim(strings.TrimSpace(explicit), "()"))
	if class == "" {
		class = ClassFromName(rawName)
	}
	if pattern = PatternFromName(rawName); pattern != "" {
		class = "Class 1"
	}
	if class == "" {
		class = ClassFromRatingBand(ratingBand, code)
	}
	return class, pattern
}

var sexRestrictions = []struct {
	phrases []string
	label   string
}{
	{[]string{"(Entire Colts & Fillies)", "(Colts & Fillies)"}, "C & F"},
	{[]string{"(Fillies & Mares)", "(Filles & Mares)"}, "F & M"},
	{[]string{"Fillies"}, "F"},
	{[]string{"(Colts & Geldings)", "(C & G)", " Colts & Geldings)"}, "C & G"},
	{[]string{"(Mares & Geldings)"}, "M & G"},
	{[]string{"Mares"}, "M"},
}

// SexRestriction reads the sex restriction from a race name. The first matching
// phrase wins, so longer phrases are tested before their substrings.
func SexRestriction(name string) string {
	for _, r := range sexRestrictions {
		for _, p := range r.phrases {
			if strings.Contains(name, p) {
				return r.label
			}
		}
	}
	return ""
}

// RaceTypeFromName guesses the race type from a race name and distance.
func RaceTypeFromName(name string, furlongs float64) string {
	lower := strings.ToLower(name)
	if furlongs >= 12 {
		for _, w := range []string{"national hunt flat", "nh flat", "mares flat race", "kepak flat race", "bumper", "inh flat", "standard open"} {
			if strings.Contains(lower, w) {
				return TypeNHFlat
			}
		}
	}
	if furlongs >= 15 {
		if strings.Contains(lower, " hurdle") {
			return TypeHurdle
		}
		if strings.Contains(lower, " chase") || strings.Contains(lower, "steeplechase") {
			return TypeChase
		}
	}
	return ""
}

// InferRaceType classifies a race from its code, name, obstacle text and distance.
func InferRaceType(code models.RaceCode, name, obstacles string, furlongs float64) string {
	lower := strings.ToLower(name)
	if code == models.CodeFlat && !strings.Contains(lower, "national hunt flat") {
		return TypeFlat
	}
	obs := strings.ToLower(obstacles)
	switch {
	case strings.Contains(obs, "hurdle"):
		return TypeHurdle
	case strings.Contains(obs, "fence"):
		return TypeChase
	}
	if t := RaceTypeFromName(name, furlongs); t != "" {
		return t
	}
	return TypeFlat
}

// EffectiveCode is the code used for time and class tables. Races scraped
// without a code take it from their inferred type.
func EffectiveCode(code models.RaceCode, raceType string) models.RaceCode {
	if code != models.CodeUnknown {
		return code
	}
	if raceType == TypeFlat {
		return models.CodeFlat
	}
	return models.CodeJumps
}
