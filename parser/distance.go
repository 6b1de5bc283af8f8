package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	metresPerMile    = 1609.34
	metresPerFurlong = 201.168
	metresPerYard    = 0.914
	yardsPerMetre    = 1.09361
)

var (
	displayDistRe = regexp.MustCompile(`^(?:(\d+)m)?(?:(\d*(?:\.\d+)?)f)?(?:(\d+)y(?:ds)?)?$`)
	fullDistRe    = regexp.MustCompile(`(?:(\d+)m)?\s*(?:(\d+)f)?\s*(?:(\d+)y(?:ds)?)?`)
)

// Distance is a race distance in the units the output carries.
type Distance struct {
	Furlongs float64
	Metres   int
	Yards    int
}

// DistanceToFurlongs reads a display distance such as "1m2½f" or "7f".
func DistanceToFurlongs(display string) (float64, error) {
	s := strings.ToLower(strings.Join(strings.Fields(display), ""))
	for _, g := range fractionGlyphs {
		s = strings.ReplaceAll(s, g.glyph, strconv.FormatFloat(g.value, 'f', -1, 64)[1:])
	}
	if s == "" {
		return 0, fmt.Errorf("empty distance")
	}
	m := displayDistRe.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, fmt.Errorf("unrecognised distance %q", display)
	}

	var furlongs float64
	if m[1] != "" {
		miles, _ := strconv.Atoi(m[1])
		furlongs += float64(miles * 8)
	}
	if m[2] != "" {
		f, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0, fmt.Errorf("unrecognised furlongs in %q", display)
		}
		furlongs += f
	}
	if m[3] != "" {
		yds, _ := strconv.Atoi(m[3])
		furlongs += float64(yds) / 220
	}
	return round2(furlongs), nil
}

// DistanceToMetres reads a full distance such as "(1m2f110yds)". It returns 0
// when nothing in the text is a distance.
func DistanceToMetres(full string) int {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(full), "()"))
	var m []string
	for _, cand := range fullDistRe.FindAllStringSubmatch(s, -1) {
		if cand[1] != "" || cand[2] != "" || cand[3] != "" {
			m = cand
			break
		}
	}
	if m == nil {
		return 0
	}
	var metres float64
	if m[1] != "" {
		v, _ := strconv.Atoi(m[1])
		metres += float64(v) * metresPerMile
	}
	if m[2] != "" {
		v, _ := strconv.Atoi(m[2])
		metres += float64(v) * metresPerFurlong
	}
	if m[3] != "" {
		v, _ := strconv.Atoi(m[3])
		metres += float64(v) * metresPerYard
	}
	return int(math.Round(metres))
}

// ResolveDistance combines the display and full distance. When a full distance
// is present, metres come from it and furlongs are derived back from metres.
func ResolveDistance(display, full string) (Distance, error) {
	furlongs, err := DistanceToFurlongs(display)
	if err != nil {
		return Distance{}, err
	}
	d := Distance{Furlongs: furlongs}
	if metres := DistanceToMetres(full); metres > 0 {
		d.Metres = metres
		d.Furlongs = round2(float64(metres) / metresPerFurlong)
	} else {
		d.Metres = int(math.Round(furlongs * metresPerFurlong))
	}
	d.Yards = int(math.Round(float64(d.Metres) * yardsPerMetre))
	return d, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
