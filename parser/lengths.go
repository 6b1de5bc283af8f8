package parser

import (
	"strconv"
	"strings"
)

// DeadHeat is the margin token for runners that finished level.
const DeadHeat = "dht"

var beatenShorthand = map[string]float64{
	"snk":    0.2,
	"nk":     0.3,
	"sht-hd": 0.1,
	"shd":    0.1,
	"hd":     0.2,
	"nse":    0.05,
	"dht":    0,
	"dist":   30,
}

var fractionGlyphs = []struct {
	glyph string
	value float64
}{
	{"¼", 0.25},
	{"½", 0.5},
	{"¾", 0.75},
}

// ParseBeaten converts a margin token ("1½", "nk", "[3¾]", "dht") into lengths.
func ParseBeaten(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), "[]"))
	if s == "" {
		return 0, false
	}
	if v, ok := beatenShorthand[strings.ToLower(s)]; ok {
		return v, true
	}

	frac := 0.0
	for _, g := range fractionGlyphs {
		if strings.HasSuffix(s, g.glyph) {
			frac = g.value
			s = strings.TrimSuffix(s, g.glyph)
			break
		}
	}
	if s == "" {
		return frac, frac > 0
	}
	whole, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return whole + frac, true
}

// NormalizeBeaten renders ParseBeaten's value, or "" for tokens it cannot read.
func NormalizeBeaten(raw string) string {
	v, ok := ParseBeaten(raw)
	if !ok {
		return ""
	}
	return formatFloat(v)
}

// lengthCell is the margin text found for one runner: one part when the beaten
// distance to the previous runner equals the distance to the winner, two parts
// otherwise. A nil part means the element was present but empty.
type lengthCell struct {
	parts []*string
}

// beatenMargins resolves per-runner raw margins. A dead heat inherits the previous
// runner's cumulative distance instead of resetting to zero.
func beatenMargins(cells []lengthCell) (btn, ovr []string) {
	btn = make([]string, 0, len(cells))
	ovr = make([]string, 0, len(cells))

	text := func(p *string) string {
		if p == nil || strings.TrimSpace(*p) == "" {
			return "0"
		}
		return strings.TrimSpace(*p)
	}

	for _, c := range cells {
		switch len(c.parts) {
		case 0:
			btn = append(btn, "")
			ovr = append(ovr, "")
		case 1:
			b := text(c.parts[0])
			switch {
			case b == "0":
				btn = append(btn, "0")
				ovr = append(ovr, "0")
			case strings.EqualFold(b, DeadHeat):
				btn = append(btn, b)
				if len(ovr) > 0 {
					ovr = append(ovr, ovr[len(ovr)-1])
				} else {
					ovr = append(ovr, b)
				}
			default:
				btn = append(btn, b)
				ovr = append(ovr, b)
			}
		default:
			btn = append(btn, text(c.parts[0]))
			ovr = append(ovr, strings.Trim(text(c.parts[1]), "[]"))
		}
	}
	return btn, ovr
}

// timeBeaten is the distance used for a runner's elapsed time. Margins below a
// quarter length are added to the cumulative distance so that runners separated
// by a short head or nose do not share a time with the one in front.
func timeBeaten(btn, ovr string) (float64, bool) {
	o, okO := ParseBeaten(ovr)
	b, okB := ParseBeaten(btn)
	if okB && okO && b < 0.25 {
		return b + o, true
	}
	return o, okO
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
