// Package parser turns a race result page into a race record and its runner rows.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aluiziolira/go-scrape-races/models"
)

var tracer = otel.Tracer("github.com/aluiziolira/go-scrape-races/parser")

// ResultKind distinguishes a parsed race from a void one.
type ResultKind int

const (
	ResultParsed ResultKind = iota
	ResultVoid
)

func (k ResultKind) String() string {
	if k == ResultVoid {
		return "void"
	}
	return "parsed"
}

// Result is the outcome of parsing one page. Void results carry no runners.
type Result struct {
	Kind    ResultKind
	Race    models.RaceRecord
	Runners []models.RunnerRow
}

// ParseError reports a page whose structure did not match expectations.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Field, e.Reason)
}

func parseErr(field, format string, args ...any) *ParseError {
	return &ParseError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Options tunes parsing.
type Options struct {
	// VoidMarkers are lower-case phrases whose presence marks the race void.
	VoidMarkers []string
}

// IsVoid reports whether the page text contains any void marker.
func IsVoid(doc *goquery.Document, markers []string) bool {
	text := strings.ToLower(cleanText(doc.Text()))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" && strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Parse extracts the race and its runners from a result page body.
func Parse(ctx context.Context, body []byte, target models.TargetURL, code models.RaceCode, opts Options) (res Result, err error) {
	_, span := tracer.Start(ctx, "parser.Parse")
	span.SetAttributes(attribute.String("race.id", target.RaceID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.String("parse.result", res.Kind.String()))
		}
		span.End()
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, parseErr("document", "%v", err)
	}

	race := models.RaceRecord{
		RaceID:   target.RaceID,
		CourseID: target.CourseID,
		Course:   titleCase(strings.ReplaceAll(target.CourseName, "-", " ")),
		Date:     target.Date,
	}

	if IsVoid(doc, opts.VoidMarkers) {
		return Result{Kind: ResultVoid, Race: race}, nil
	}

	if err := parseHeader(doc, &race, code); err != nil {
		return Result{}, err
	}

	runners, err := parseRunners(doc, &race, code)
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: ResultParsed, Race: race, Runners: runners}, nil
}

func parseHeader(doc *goquery.Document, race *models.RaceRecord, code models.RaceCode) error {
	race.Off = cleanText(doc.Find(`span[data-test-selector="text-raceTime"]`).First().Text())
	rawName := strings.ReplaceAll(cleanText(doc.Find("h2.rp-raceTimeCourseName__title").First().Text()), `"`, "")
	if rawName == "" {
		return parseErr("race_name", "missing race title")
	}

	band := strings.Trim(cleanText(doc.Find("span.rp-raceTimeCourseName_ratingBandAndAgesAllowed").First().Text()), "()")
	for _, part := range strings.Split(band, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.Contains(part, "yo"):
			race.AgeBand = part
		case strings.Contains(part, "-"):
			race.RatingBand = part
		}
	}

	display := cleanText(doc.Find(`span[data-test-selector="block-distanceInd"]`).First().Text())
	full := cleanText(doc.Find(`span[data-test-selector="block-fullDistanceInd"]`).First().Text())
	dist, err := ResolveDistance(display, full)
	if err != nil {
		return parseErr("dist", "%v", err)
	}
	race.Distance = display
	race.DistFurlongs = dist.Furlongs
	race.DistMetres = dist.Metres
	race.DistYards = dist.Yards

	race.Going = cleanText(doc.Find("span.rp-raceTimeCourseName_condition").First().Text())
	obstacles := cleanText(doc.Find("span.rp-raceTimeCourseName_hurdles").First().Text())

	race.Type = InferRaceType(code, rawName, obstacles, race.DistFurlongs)
	race.Class, race.Pattern = InferClass(
		doc.Find("span.rp-raceTimeCourseName_class").First().Text(),
		rawName, race.RatingBand, EffectiveCode(code, race.Type),
	)
	race.SexRest = SexRestriction(rawName)
	race.Name = CleanRaceName(rawName)

	ranText := cleanText(doc.Find("span.rp-raceInfo__value_black").First().Text())
	ran, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(strings.ToLower(ranText), "ran")))
	if err != nil {
		return parseErr("ran", "unreadable runner count %q", ranText)
	}
	race.Ran = ran

	if text, ok := winningTimeText(doc); ok {
		if secs, ok := ParseWinningTime(text); ok {
			race.WinningTime = secs
		}
	}
	return nil
}

// winningTimeText finds the winning time among the plain info values of the
// first race-info line. The runner count shares the class prefix, so matching
// is on the exact class attribute.
func winningTimeText(doc *goquery.Document) (string, bool) {
	var values []string
	doc.Find("div.rp-raceInfo li").First().Find("span").Each(func(_ int, s *goquery.Selection) {
		if class, _ := s.Attr("class"); strings.TrimSpace(class) == "rp-raceInfo__value" {
			values = append(values, cleanText(s.Text()))
		}
	})
	switch len(values) {
	case 3:
		return values[1], true
	case 2:
		return values[0], true
	}
	return "", false
}

func parseRunners(doc *goquery.Document, race *models.RaceRecord, code models.RaceCode) ([]models.RunnerRow, error) {
	rows := doc.Find("tr.rp-horseTable__mainRow")
	n := rows.Length()
	if n == 0 {
		return nil, parseErr("runners", "no result rows")
	}

	cols := columns{n: n, rows: rows}

	pos := cols.required("pos", func(r *goquery.Selection) (string, bool) {
		s := r.Find(`span[data-test-selector="text-horsePosition"]`)
		return ownText(s.First()), s.Length() > 0
	})
	num := cols.required("num", func(r *goquery.Selection) (string, bool) {
		s := r.Find("span.rp-horseTable__saddleClothNo")
		return strings.TrimSuffix(cleanText(s.First().Text()), "."), s.Length() > 0
	})
	horseLinks := cols.links("horse", `a[data-test-selector="link-horseName"]`)
	nat := cols.required("nat", func(r *goquery.Selection) (string, bool) {
		s := r.Find("span.rp-horseTable__horse__country")
		return cleanNationality(cleanText(s.First().Text())), s.Length() > 0
	})
	sp := cols.required("sp", textOf("span.rp-horseTable__horse__price"))
	jockeys := cols.links("jockey", `a[data-test-selector="link-jockeyName"]`)
	trainers := cols.links("trainer", `a[data-test-selector="link-trainerName"]`)
	silks := cols.required("owner", func(r *goquery.Selection) (string, bool) {
		s := r.Find(`a[data-test-selector="link-silk"]`).First()
		href, ok := s.Attr("href")
		return href, ok
	})
	silkURLs := cols.optional(func(r *goquery.Selection) string {
		src, _ := r.Find(`a[data-test-selector="link-silk"] img`).First().Attr("src")
		return src
	})
	age := cols.required("age", textOf(`td[data-test-selector="horse-age"]`))
	or := cols.required("or", textOf(`td[data-ending="OR"]`))
	ts := cols.required("ts", textOf(`td[data-ending="TS"]`))
	rpr := cols.required("rpr", textOf(`td[data-ending="RPR"]`))
	st := cols.required("wgt", textOf(`span[data-ending="st"]`))
	lb := cols.required("wgt", textOf(`span[data-ending="lb"]`))
	headgear := cols.optional(func(r *goquery.Selection) string {
		return cleanText(r.Find("td.rp-horseTable__wgt span.rp-horseTable__headGear").First().Text())
	})

	draws := cols.optional(func(r *goquery.Selection) string {
		return strings.Trim(cleanText(r.Find("sup.rp-horseTable__pos__draw").First().Text()), "()")
	})
	if present := countNonEmpty(draws); present != 0 && present != n {
		cols.check("draw", present)
	}

	var cells []lengthCell
	rows.Each(func(_ int, r *goquery.Selection) {
		var c lengthCell
		r.Find("span.rp-horseTable__pos__length").First().Find("span").Each(func(_ int, s *goquery.Selection) {
			t := cleanText(s.Text())
			c.parts = append(c.parts, &t)
		})
		cells = append(cells, c)
	})
	btnRaw, ovrRaw := beatenMargins(cells)

	comments := docColumn(doc, "tr.rp-horseTable__commentRow > td")
	pedigrees := docColumn(doc, `tr[data-test-selector="block-pedigreeInfoFullResults"] > td`)
	cols.check("comment", len(comments))
	cols.check("pedigree", len(pedigrees))

	prizes := cols.optional(func(r *goquery.Selection) string {
		s := r.Find(`td.rp-horseTable__prize div[data-test-selector="text-prizeMoney"]`).First()
		return prizeAmount(s.Text())
	})

	if cols.err != nil {
		return nil, cols.err
	}

	lps := LengthsPerSecond(race.Going, EffectiveCode(code, race.Type), race.Course)
	runners := make([]models.RunnerRow, n)
	for i := range runners {
		r := &runners[i]
		r.Num = num[i]
		r.Pos = pos[i]
		r.Draw = draws[i]
		r.BtnRaw, r.OvrBtnRaw = btnRaw[i], ovrRaw[i]
		r.Btn, r.OvrBtn = NormalizeBeaten(btnRaw[i]), NormalizeBeaten(ovrRaw[i])
		r.Horse, r.HorseID = cleanText(horseLinks[i].text), profileID(horseLinks[i].href)
		r.Nat = nat[i]
		r.SP = sp[i]
		r.Dec = FractionToDecimal(sp[i])
		r.Age = age[i]
		r.OR, r.TS, r.RPR = or[i], ts[i], rpr[i]
		r.Jockey, r.JockeyID = cleanText(jockeys[i].text), profileID(jockeys[i].href)
		r.Trainer, r.TrainerID = cleanText(trainers[i].text), profileID(trainers[i].href)
		r.Owner, r.OwnerID = ownerFromHref(silks[i]), profileID(silks[i])
		r.SilkURL = silkURLs[i]
		r.HG = headgear[i]
		r.Prize = prizes[i]
		r.Comment = comments[i].text

		stones, err1 := strconv.Atoi(st[i])
		pounds, err2 := strconv.Atoi(lb[i])
		if err1 != nil || err2 != nil {
			return nil, parseErr("wgt", "unreadable weight %q-%q for runner %d", st[i], lb[i], i+1)
		}
		r.Wgt = fmt.Sprintf("%d-%d", stones, pounds)
		r.Lbs = stones*14 + pounds

		applyPedigree(r, pedigrees[i].sel)

		if _, err := strconv.Atoi(r.Pos); err == nil && race.WinningTime > 0 {
			if dist, ok := timeBeaten(r.BtnRaw, r.OvrBtnRaw); ok {
				secs := RunnerTime(race.WinningTime, dist, lps)
				r.Time = FormatRaceTime(secs)
				r.Secs = strconv.FormatFloat(round2(secs), 'f', 2, 64)
			}
		}
	}
	return runners, nil
}

func applyPedigree(r *models.RunnerRow, td *goquery.Selection) {
	fields := strings.Fields(ownText(td))
	if len(fields) > 1 {
		r.Sex = strings.ToUpper(fields[1])
	} else if len(fields) == 1 {
		r.Sex = strings.ToUpper(fields[0])
	}

	links := td.Find("a")
	if links.Length() > 0 {
		r.Sire, _ = SplitNationality(cleanText(links.Eq(0).Text()))
	}
	if links.Length() > 1 {
		r.Dam, _ = SplitNationality(cleanText(ownText(links.Eq(1))))
	}
	if links.Length() > 2 {
		damsire := cleanText(links.Eq(2).Text())
		damsire = strings.TrimSuffix(strings.TrimPrefix(damsire, "("), ")")
		if strings.EqualFold(damsire, "Damsire Unregistered") {
			damsire = ""
		}
		r.Damsire, _ = SplitNationality(damsire)
	}
}

// prizeAmount strips the currency sign and separators from a prize.
func prizeAmount(text string) string {
	return strings.TrimSpace(strings.NewReplacer(",", "", "£", "", "€", "").Replace(cleanText(text)))
}

func pad(vals []string, n int) []string {
	for len(vals) < n {
		vals = append(vals, "")
	}
	return vals[:n]
}

func countNonEmpty(vals []string) int {
	c := 0
	for _, v := range vals {
		if v != "" {
			c++
		}
	}
	return c
}
