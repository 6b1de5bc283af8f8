// Package courses is the read-only course and region lookup used by discovery
// and the CLI.
package courses

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"
)

// RegionsFile holds the region code to display name map.
const RegionsFile = "_countries.json5"

// Course is one track.
type Course struct {
	ID     string
	Name   string
	Region string
}

// Slug is the course name as it appears in result-page paths.
func (c Course) Slug() string {
	return Slug(c.Name)
}

// Slug lower-cases name, joins words with hyphens and drops apostrophes.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "'", "")
	return strings.Join(strings.Fields(s), "-")
}

// Lookup resolves course ids and region membership.
type Lookup interface {
	CourseName(id string) (string, bool)
	RegionCourses(region string) []Course
}

// Table is an in-memory Lookup.
type Table struct {
	byID     map[string]Course
	byRegion map[string][]Course
	regions  map[string]string
}

// NewTable indexes courses. regions maps region codes to display names.
func NewTable(courses []Course, regions map[string]string) *Table {
	t := &Table{
		byID:     make(map[string]Course, len(courses)),
		byRegion: make(map[string][]Course),
		regions:  make(map[string]string, len(regions)),
	}
	for code, name := range regions {
		t.regions[strings.ToLower(code)] = name
	}
	for _, c := range courses {
		c.Region = strings.ToLower(c.Region)
		t.byID[c.ID] = c
		t.byRegion[c.Region] = append(t.byRegion[c.Region], c)
	}
	for _, list := range t.byRegion {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return t
}

// LoadDir reads _countries.json5 and one <region>_course_ids file per region.
// Course files hold "id - name" lines; blank lines and # comments are ignored.
func LoadDir(dir string) (*Table, error) {
	data, err := os.ReadFile(filepath.Join(dir, RegionsFile))
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	regions := map[string]string{}
	if err := json5.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("decode %s: %w", RegionsFile, err)
	}

	var all []Course
	for code := range regions {
		code = strings.ToLower(code)
		f, err := os.Open(filepath.Join(dir, code+"_course_ids"))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open courses for %s: %w", code, err)
		}
		list, err := ReadCourses(f, code)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("courses for %s: %w", code, err)
		}
		all = append(all, list...)
	}
	return NewTable(all, regions), nil
}

// ReadCourses parses "id - name" lines.
func ReadCourses(r io.Reader, region string) ([]Course, error) {
	var out []Course
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id, name, ok := strings.Cut(text, "-")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("line %d: want \"id - name\", got %q", line, text)
		}
		out = append(out, Course{ID: id, Name: name, Region: region})
	}
	return out, scanner.Err()
}

// CourseName returns the display name for id.
func (t *Table) CourseName(id string) (string, bool) {
	c, ok := t.byID[id]
	return c.Name, ok
}

// Course returns the course with id.
func (t *Table) Course(id string) (Course, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// RegionCourses lists a region's courses by name. An unknown region yields nil.
func (t *Table) RegionCourses(region string) []Course {
	list := t.byRegion[strings.ToLower(region)]
	out := make([]Course, len(list))
	copy(out, list)
	return out
}

// HasRegion reports whether code is a known region.
func (t *Table) HasRegion(code string) bool {
	_, ok := t.regions[strings.ToLower(code)]
	return ok
}

// Regions returns region codes in sorted order.
func (t *Table) Regions() []string {
	out := make([]string, 0, len(t.regions))
	for code := range t.regions {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// RegionName returns the display name of a region code.
func (t *Table) RegionName(code string) string {
	return t.regions[strings.ToLower(code)]
}

// Match is a search hit.
type Match struct {
	Course
	Score float64
}

// Search ranks every course by Jaro-Winkler similarity to term and returns
// the best limit matches scoring at least minScore. Substring hits rank first.
func (t *Table) Search(term string, limit int, minScore float64) []Match {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}

	var out []Match
	for _, c := range t.byID {
		name := strings.ToLower(c.Name)
		score := matchr.JaroWinkler(term, name, false)
		if strings.Contains(name, term) {
			score = 1 + score
		}
		if score >= minScore {
			out = append(out, Match{Course: c, Score: score})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
