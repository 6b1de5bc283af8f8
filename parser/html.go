package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type link struct {
	text string
	href string
}

type docCell struct {
	text string
	sel  *goquery.Selection
}

// columns extracts per-runner values from the result table rows and records the
// first column whose length differs from the runner count.
type columns struct {
	n    int
	rows *goquery.Selection
	err  error
}

func (c *columns) check(field string, got int) {
	if c.err == nil && got != c.n {
		c.err = parseErr(field, "found %d values for %d runners", got, c.n)
	}
}

// required collects one value per row. A row without the element shortens the
// column, which fails the cardinality check.
func (c *columns) required(field string, get func(*goquery.Selection) (string, bool)) []string {
	out := make([]string, 0, c.n)
	c.rows.Each(func(_ int, r *goquery.Selection) {
		if v, ok := get(r); ok {
			out = append(out, v)
		}
	})
	c.check(field, len(out))
	return pad(out, c.n)
}

// optional collects one value per row, empty where the element is absent.
func (c *columns) optional(get func(*goquery.Selection) string) []string {
	out := make([]string, 0, c.n)
	c.rows.Each(func(_ int, r *goquery.Selection) {
		out = append(out, get(r))
	})
	return out
}

func (c *columns) links(field, selector string) []link {
	out := make([]link, 0, c.n)
	c.rows.Each(func(_ int, r *goquery.Selection) {
		a := r.Find(selector).First()
		if a.Length() == 0 {
			return
		}
		href, _ := a.Attr("href")
		out = append(out, link{text: a.Text(), href: href})
	})
	c.check(field, len(out))
	for len(out) < c.n {
		out = append(out, link{})
	}
	return out
}

func textOf(selector string) func(*goquery.Selection) (string, bool) {
	return func(r *goquery.Selection) (string, bool) {
		s := r.Find(selector)
		return cleanText(s.First().Text()), s.Length() > 0
	}
}

func docColumn(doc *goquery.Document, selector string) []docCell {
	var out []docCell
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, docCell{text: cleanText(s.Text()), sel: s})
	})
	return out
}

// ownText is the text of s excluding its child elements.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return cleanText(b.String())
}
