package parser

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultNationality is assumed when a horse carries no country suffix.
const DefaultNationality = "GB"

var natRe = regexp.MustCompile(`^(.*?)\s*\(([A-Za-z]{2,4})\)\s*$`)

// titleCase builds a fresh Caser per call; a Caser is stateful and not safe
// for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.BritishEnglish).String(s)
}

// SplitNationality splits "Frankel (GB)" into its name and country code.
func SplitNationality(s string) (name, nat string) {
	s = strings.TrimSpace(s)
	if m := natRe.FindStringSubmatch(s); m != nil {
		return m[1], strings.ToUpper(m[2])
	}
	return s, ""
}

// cleanNationality turns "(IRE)" into "IRE", defaulting to DefaultNationality.
func cleanNationality(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "()"))
	if s == "" {
		return DefaultNationality
	}
	return strings.ToUpper(s)
}

// ownerFromHref derives a display name from the last segment of a profile link.
func ownerFromHref(href string) string {
	seg := path.Base(strings.TrimRight(strings.SplitN(href, "?", 2)[0], "/"))
	if seg == "." || seg == "/" {
		return ""
	}
	return titleCase(strings.ReplaceAll(seg, "-", " "))
}

// profileID returns the first numeric path segment of a profile link.
func profileID(href string) string {
	href = strings.SplitN(href, "?", 2)[0]
	for _, seg := range strings.Split(href, "/") {
		if seg != "" && strings.Trim(seg, "0123456789") == "" {
			return seg
		}
	}
	return ""
}

// cleanText collapses whitespace and drops the en dash used for empty cells.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "–", "")
	return strings.Join(strings.Fields(s), " ")
}
