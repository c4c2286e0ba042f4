// Package extract holds the pure functions that turn listing titles, item
// specifics, and descriptions into structured attributes. No I/O; the
// keyword tables live in internal/catalog.
package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// Specs is a case-normalized view over an item's specifics. Keys are
// lowercased on construction; lookups try a list of field-name variants.
type Specs map[string]string

// NewSpecs builds a Specs map from raw aspects, lowercasing names.
func NewSpecs(aspects []model.Aspect) Specs {
	s := make(Specs, len(aspects))
	for _, a := range aspects {
		name := strings.ToLower(strings.TrimSpace(a.Name))
		if name == "" {
			continue
		}
		value := strings.TrimSpace(a.Value)
		if value == "" {
			continue
		}
		// First writer wins: upstream occasionally repeats a field with a
		// less specific value.
		if _, exists := s[name]; !exists {
			s[name] = value
		}
	}
	return s
}

// Get returns the first non-empty value among the named fields.
func (s Specs) Get(names ...string) string {
	for _, n := range names {
		if v, ok := s[strings.ToLower(n)]; ok {
			return v
		}
	}
	return ""
}

// Empty reports whether no specifics were present at all.
func (s Specs) Empty() bool { return len(s) == 0 }

var (
	tagRe        = regexp.MustCompile(`(?s)<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanDescription strips HTML tags, decodes entities (named and numeric),
// and collapses whitespace so weight patterns can run over plain text.
func CleanDescription(raw string) string {
	if raw == "" {
		return ""
	}
	text := tagRe.ReplaceAllString(raw, " ")
	text = html.UnescapeString(text)
	// UnescapeString maps &nbsp; to U+00A0, which breaks \s-free matching.
	text = strings.ReplaceAll(text, " ", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// containsFold reports whether haystack contains needle, case-insensitively.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// containsToken reports whether text contains needle bounded by
// non-alphanumeric characters, so "gia" does not match inside "georgia".
func containsToken(text, needle string) bool {
	text = strings.ToLower(text)
	needle = strings.ToLower(needle)
	for start := 0; ; {
		i := strings.Index(text[start:], needle)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isAlnum(text[i-1])
		afterIdx := i + len(needle)
		after := afterIdx == len(text) || !isAlnum(text[afterIdx])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z'
}

// firstMatch returns the first catalogue entry contained in text as a
// token. The catalogue is pre-sorted longest-first.
func firstMatch(text string, table []string) string {
	for _, entry := range table {
		if containsToken(text, entry) {
			return entry
		}
	}
	return ""
}
