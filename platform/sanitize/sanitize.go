// Package sanitize cleans free text that admins or API callers store and echo
// back, such as country names and region labels.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// StripHTML removes HTML tags, decodes the common entities and strips again so
// encoded tags do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Label strips HTML, drops control characters and collapses runs of whitespace
// to a single space.
func Label(s string) string {
	s = StripHTML(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Labels applies Label to every element and drops the ones left empty.
func Labels(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if cleaned := Label(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
