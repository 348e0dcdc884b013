package phone

import (
	"regexp"
	"strings"
)

// templatePlaceholder marks a digit position in NumberFormatTemplate.
const templatePlaceholder = 'X'

var canonicalSplit = regexp.MustCompile(`^\+(\d{1,4})(\d+)$`)

// ToDisplay renders a canonical number for humans, e.g. "+44 20 7946 0123".
//
// Input that does not start with "+" is returned unchanged, as is a canonical
// string that cannot be split into calling code and national number. Codes
// without a table entry use the international fallback grouping.
func (t *Table) ToDisplay(canonical, callingCode string) string {
	if !strings.HasPrefix(canonical, "+") {
		return canonical
	}

	code, national, explicit, ok := t.splitCanonical(canonical, callingCode)
	if !ok {
		return canonical
	}

	entry, found := t.Lookup(code)
	if !found {
		return internationalFallback(canonical)
	}
	if national == "" {
		return canonical
	}
	// Strategies drop a trunk zero, so with an inferred code they only see
	// national numbers that have none.
	useStrategy := explicit || !strings.HasPrefix(national, "0")
	return "+" + code + " " + formatNational(code, national, entry, useStrategy)
}

// splitCanonical separates the calling code from the national number. An
// explicit code wins when the canonical string carries it; otherwise the
// shortest 1-4 digit prefix with a table entry is used, then a plain split.
// explicit reports whether the caller's code was used.
func (t *Table) splitCanonical(canonical, callingCode string) (code, national string, explicit, ok bool) {
	if callingCode != "" && strings.HasPrefix(canonical, "+"+callingCode) {
		return callingCode, StripToDigits(strings.TrimSpace(canonical[1+len(callingCode):])), true, true
	}

	m := canonicalSplit.FindStringSubmatch(canonical)
	if m == nil {
		return "", "", false, false
	}

	digits := canonical[1:]
	for l := 1; l <= 4 && l < len(digits); l++ {
		if _, found := t.Lookup(digits[:l]); found {
			return digits[:l], digits[l:], false, true
		}
	}
	return m[1], m[2], false, true
}

// internationalFallback groups a number whose calling code has no rule: up to
// three leading digits as a pseudo country segment, the rest in runs of three.
func internationalFallback(canonical string) string {
	digits := StripToDigits(canonical[1:])
	if len(digits) <= 3 {
		return canonical
	}

	cc := min(3, len(digits)-3)
	return "+" + digits[:cc] + " " + groupEvery(digits[cc:], 3)
}

// formatNational walks the layers in order: country strategy, template,
// generic grouping. The first layer that accepts the number wins.
func formatNational(code, national string, entry CountryEntry, useStrategy bool) string {
	if strategy, ok := countryStrategies[code]; ok && useStrategy {
		if out, ok := strategy(national, entry); ok {
			return out
		}
	}
	if entry.NumberFormatTemplate != "" {
		if out, ok := applyTemplate(entry.NumberFormatTemplate, national); ok {
			return out
		}
	}
	return BasicNationalGrouping(national)
}

// applyTemplate substitutes digits into placeholder positions left to right.
//
// When the template has more placeholders than digits, output stops at the
// first placeholder that cannot be filled, trailing separators are dropped and
// a bracket left unclosed is removed.
// Digits left over after the template is exhausted are appended, preceded by
// a space when the last emitted character is not a digit.
func applyTemplate(template, digits string) (string, bool) {
	if !strings.ContainsRune(template, templatePlaceholder) {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(template) + len(digits))
	i := 0
	for _, r := range template {
		if r != templatePlaceholder {
			b.WriteRune(r)
			continue
		}
		if i >= len(digits) {
			break
		}
		b.WriteByte(digits[i])
		i++
	}

	out := b.String()
	if i < len(digits) {
		if last := out[len(out)-1]; last < '0' || last > '9' {
			out += " "
		}
		return out + digits[i:], true
	}
	out = strings.TrimRight(out, " -./(")
	if strings.Count(out, "(") > strings.Count(out, ")") {
		open := strings.LastIndex(out, "(")
		out = out[:open] + out[open+1:]
	}
	return out, true
}
