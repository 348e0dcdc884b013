package phone

import "strings"

// BasicNationalGrouping is the last-resort readability grouping for a national
// number when neither a country strategy nor a template applies. It makes no
// claim about the country's real numbering plan.
func BasicNationalGrouping(digits string) string {
	n := len(digits)
	switch {
	case n <= 3:
		return digits
	case n <= 6:
		return "(" + digits[:3] + ") " + digits[3:]
	case n <= 10:
		return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
	default:
		return groupEvery(digits, 3)
	}
}

// groupEvery splits s into runs of size bytes, left to right, joined by spaces.
func groupEvery(s string, size int) string {
	if size <= 0 || len(s) <= size {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/size)
	for i := 0; i < len(s); i += size {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		b.WriteString(s[i:end])
	}
	return b.String()
}
