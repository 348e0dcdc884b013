package phone

// StripToDigits removes every byte that is not an ASCII decimal digit.
// Non-ASCII digit glyphs (e.g. Arabic-Indic) are discarded, not translated.
func StripToDigits(input string) string {
	if input == "" {
		return ""
	}

	buf := make([]byte, 0, len(input))
	for i := 0; i < len(input); i++ {
		if c := input[i]; c >= '0' && c <= '9' {
			buf = append(buf, c)
		}
	}
	return string(buf)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
