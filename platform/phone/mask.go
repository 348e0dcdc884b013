package phone

// MaskPhone hides all but the last digits of a number for logging while
// keeping separators in place: four digits stay visible when there are more
// than four, otherwise one.
//
//	"+44 20 7946 0123" -> "+** ** **** 0123"
//	"123"              -> "**3"
func MaskPhone(value string) string {
	total := 0
	for i := 0; i < len(value); i++ {
		if isDigitByte(value[i]) {
			total++
		}
	}
	if total == 0 {
		return value
	}

	keep := 1
	if total > 4 {
		keep = 4
	}

	buf := []byte(value)
	seen := 0
	for i := range buf {
		if !isDigitByte(buf[i]) {
			continue
		}
		seen++
		if seen <= total-keep {
			buf[i] = '*'
		}
	}
	return string(buf)
}

func isDigitByte(c byte) bool {
	return c >= '0' && c <= '9'
}
