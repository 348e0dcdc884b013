package phone

import "strings"

// ToCanonical builds the international digits-only form ("+442079460123").
//
// With a calling code, one leading trunk zero is dropped for countries that use
// one, and the code is prepended unless the digits already start with it.
// Without a calling code the result is "+" and the raw digits; a leading zero
// survives in that case because there is no country context to judge it.
// Input without any digit yields "".
func (t *Table) ToCanonical(rawNumber, callingCode string) string {
	if rawNumber == "" {
		return ""
	}

	digits := StripToDigits(rawNumber)
	if digits == "" {
		return ""
	}
	if callingCode != "" {
		if t.StripsTrunkPrefix(callingCode) && strings.HasPrefix(digits, "0") {
			digits = digits[1:]
		}
		if !strings.HasPrefix(digits, callingCode) {
			digits = callingCode + digits
		}
	}

	return "+" + digits
}
