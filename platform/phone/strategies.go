package phone

import "strings"

// Strategy formats the national part of a number for one calling code. It
// reports ok=false when the number does not fit its plan, so the template or
// generic layer gets a turn.
type Strategy func(national string, entry CountryEntry) (string, bool)

// countryStrategies holds the hand-written plans for high-traffic countries.
// Adding a country means adding one function and one line here.
var countryStrategies = map[string]Strategy{
	"1":  formatNANP,
	"43": formatAustria,
	"44": formatUK,
	"49": formatGermany,
}

// HasStrategy reports whether a calling code has a dedicated strategy.
func HasStrategy(callingCode string) bool {
	_, ok := countryStrategies[callingCode]
	return ok
}

// formatNANP: "(212) 555-0123" for ten digits, "555-0123" for seven.
func formatNANP(national string, _ CountryEntry) (string, bool) {
	switch len(national) {
	case 10:
		return "(" + national[:3] + ") " + national[3:6] + "-" + national[6:], true
	case 7:
		return national[:3] + "-" + national[3:], true
	}
	return "", false
}

// formatUK handles 9 and 10 digit numbers. The canonical form may still carry
// the trunk zero when the caller supplied "+44 0..." so it is dropped here.
func formatUK(national string, _ CountryEntry) (string, bool) {
	nsn := strings.TrimPrefix(national, "0")

	switch len(nsn) {
	case 10:
		switch {
		case nsn[0] == '2':
			// 20 7946 0123
			return nsn[:2] + " " + nsn[2:6] + " " + nsn[6:], true
		case nsn[0] == '7':
			// 7700 900123
			return nsn[:4] + " " + nsn[4:], true
		case ukThreeDigitArea(nsn):
			// 121 496 0000
			return nsn[:3] + " " + nsn[3:6] + " " + nsn[6:], true
		default:
			// 1632 960123
			return nsn[:4] + " " + nsn[4:], true
		}
	case 9:
		return nsn[:4] + " " + nsn[4:], true
	}
	return "", false
}

// ukThreeDigitArea covers 011x and 01x1 city codes plus the 03/08/09 ranges.
func ukThreeDigitArea(nsn string) bool {
	switch nsn[0] {
	case '3', '8', '9':
		return true
	case '1':
		return nsn[1] == '1' || nsn[2] == '1'
	}
	return false
}

var germanTwoDigitAreas = map[string]bool{
	"30": true, // Berlin
	"40": true, // Hamburg
	"69": true, // Frankfurt am Main
	"89": true, // München
}

// formatGermany guesses the area-code length: mobile 15x/16x/17x and most
// three-digit codes on short numbers, four digits on long ones, two for the
// largest cities.
func formatGermany(national string, _ CountryEntry) (string, bool) {
	nsn := strings.TrimPrefix(national, "0")
	if len(nsn) < 6 || len(nsn) > 13 {
		return "", false
	}

	if nsn[0] == '1' && (nsn[1] == '5' || nsn[1] == '6' || nsn[1] == '7') {
		return nsn[:3] + " " + nsn[3:], true
	}

	areaLen := 4
	switch {
	case germanTwoDigitAreas[nsn[:2]]:
		areaLen = 2
	case len(nsn) <= 9:
		areaLen = 3
	}
	return nsn[:areaLen] + " " + nsn[areaLen:], true
}

var austrianThreeDigitAreas = map[string]bool{
	"316": true, // Graz
	"463": true, // Klagenfurt
	"512": true, // Innsbruck
	"662": true, // Salzburg
	"732": true, // Linz
}

// formatAustria separates mobile numbers (leading 6 after the trunk zero) from
// landlines, where Vienna has a one-digit area code.
func formatAustria(national string, _ CountryEntry) (string, bool) {
	nsn := strings.TrimPrefix(national, "0")
	if len(nsn) < 5 {
		return "", false
	}

	if nsn[0] == '6' {
		return nsn[:3] + " " + nsn[3:], true
	}

	areaLen := 4
	switch {
	case nsn[0] == '1':
		areaLen = 1
	case austrianThreeDigitAreas[nsn[:3]]:
		areaLen = 3
	}
	return nsn[:areaLen] + " " + nsn[areaLen:], true
}
