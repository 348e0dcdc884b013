package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Validity is an offline plausibility check against libphonenumber metadata.
// It says nothing about whether the number is assigned or reachable.
type Validity struct {
	Valid      bool   `json:"valid"`
	RegionCode string `json:"regionCode,omitempty"`
	NumberType string `json:"numberType,omitempty"`
	E164       string `json:"e164,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Check parses a canonical number and reports whether libphonenumber considers
// it valid. Non-canonical input is reported as invalid, never as an error.
func Check(canonical string) Validity {
	if !strings.HasPrefix(canonical, "+") || !isAllDigits(canonical[1:]) {
		return Validity{Reason: "not in canonical international form"}
	}

	number, err := phonenumbers.Parse(canonical, "")
	if err != nil {
		return Validity{Reason: err.Error()}
	}

	v := Validity{
		Valid:      phonenumbers.IsValidNumber(number),
		RegionCode: phonenumbers.GetRegionCodeForNumber(number),
		NumberType: numberTypeName(phonenumbers.GetNumberType(number)),
		E164:       phonenumbers.Format(number, phonenumbers.E164),
	}
	if !v.Valid {
		v.Reason = "number does not match any known numbering plan pattern"
	}
	return v
}

func numberTypeName(t phonenumbers.PhoneNumberType) string {
	switch t {
	case phonenumbers.FIXED_LINE:
		return "fixed_line"
	case phonenumbers.MOBILE:
		return "mobile"
	case phonenumbers.FIXED_LINE_OR_MOBILE:
		return "fixed_line_or_mobile"
	case phonenumbers.TOLL_FREE:
		return "toll_free"
	case phonenumbers.PREMIUM_RATE:
		return "premium_rate"
	case phonenumbers.SHARED_COST:
		return "shared_cost"
	case phonenumbers.VOIP:
		return "voip"
	case phonenumbers.PERSONAL_NUMBER:
		return "personal_number"
	case phonenumbers.PAGER:
		return "pager"
	case phonenumbers.UAN:
		return "uan"
	case phonenumbers.VOICEMAIL:
		return "voicemail"
	default:
		return "unknown"
	}
}
