package phone

import "sort"

// regionCallingCodes maps the region labels used by the CRM to a calling code.
// Matching is exact and case-sensitive.
var regionCallingCodes = map[string]string{
	"USA":            "1",
	"United States":  "1",
	"Canada":         "1",
	"Russia":         "7",
	"Kazakhstan":     "7",
	"Egypt":          "20",
	"South Africa":   "27",
	"Greece":         "30",
	"Netherlands":    "31",
	"Nederland":      "31",
	"Belgium":        "32",
	"België":         "32",
	"France":         "33",
	"Spain":          "34",
	"Hungary":        "36",
	"Italy":          "39",
	"Romania":        "40",
	"Switzerland":    "41",
	"Schweiz":        "41",
	"Austria":        "43",
	"Österreich":     "43",
	"UK":             "44",
	"United Kingdom": "44",
	"Great Britain":  "44",
	"England":        "44",
	"Scotland":       "44",
	"Wales":          "44",
	"Denmark":        "45",
	"Sweden":         "46",
	"Norway":         "47",
	"Poland":         "48",
	"Germany":        "49",
	"Deutschland":    "49",
	"Mexico":         "52",
	"Brazil":         "55",
	"Australia":      "61",
	"New Zealand":    "64",
	"Singapore":      "65",
	"Japan":          "81",
	"China":          "86",
	"Turkey":         "90",
	"India":          "91",
	"Portugal":       "351",
	"Luxembourg":     "352",
	"Ireland":        "353",
	"Finland":        "358",
	"Ukraine":        "380",
	"Czech Republic": "420",
	"UAE":            "971",

	// Umbrella regions resolve to one representative country. Numbers from the
	// other members of the group get the representative's calling code.
	"North America":    "1",
	"Nordic Countries": "46",
	"Scandinavia":      "46",
	"DACH":             "49",
	"Benelux":          "31",
	"Eastern Europe":   "48",
	"Middle East":      "971",
}

var umbrellaRegions = map[string]bool{
	"North America":    true,
	"Nordic Countries": true,
	"Scandinavia":      true,
	"DACH":             true,
	"Benelux":          true,
	"Eastern Europe":   true,
	"Middle East":      true,
}

// ResolveCallingCode returns the calling code for a region label.
// Unknown labels yield ("", false).
func ResolveCallingCode(regionLabel string) (string, bool) {
	code, ok := regionCallingCodes[regionLabel]
	return code, ok
}

// IsUmbrellaRegion reports whether the label covers several countries and
// therefore resolves to a representative code rather than the true origin.
func IsUmbrellaRegion(regionLabel string) bool {
	return umbrellaRegions[regionLabel]
}

// Region describes one entry of the region lookup table.
type Region struct {
	Label       string `json:"label"`
	CallingCode string `json:"callingCode"`
	Umbrella    bool   `json:"umbrella"`
}

// Regions lists the lookup table sorted by label.
func Regions() []Region {
	out := make([]Region, 0, len(regionCallingCodes))
	for label, code := range regionCallingCodes {
		out = append(out, Region{Label: label, CallingCode: code, Umbrella: umbrellaRegions[label]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
