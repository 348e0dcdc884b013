package transport

import "phonenorm_backend/platform/phone"

// ── Requests ──────────────────────────────────────────────────────────────────

// UpsertCountryRequest replaces the rules of one calling code. The calling code
// itself comes from the URL.
type UpsertCountryRequest struct {
	CountryName                      string   `json:"countryName" validate:"required,max=120"`
	Territories                      []string `json:"territories" validate:"omitempty,max=64,dive,len=2,alpha"`
	InternationalPrefix              string   `json:"internationalPrefix" validate:"omitempty,max=6,numeric"`
	TrunkPrefix                      string   `json:"trunkPrefix" validate:"omitempty,max=4,numeric"`
	NationalSignificantNumberLengths []int    `json:"nationalSignificantNumberLengths" validate:"omitempty,max=8,dive,min=1,max=17"`
	PrefixPattern                    string   `json:"prefixPattern" validate:"omitempty,max=256"`
	LengthPattern                    string   `json:"lengthPattern" validate:"omitempty,max=256"`
	ExampleDisplay                   string   `json:"exampleDisplay" validate:"omitempty,max=64"`
	NumberFormatTemplate             string   `json:"numberFormatTemplate" validate:"omitempty,max=64,containsrune=X"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// CountryResponse is one country rule as exposed by the API.
type CountryResponse struct {
	phone.CountryEntry
	HasStrategy bool `json:"hasStrategy"`
	StripsTrunk bool `json:"stripsTrunkPrefix"`
}

// CountryListResponse lists the table currently in use.
type CountryListResponse struct {
	Source    string            `json:"source"`
	Version   uint64            `json:"version"`
	Count     int               `json:"count"`
	Countries []CountryResponse `json:"countries"`
}

// RegionListResponse lists the region labels accepted by the normalize endpoints.
type RegionListResponse struct {
	Regions []phone.Region `json:"regions"`
}

// ReloadResponse reports the table after a reload.
type ReloadResponse struct {
	Source  string `json:"source"`
	Version uint64 `json:"version"`
	Entries int    `json:"entries"`
}
