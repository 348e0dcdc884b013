package phone

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// CountryEntry holds the formatting rules for one international calling code.
type CountryEntry struct {
	CallingCode         string   `yaml:"callingCode" json:"callingCode"`
	CountryName         string   `yaml:"countryName" json:"countryName"`
	Territories         []string `yaml:"territories,omitempty" json:"territories,omitempty"`
	InternationalPrefix string   `yaml:"internationalPrefix,omitempty" json:"internationalPrefix,omitempty"`
	// TrunkPrefix is dialed before the area code domestically ("0" in most of Europe).
	// When set, one leading occurrence is dropped while building the canonical form.
	TrunkPrefix                      string `yaml:"trunkPrefix,omitempty" json:"trunkPrefix,omitempty"`
	NationalSignificantNumberLengths []int  `yaml:"nsnLengths,omitempty" json:"nationalSignificantNumberLengths,omitempty"`
	PrefixPattern                    string `yaml:"prefixPattern,omitempty" json:"prefixPattern,omitempty"`
	LengthPattern                    string `yaml:"lengthPattern,omitempty" json:"lengthPattern,omitempty"`
	ExampleDisplay                   string `yaml:"exampleDisplay,omitempty" json:"exampleDisplay,omitempty"`
	NumberFormatTemplate             string `yaml:"numberFormatTemplate,omitempty" json:"numberFormatTemplate,omitempty"`

	prefixRe *regexp.Regexp
	lengthRe *regexp.Regexp
}

// Table is an immutable set of country entries keyed by calling code.
// The zero value is not usable; build one with NewTable or Load.
type Table struct {
	entries map[string]CountryEntry
	source  string
	version uint64

	fpOnce      sync.Once
	fingerprint string
}

// alwaysStripTrunk lists calling codes whose trunk zero is dropped even when
// the loaded table carries no entry for them.
var alwaysStripTrunk = map[string]bool{
	"44": true,
	"43": true,
}

// NewTable validates entries and builds a table. Entries with an empty or
// non-numeric calling code, duplicate codes, or invalid patterns are rejected.
func NewTable(entries []CountryEntry) (*Table, error) {
	m := make(map[string]CountryEntry, len(entries))
	for i, e := range entries {
		if !isAllDigits(e.CallingCode) {
			return nil, fmt.Errorf("entry %d: calling code %q must contain only digits", i, e.CallingCode)
		}
		if _, dup := m[e.CallingCode]; dup {
			return nil, fmt.Errorf("entry %d: duplicate calling code %q", i, e.CallingCode)
		}
		if e.PrefixPattern != "" {
			re, err := regexp.Compile(e.PrefixPattern)
			if err != nil {
				return nil, fmt.Errorf("entry %s: prefix pattern: %w", e.CallingCode, err)
			}
			e.prefixRe = re
		}
		if e.LengthPattern != "" {
			re, err := regexp.Compile(e.LengthPattern)
			if err != nil {
				return nil, fmt.Errorf("entry %s: length pattern: %w", e.CallingCode, err)
			}
			e.lengthRe = re
		}
		e.Territories = append([]string(nil), e.Territories...)
		e.NationalSignificantNumberLengths = append([]int(nil), e.NationalSignificantNumberLengths...)
		m[e.CallingCode] = e
	}
	return &Table{entries: m}, nil
}

// EmptyTable returns a table with no entries. All formatting degrades to fallbacks.
func EmptyTable() *Table {
	return &Table{entries: map[string]CountryEntry{}}
}

// Lookup returns the entry for a calling code.
func (t *Table) Lookup(callingCode string) (CountryEntry, bool) {
	if t == nil {
		return CountryEntry{}, false
	}
	e, ok := t.entries[callingCode]
	return e, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Source describes where the table was loaded from.
func (t *Table) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// Version increases each time the owning Normalizer swaps in a new table.
func (t *Table) Version() uint64 {
	if t == nil {
		return 0
	}
	return t.version
}

// withVersion returns a table sharing t's entries under another version.
func (t *Table) withVersion(version uint64) *Table {
	return &Table{entries: t.entries, source: t.source, version: version}
}

// Fingerprint is a short hash of the entries. Tables with the same rules share
// it whatever their source or version, so it can key caches shared by several
// processes.
func (t *Table) Fingerprint() string {
	if t == nil {
		return ""
	}
	t.fpOnce.Do(func() {
		h := sha256.New()
		enc := json.NewEncoder(h)
		for _, e := range t.Entries() {
			_ = enc.Encode(e)
		}
		t.fingerprint = hex.EncodeToString(h.Sum(nil)[:8])
	})
	return t.fingerprint
}

// Entries returns a copy of all entries sorted by calling code.
func (t *Table) Entries() []CountryEntry {
	if t == nil {
		return nil
	}
	out := make([]CountryEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].CallingCode) != len(out[j].CallingCode) {
			return len(out[i].CallingCode) < len(out[j].CallingCode)
		}
		return out[i].CallingCode < out[j].CallingCode
	})
	return out
}

// StripsTrunkPrefix reports whether canonical conversion drops a leading zero
// for the given calling code.
func (t *Table) StripsTrunkPrefix(callingCode string) bool {
	if alwaysStripTrunk[callingCode] {
		return true
	}
	e, ok := t.Lookup(callingCode)
	return ok && e.TrunkPrefix == "0"
}

// NationalRuleMatch is the outcome of checking a national number against
// the declarative rules of its entry.
type NationalRuleMatch struct {
	LengthOK  bool `json:"lengthOk"`
	PrefixOK  bool `json:"prefixOk"`
	HasRules  bool `json:"hasRules"`
	EntrySeen bool `json:"entryFound"`
}

// MatchesNationalRules checks a national significant number against the entry's
// allowed lengths and optional patterns. Missing rules count as satisfied.
func (t *Table) MatchesNationalRules(callingCode, national string) NationalRuleMatch {
	e, ok := t.Lookup(callingCode)
	if !ok {
		return NationalRuleMatch{}
	}

	res := NationalRuleMatch{EntrySeen: true, LengthOK: true, PrefixOK: true}
	if len(e.NationalSignificantNumberLengths) > 0 {
		res.HasRules = true
		res.LengthOK = false
		for _, l := range e.NationalSignificantNumberLengths {
			if len(national) == l {
				res.LengthOK = true
				break
			}
		}
	}
	if e.lengthRe != nil {
		res.HasRules = true
		res.LengthOK = res.LengthOK && e.lengthRe.MatchString(national)
	}
	if e.prefixRe != nil {
		res.HasRules = true
		res.PrefixOK = e.prefixRe.MatchString(national)
	}
	return res
}
