package phone

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type failingLoader struct{ err error }

func (failingLoader) Name() string { return "failing" }

func (l failingLoader) Load(context.Context) ([]CountryEntry, error) { return nil, l.err }

type panickingLoader struct{}

func (panickingLoader) Name() string { return "panicking" }

func (panickingLoader) Load(context.Context) ([]CountryEntry, error) { panic("boom") }

func TestLoad_Embedded(t *testing.T) {
	table, err := Load(context.Background(), EmbeddedLoader{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if table.Source() != "embedded" {
		t.Fatalf("expected source embedded, got %q", table.Source())
	}
	for _, code := range []string{"1", "43", "44", "49", "971"} {
		if _, ok := table.Lookup(code); !ok {
			t.Errorf("expected entry for %s", code)
		}
	}
	if _, ok := table.Lookup("999"); ok {
		t.Fatalf("expected no entry for 999")
	}
}

func TestLoad_FailureYieldsEmptyTableAndDataLoadError(t *testing.T) {
	cause := errors.New("disk on fire")
	loaders := []Loader{
		failingLoader{err: cause},
		panickingLoader{},
		nil,
		StaticLoader{Entries: []CountryEntry{{CallingCode: "4a"}}},
		StaticLoader{Entries: []CountryEntry{{CallingCode: "44"}, {CallingCode: "44"}}},
		StaticLoader{Entries: []CountryEntry{{CallingCode: "44", PrefixPattern: "("}}},
		FileLoader{Path: filepath.Join(t.TempDir(), "missing.yaml")},
	}

	for _, loader := range loaders {
		table, err := Load(context.Background(), loader)
		var loadErr *DataLoadError
		if !errors.As(err, &loadErr) {
			t.Errorf("loader %T: expected *DataLoadError, got %v", loader, err)
			continue
		}
		if table == nil || table.Len() != 0 {
			t.Errorf("loader %T: expected empty table, got %d entries", loader, table.Len())
		}
	}

	_, err := Load(context.Background(), failingLoader{err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("expected error to wrap cause, got %v", err)
	}
}

func TestFileLoader_Formats(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "countries.yaml")
	yamlDoc := "countries:\n  - callingCode: \"44\"\n    countryName: United Kingdom\n    trunkPrefix: \"0\"\n"
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	jsonPath := filepath.Join(dir, "countries.json")
	jsonDoc := `{"countries":[{"callingCode":"31","countryName":"Netherlands","numberFormatTemplate":"XX XXX XXXX"}]}`
	if err := os.WriteFile(jsonPath, []byte(jsonDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	txtPath := filepath.Join(dir, "countries.txt")
	if err := os.WriteFile(txtPath, []byte("44"), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := Load(context.Background(), FileLoader{Path: yamlPath})
	if err != nil {
		t.Fatalf("yaml: expected no error, got %v", err)
	}
	if e, ok := table.Lookup("44"); !ok || e.TrunkPrefix != "0" {
		t.Fatalf("yaml: expected UK entry with trunk prefix, got %+v", e)
	}
	if table.Source() != "file:"+yamlPath {
		t.Fatalf("yaml: unexpected source %q", table.Source())
	}

	table, err = Load(context.Background(), FileLoader{Path: jsonPath})
	if err != nil {
		t.Fatalf("json: expected no error, got %v", err)
	}
	if got := table.ToDisplay("+31201234567", "31"); got != "+31 20 123 4567" {
		t.Fatalf("json: expected template formatting, got %q", got)
	}

	if _, err := Load(context.Background(), FileLoader{Path: txtPath}); err == nil {
		t.Fatal("txt: expected unsupported format error")
	}
}

func TestParse_RejectsBadDocuments(t *testing.T) {
	if _, err := ParseYAML([]byte("countries: []\n")); err == nil {
		t.Error("expected error for empty yaml document")
	}
	if _, err := ParseYAML([]byte("countries:\n  - callingCode: \"1\"\n    colour: red\n")); err == nil {
		t.Error("expected error for unknown yaml field")
	}
	if _, err := ParseYAML([]byte("countries: [")); err == nil {
		t.Error("expected error for malformed yaml")
	}
	if _, err := ParseJSON([]byte(`{"countries":[{"callingCode":"1","colour":"red"}]}`)); err == nil {
		t.Error("expected error for unknown json field")
	}
	if _, err := ParseJSON([]byte(`{}`)); err == nil {
		t.Error("expected error for json without countries")
	}
}

func TestTable_MatchesNationalRules(t *testing.T) {
	table := mustEmbeddedTable(t)

	tests := []struct {
		name     string
		code     string
		national string
		want     NationalRuleMatch
	}{
		{name: "unknown code", code: "999", national: "123", want: NationalRuleMatch{}},
		{name: "nanp ok", code: "1", national: "2125550123", want: NationalRuleMatch{EntrySeen: true, HasRules: true, LengthOK: true, PrefixOK: true}},
		{name: "nanp bad prefix", code: "1", national: "1125550123", want: NationalRuleMatch{EntrySeen: true, HasRules: true, LengthOK: true, PrefixOK: false}},
		{name: "uk bad length", code: "44", national: "2079", want: NationalRuleMatch{EntrySeen: true, HasRules: true, LengthOK: false, PrefixOK: true}},
		{name: "germany pattern", code: "49", national: "301234567", want: NationalRuleMatch{EntrySeen: true, HasRules: true, LengthOK: true, PrefixOK: true}},
		{name: "no rules", code: "352", national: "621123456", want: NationalRuleMatch{EntrySeen: true, LengthOK: true, PrefixOK: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.MatchesNationalRules(tt.code, tt.national); got != tt.want {
				t.Errorf("MatchesNationalRules(%q, %q) = %+v, want %+v", tt.code, tt.national, got, tt.want)
			}
		})
	}
}

func TestTable_EntriesSortedByCode(t *testing.T) {
	table := mustEmbeddedTable(t)

	entries := table.Entries()
	if len(entries) != table.Len() {
		t.Fatalf("expected %d entries, got %d", table.Len(), len(entries))
	}
	if entries[0].CallingCode != "1" || entries[1].CallingCode != "7" {
		t.Fatalf("expected single-digit codes first, got %s, %s", entries[0].CallingCode, entries[1].CallingCode)
	}
	if last := entries[len(entries)-1].CallingCode; last != "971" {
		t.Fatalf("expected 971 last, got %s", last)
	}
}

func TestFingerprint(t *testing.T) {
	entries := []CountryEntry{
		{CallingCode: "33", CountryName: "France", TrunkPrefix: "0"},
		{CallingCode: "49", CountryName: "Germany", TrunkPrefix: "0"},
	}

	a, err := Load(context.Background(), StaticLoader{Label: "a", Entries: entries})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	b, err := Load(context.Background(), StaticLoader{Label: "b", Entries: []CountryEntry{entries[1], entries[0]}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.Fingerprint() == "" || a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("expected equal fingerprints, got %q and %q", a.Fingerprint(), b.Fingerprint())
	}

	changed := append([]CountryEntry(nil), entries...)
	changed[0].NumberFormatTemplate = "X XX XX XX XX"
	c, err := Load(context.Background(), StaticLoader{Entries: changed})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Fingerprint() == a.Fingerprint() {
		t.Fatal("expected fingerprint to change with the rules")
	}
}
