package phone

import "testing"

func TestResolveCallingCode(t *testing.T) {
	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		{label: "UK", want: "44", wantOK: true},
		{label: "United Kingdom", want: "44", wantOK: true},
		{label: "Austria", want: "43", wantOK: true},
		{label: "Österreich", want: "43", wantOK: true},
		{label: "Germany", want: "49", wantOK: true},
		{label: "USA", want: "1", wantOK: true},
		{label: "Nordic Countries", want: "46", wantOK: true},
		{label: "Eastern Europe", want: "48", wantOK: true},
		{label: "uk", want: "", wantOK: false},
		{label: " UK", want: "", wantOK: false},
		{label: "Unknown Region", want: "", wantOK: false},
		{label: "", want: "", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := ResolveCallingCode(tt.label)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ResolveCallingCode(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRegions_EveryCodeHasAnEntry(t *testing.T) {
	table := mustEmbeddedTable(t)

	umbrellas := 0
	for _, r := range Regions() {
		if _, ok := table.Lookup(r.CallingCode); !ok {
			t.Errorf("region %q maps to %s which has no table entry", r.Label, r.CallingCode)
		}
		if r.Umbrella {
			umbrellas++
			if !IsUmbrellaRegion(r.Label) {
				t.Errorf("region %q flagged umbrella inconsistently", r.Label)
			}
		}
	}
	if umbrellas == 0 {
		t.Fatal("expected umbrella regions to be listed")
	}
	if IsUmbrellaRegion("Germany") {
		t.Fatal("Germany is not an umbrella region")
	}
}
