package phone

import "testing"

func TestMaskPhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "n/a", want: "n/a"},
		{input: "123", want: "**3"},
		{input: "1234", want: "***4"},
		{input: "12345", want: "*2345"},
		{input: "+44 20 7946 0123", want: "+** ** **** 0123"},
	}

	for _, tt := range tests {
		if got := MaskPhone(tt.input); got != tt.want {
			t.Errorf("MaskPhone(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
