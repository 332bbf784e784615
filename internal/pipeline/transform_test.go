package pipeline

import "testing"

func TestParseHour(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"14", 14, true},
		{"0", 0, true},
		{"3.0", 3, true},
		{"23", 23, true},
		{"14.5", 0, false},
		{"x", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1e9", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseHour(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseHour(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
