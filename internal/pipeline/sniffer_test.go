package pipeline

import (
	"strings"
	"testing"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    rune
	}{
		{"comma", "a,b,c\n1,2,3\n", ','},
		{"tab", "a\tb\tc\n1\t2\t3\n", '\t'},
		{"tie goes to comma", "a\tb,c\n", ','},
		{"empty", "", ','},
		{"tab with embedded comma", "a\tb\tc\n1,5\t2\t3\n", '\t'},
		{"only prefix counts", strings.Repeat("a", SniffLength) + strings.Repeat("\t", 10), ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectDelimiter([]byte(tt.content)); got != tt.want {
				t.Errorf("DetectDelimiter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDelimiterName(t *testing.T) {
	if DelimiterName('\t') != "tab" || DelimiterName(',') != "comma" {
		t.Errorf("DelimiterName mismatch: %q %q", DelimiterName('\t'), DelimiterName(','))
	}
}
