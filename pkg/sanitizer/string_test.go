package sanitizer

import (
	"strings"
	"testing"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean id unchanged", input: "listing-42", want: "listing-42"},
		{name: "surrounding whitespace", input: "  listing-42\t", want: "listing-42"},
		{name: "case preserved", input: "Customer-ABC", want: "Customer-ABC"},
		{name: "control characters stripped", input: "intent\x00-1\x1b", want: "intent-1"},
		{name: "empty", input: "", want: ""},
		{name: "only whitespace", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeID(tt.input); got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIDIdempotent(t *testing.T) {
	inputs := []string{"  listing-42 ", "a\x00b", "plain"}
	for _, in := range inputs {
		once := NormalizeID(in)
		twice := NormalizeID(once)
		if once != twice {
			t.Errorf("NormalizeID not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeFreeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapses runs of whitespace", input: "changed   my \t plans", want: "changed my plans"},
		{name: "trims edges", input: "  too expensive  ", want: "too expensive"},
		{name: "strips control characters", input: "found\x00 another\x07 place", want: "found another place"},
		{name: "newlines collapse to spaces", input: "line one\nline two", want: "line one line two"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeFreeText(tt.input); got != tt.want {
				t.Errorf("NormalizeFreeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeFreeTextCapsLength(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := NormalizeFreeText(long)
	if len(got) != 500 {
		t.Errorf("length = %d, want capped at 500", len(got))
	}
}
