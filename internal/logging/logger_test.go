package logging

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "a cat on the moon", want: "a cat on the moon"},
		{name: "newline", in: "line1\nFAKE [ERROR]", want: "line1\\nFAKE [ERROR]"},
		{name: "escape", in: "\x1b[31mred", want: "\\x1b[31mred"},
		{name: "unicode kept", in: "고양이 🐱", want: "고양이 🐱"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitize_Truncates(t *testing.T) {
	got := Sanitize(strings.Repeat("x", 1000))
	if !strings.HasSuffix(got, "...") || len(got) != 259 {
		t.Fatalf("unexpected truncation: len=%d", len(got))
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != Debug || ParseLevel("warn") != Warning || ParseLevel("error") != Error {
		t.Fatalf("unexpected level mapping")
	}
	if ParseLevel("bogus") != Info {
		t.Fatalf("unknown level should default to info")
	}
}
