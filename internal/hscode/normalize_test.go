package hscode

import (
	"errors"
	"testing"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		invalid  bool
	}{
		{"subheading", "8471.30", "8471.30", false},
		{"tariff line", "8471.30.00", "8471.30.00", false},
		{"heading only", "8471", "8471", false},
		{"spaced", " 8471 30 ", "8471 30", false},
		{"label", "HS Code: 8471.30", "8471.30", false},
		{"spanish label", "Código HS: 6403.99", "6403.99", false},
		{"quoted", `"9102.11".`, "9102.11", false},
		{"too short", "84", "", true},
		{"too long", "8471.30.00.12.34", "", true},
		{"words", "unknown", "", true},
		{"empty", "  ", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeCode(tc.raw)
			if tc.invalid {
				if !errors.Is(err, ErrInvalidCode) {
					t.Fatalf("expected ErrInvalidCode, got %v (%q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("expected %q got %q", tc.expected, got)
			}
		})
	}
}

func TestHeading(t *testing.T) {
	if got := Heading("8471.30.00"); got != "8471" {
		t.Fatalf("expected 8471 got %q", got)
	}
	if got := Heading("84"); got != "" {
		t.Fatalf("expected empty heading got %q", got)
	}
}
