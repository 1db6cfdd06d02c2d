package ui

import (
	"testing"

	"charm.land/lipgloss/v2"
)

func TestThemeForVariantBorders(t *testing.T) {
	cases := []struct {
		variant string
		want    lipgloss.Border
	}{
		{"modern_arcade", lipgloss.RoundedBorder()},
		{"cozy_clean", lipgloss.RoundedBorder()},
		{"retro_terminal", lipgloss.DoubleBorder()},
		{"", lipgloss.RoundedBorder()},
	}
	for _, tc := range cases {
		if got := ThemeForVariant(tc.variant).border; got != tc.want {
			t.Fatalf("ThemeForVariant(%q) border = %+v", tc.variant, got)
		}
	}
	if got := ThemeForVariant("retro_terminal").asciiSafe().border; got != lipgloss.NormalBorder() {
		t.Fatalf("ascii theme should use the plain border, got %+v", got)
	}
}
