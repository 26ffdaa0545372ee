package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestPalette(t *testing.T) {
	var _ Painter = Styles

	tt := []struct {
		name   string
		render func(string) string
	}{
		{"Title", Styles.Title},
		{"OK", Styles.OK},
		{"Err", Styles.Err},
		{"Warn", Styles.Warn},
		{"Help", Styles.Help},
		{"State", Styles.State},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.render("synced"); !strings.Contains(got, "synced") {
				t.Errorf("%s dropped the text: %q", tc.name, got)
			}
		})
	}

	if got := Styles.As("x", lipgloss.Color("#000000")); !strings.Contains(got, "x") {
		t.Errorf("As dropped the text: %q", got)
	}
	if got := Styles.On("y", lipgloss.Color("#FFFFFF")); !strings.Contains(got, "y") {
		t.Errorf("On dropped the text: %q", got)
	}
}
