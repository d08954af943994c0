package state

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{"zero value", Settings{}, DefaultSettings()},
		{
			"unknown values",
			Settings{Mode: "cinema", Scroll: "diagonal", Theme: "neon", FontSize: 18, Speed: -1},
			DefaultSettings(),
		},
		{
			"font clamped high",
			Settings{Mode: Classic, Scroll: Horizontal, Theme: Light, FontSize: 99, Speed: 2},
			Settings{Mode: Classic, Scroll: Horizontal, Theme: Light, FontSize: MaxFontSize, Speed: 2},
		},
		{
			"font clamped low",
			Settings{Mode: Immersive, Scroll: Vertical, Theme: Sepia, FontSize: 4, Speed: 0.8},
			Settings{Mode: Immersive, Scroll: Vertical, Theme: Sepia, FontSize: MinFontSize, Speed: 0.8},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSettingsSteps(t *testing.T) {
	s := DefaultSettings()

	if got := s.ToggleMode().Mode; got != Classic {
		t.Errorf("ToggleMode() = %q, want classic", got)
	}
	if got := s.ToggleMode().ToggleMode().Mode; got != Immersive {
		t.Errorf("ToggleMode() twice = %q, want immersive", got)
	}
	if got := s.ToggleScroll().Scroll; got != Horizontal {
		t.Errorf("ToggleScroll() = %q, want horizontal", got)
	}

	var seen []Theme
	cur := s
	for i := 0; i < 3; i++ {
		cur = cur.NextTheme()
		seen = append(seen, cur.Theme)
	}
	want := []Theme{Light, Sepia, Dark}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("NextTheme() cycle = %v, want %v", seen, want)
			break
		}
	}

	big := s
	for i := 0; i < 20; i++ {
		big = big.LargerFont()
	}
	if big.FontSize != MaxFontSize {
		t.Errorf("LargerFont() stops at %d, want %d", big.FontSize, MaxFontSize)
	}
	small := s
	for i := 0; i < 20; i++ {
		small = small.SmallerFont()
	}
	if small.FontSize != MinFontSize {
		t.Errorf("SmallerFont() stops at %d, want %d", small.FontSize, MinFontSize)
	}
	if got := s.LargerFont().FontSize; got != 20 {
		t.Errorf("LargerFont() = %d, want 20", got)
	}
}

func TestThemeColors(t *testing.T) {
	tests := []struct {
		theme Theme
		bg    string
	}{
		{Light, "#FFFFFF"},
		{Sepia, "#F4ECD8"},
		{Dark, "#1A1A1A"},
		{"unknown", "#1A1A1A"},
	}
	for _, tt := range tests {
		if got := tt.theme.Colors().Background; got != tt.bg {
			t.Errorf("%q.Colors().Background = %s, want %s", tt.theme, got, tt.bg)
		}
	}
}
