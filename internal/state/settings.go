package state

// Mode selects how the reader presents a chapter.
type Mode string

const (
	// Immersive shows one highlighted sentence at a time in narration order.
	Immersive Mode = "immersive"
	// Classic shows the chapter as paragraphs.
	Classic Mode = "classic"
)

// Scroll is the page direction used in classic mode.
type Scroll string

const (
	Vertical   Scroll = "vertical"
	Horizontal Scroll = "horizontal"
)

// Theme is the page color scheme used in classic mode.
type Theme string

const (
	Light Theme = "light"
	Sepia Theme = "sepia"
	Dark  Theme = "dark"
)

var themes = []Theme{Light, Sepia, Dark}

// ThemeColors are the fixed colors of a theme.
type ThemeColors struct {
	Background string
	Border     string
	Text       string
}

// Colors returns the theme's page colors.
func (t Theme) Colors() ThemeColors {
	switch t {
	case Light:
		return ThemeColors{Background: "#FFFFFF", Border: "#E5E7EB", Text: "#000000"}
	case Sepia:
		return ThemeColors{Background: "#F4ECD8", Border: "#D3C4A5", Text: "#5D4037"}
	}
	return ThemeColors{Background: "#1A1A1A", Border: "#333333", Text: "#FFFFFF"}
}

// Font size limits, in points.
const (
	MinFontSize     = 12
	MaxFontSize     = 32
	DefaultFontSize = 18
	fontStep        = 2
)

// Settings are the reader preferences.
type Settings struct {
	Mode     Mode    `json:"mode"`
	Scroll   Scroll  `json:"scroll"`
	Theme    Theme   `json:"theme"`
	FontSize int     `json:"font_size"`
	Speed    float64 `json:"speed"`
}

// DefaultSettings returns the preferences used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		Mode:     Immersive,
		Scroll:   Vertical,
		Theme:    Dark,
		FontSize: DefaultFontSize,
		Speed:    1.0,
	}
}

// Normalize replaces unknown or out-of-range values with defaults.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()
	if s.Mode != Immersive && s.Mode != Classic {
		s.Mode = d.Mode
	}
	if s.Scroll != Vertical && s.Scroll != Horizontal {
		s.Scroll = d.Scroll
	}
	switch s.Theme {
	case Light, Sepia, Dark:
	default:
		s.Theme = d.Theme
	}
	if s.FontSize == 0 {
		s.FontSize = d.FontSize
	}
	s.FontSize = min(max(s.FontSize, MinFontSize), MaxFontSize)
	if s.Speed <= 0 {
		s.Speed = d.Speed
	}
	return s
}

// ToggleMode switches between immersive and classic.
func (s Settings) ToggleMode() Settings {
	if s.Mode == Classic {
		s.Mode = Immersive
	} else {
		s.Mode = Classic
	}
	return s
}

// ToggleScroll switches the classic-mode scroll direction.
func (s Settings) ToggleScroll() Settings {
	if s.Scroll == Horizontal {
		s.Scroll = Vertical
	} else {
		s.Scroll = Horizontal
	}
	return s
}

// NextTheme cycles light, sepia, dark.
func (s Settings) NextTheme() Settings {
	for i, t := range themes {
		if t == s.Theme {
			s.Theme = themes[(i+1)%len(themes)]
			return s
		}
	}
	s.Theme = themes[0]
	return s
}

// LargerFont steps the font size up, stopping at MaxFontSize.
func (s Settings) LargerFont() Settings {
	s.FontSize = min(s.FontSize+fontStep, MaxFontSize)
	return s
}

// SmallerFont steps the font size down, stopping at MinFontSize.
func (s Settings) SmallerFont() Settings {
	s.FontSize = max(s.FontSize-fontStep, MinFontSize)
	return s
}
