// Package palette derives a reader theme from a story's cover art.
//
// The dominant color of a downscaled cover is found with a coarse color
// histogram, then four roles are generated from its hue: a dark primary,
// a slightly lighter secondary, a near-black background and a saturated
// accent. Extraction never fails from the caller's point of view; any
// problem yields the Fallback palette.
package palette

import "strings"

// Palette is a four-color theme. Each color is a "#rrggbb" string.
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Background string `json:"background"`
	Accent     string `json:"accent"`
}

// Fallback is used whenever a cover cannot be analyzed.
var Fallback = Palette{
	Primary:    "#1a1a2e",
	Secondary:  "#16213e",
	Background: "#0f0f1a",
	Accent:     "#FF2D55",
}

// Source is something that may point at a cover image.
type Source interface {
	// Resolve returns the image URI, or false if the source cannot be
	// addressed by URI.
	Resolve() (string, bool)
}

// URI is an image address such as "https://..." or "file:///...".
type URI string

func (u URI) Resolve() (string, bool) {
	s := strings.TrimSpace(string(u))
	return s, s != ""
}

// Remote wraps a URI, mirroring image sources that carry it as a field.
type Remote struct {
	URI string
}

func (r Remote) Resolve() (string, bool) {
	return URI(r.URI).Resolve()
}

// Asset names an image bundled with the application. Assets are never
// analyzed.
type Asset string

func (Asset) Resolve() (string, bool) { return "", false }
