package palette

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	// Pixels whose mean channel value is outside (minBrightness,
	// maxBrightness) are letterboxing or highlights and are skipped.
	minBrightness = 20
	maxBrightness = 235

	bucketStep = 10

	primaryMaxL   = 0.25
	primaryMinL   = 0.06
	secondaryMaxL = 0.35
	backgroundL   = 0.05
	accentS       = 0.9
	accentL       = 0.6
)

// Pixel is one RGB sample.
type Pixel struct {
	R, G, B uint8
}

// Analyze builds a palette from an RGBA byte buffer laid out as
// [r, g, b, a, r, g, b, a, ...]. Alpha is ignored.
func Analyze(rgba []byte) Palette {
	dom, ok := DominantColor(rgba)
	if !ok {
		return Fallback
	}
	return FromColor(dom)
}

// DominantColor returns the most common quantized color among pixels of
// moderate brightness. Ties go to the bucket seen first. If every pixel is
// too dark or too bright, the average of all pixels is returned. ok is
// false only for an empty buffer.
func DominantColor(rgba []byte) (Pixel, bool) {
	n := len(rgba) / 4
	if n == 0 {
		return Pixel{}, false
	}

	counts := make(map[Pixel]int)
	var order []Pixel
	var allR, allG, allB int

	for i := 0; i+3 < len(rgba); i += 4 {
		r, g, b := int(rgba[i]), int(rgba[i+1]), int(rgba[i+2])
		allR += r
		allG += g
		allB += b

		brightness := float64(r+g+b) / 3
		if brightness <= minBrightness || brightness >= maxBrightness {
			continue
		}

		key := Pixel{quantize(r), quantize(g), quantize(b)}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	if len(order) == 0 {
		return Pixel{
			R: uint8(math.Round(float64(allR) / float64(n))),
			G: uint8(math.Round(float64(allG) / float64(n))),
			B: uint8(math.Round(float64(allB) / float64(n))),
		}, true
	}

	best, most := order[0], 0
	for _, key := range order {
		if c := counts[key]; c > most {
			best, most = key, c
		}
	}
	return best, true
}

// quantize rounds a channel to the nearest multiple of bucketStep, capped
// at 255.
func quantize(c int) uint8 {
	q := int(math.Round(float64(c)/bucketStep)) * bucketStep
	if q > 255 {
		q = 255
	}
	return uint8(q)
}

// FromColor derives the four palette roles from a single color, keeping
// its hue and varying saturation and lightness.
func FromColor(p Pixel) Palette {
	c := colorful.Color{R: float64(p.R) / 255, G: float64(p.G) / 255, B: float64(p.B) / 255}
	h, s, l := c.Hsl()

	return Palette{
		Primary:    hex(h, s, clamp(l, primaryMinL, primaryMaxL)),
		Secondary:  hex(h, math.Min(s+0.1, 1), math.Min(l+0.1, secondaryMaxL)),
		Background: hex(h, s*0.5, backgroundL),
		Accent:     hex(h, accentS, accentL),
	}
}

// Lightness returns the HSL lightness of a "#rrggbb" color.
func Lightness(hexColor string) (float64, error) {
	c, err := colorful.Hex(hexColor)
	if err != nil {
		return 0, err
	}
	_, _, l := c.Hsl()
	return l, nil
}

func hex(h, s, l float64) string {
	return colorful.Hsl(h, s, l).Clamped().Hex()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
