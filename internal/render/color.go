package render

import (
	"image/color"
	"log"
	"strconv"
	"strings"
)

// ParseHexColor reads a hex color tolerantly: with or without a leading
// '#', 6- or 3-digit form, wrapped in incidental backticks or quotes.
// Invalid input logs a warning and yields the fallback; parsing never
// fails outright.
func ParseHexColor(s string, fallback color.RGBA) color.RGBA {
	cleaned := strings.TrimFunc(s, func(r rune) bool {
		return r == '`' || r == '"' || r == '\'' || r == ' ' || r == '\t'
	})
	cleaned = strings.TrimPrefix(cleaned, "#")

	if c, ok := parseHexDigits(cleaned); ok {
		return c
	}
	if s != "" {
		log.Printf("render: invalid color %q, using default", s)
	}
	return fallback
}

func parseHexDigits(s string) (color.RGBA, bool) {
	switch len(s) {
	case 6:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return color.RGBA{}, false
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, true
	case 3:
		v, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return color.RGBA{}, false
		}
		r := uint8(v >> 8 & 0xF)
		g := uint8(v >> 4 & 0xF)
		b := uint8(v & 0xF)
		return color.RGBA{R: r * 17, G: g * 17, B: b * 17, A: 255}, true
	}
	return color.RGBA{}, false
}

// WithOpacity scales a color's alpha by a 0..100 opacity percentage.
func WithOpacity(c color.RGBA, opacity int) color.RGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 100 {
		opacity = 100
	}
	c.A = uint8(int(c.A) * opacity / 100)
	return c
}
