package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHexColorForms(t *testing.T) {
	want := color.RGBA{R: 0xAA, G: 0xBB, B: 0xCC, A: 255}
	fallback := color.RGBA{A: 255}

	assert.Equal(t, want, ParseHexColor("#AABBCC", fallback))
	assert.Equal(t, want, ParseHexColor("AABBCC", fallback))
	assert.Equal(t, want, ParseHexColor(" `AABBCC` ", fallback))
	assert.Equal(t, want, ParseHexColor(`"#AABBCC"`, fallback))
	assert.Equal(t, want, ParseHexColor("#ABC", fallback), "3-digit form expands")
}

func TestParseHexColorInvalidUsesFallback(t *testing.T) {
	fallback := color.RGBA{R: 1, G: 2, B: 3, A: 255}
	assert.Equal(t, fallback, ParseHexColor("not-a-color", fallback))
	assert.Equal(t, fallback, ParseHexColor("#AABB", fallback))
	assert.Equal(t, fallback, ParseHexColor("", fallback))
}

func TestWithOpacity(t *testing.T) {
	c := color.RGBA{R: 10, G: 20, B: 30, A: 200}
	assert.Equal(t, uint8(100), WithOpacity(c, 50).A)
	assert.Equal(t, uint8(200), WithOpacity(c, 100).A)
	assert.Equal(t, uint8(0), WithOpacity(c, 0).A)
	assert.Equal(t, uint8(200), WithOpacity(c, 150).A, "opacity clamps at 100")
}
