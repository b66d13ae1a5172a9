package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/settings"
)

func testRenderer() *Renderer {
	return NewRenderer(NewFontLoader(""))
}

func TestTextBadgeFixedSize(t *testing.T) {
	s := settings.Defaults(models.BadgeAudio)
	img, err := testRenderer().TextBadge("EAC3 6.0", s)
	require.NoError(t, err)
	assert.Equal(t, s.General.BadgeSize, img.Bounds().Dx())
	assert.Equal(t, s.General.BadgeSize, img.Bounds().Dy())
}

func TestTextBadgeDynamicSizeGrowsWithText(t *testing.T) {
	s := settings.Defaults(models.BadgeAudio)
	s.General.UseDynamicSizing = true
	r := testRenderer()

	short, err := r.TextBadge("DV", s)
	require.NoError(t, err)
	long, err := r.TextBadge("Dolby Digital Plus", s)
	require.NoError(t, err)
	assert.Greater(t, long.Bounds().Dx(), short.Bounds().Dx())
}

func TestTextBadgeEmptyTextIsError(t *testing.T) {
	_, err := testRenderer().TextBadge("", settings.Defaults(models.BadgeAudio))
	assert.Error(t, err)
}

func TestImageBadge(t *testing.T) {
	s := settings.Defaults(models.BadgeResolution)
	src := image.NewRGBA(image.Rect(0, 0, 300, 120))
	img, err := testRenderer().ImageBadge(src, s)
	require.NoError(t, err)
	assert.Equal(t, s.General.BadgeSize, img.Bounds().Dx())

	_, err = testRenderer().ImageBadge(nil, s)
	assert.Error(t, err)
}

func TestContainerHorizontal(t *testing.T) {
	s := settings.Defaults(models.BadgeReview)
	s.General.BadgeOrientation = "horizontal"
	s.General.BadgeSpacing = 10

	children := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 50, 40)),
		image.NewRGBA(image.Rect(0, 0, 60, 30)),
	}
	img, err := testRenderer().Container(children, s)
	require.NoError(t, err)
	assert.Equal(t, 50+10+60, img.Bounds().Dx())
	assert.Equal(t, 40, img.Bounds().Dy())
}

func TestContainerVerticalTriplesSpacing(t *testing.T) {
	s := settings.Defaults(models.BadgeReview)
	s.General.BadgeOrientation = "vertical"
	s.General.BadgeSpacing = 10
	s.General.TextPadding = 8

	children := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 50, 40)),
		image.NewRGBA(image.Rect(0, 0, 50, 40)),
	}
	img, err := testRenderer().Container(children, s)
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 40+30+40+2*8, img.Bounds().Dy())
}

func TestContainerEmptyIsError(t *testing.T) {
	_, err := testRenderer().Container(nil, settings.Defaults(models.BadgeReview))
	assert.Error(t, err)
}

func TestShadowGrowsCanvas(t *testing.T) {
	s := settings.Defaults(models.BadgeAudio)
	s.Shadow = settings.ShadowSection{Enabled: true, Blur: 5, OffsetX: 3, OffsetY: 3}
	img, err := testRenderer().TextBadge("HDR", s)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), s.General.BadgeSize)
	assert.Greater(t, img.Bounds().Dy(), s.General.BadgeSize)
}

func TestEffectiveRadiusCaps(t *testing.T) {
	assert.Equal(t, float64(25), effectiveRadius(100, 100, 200), "capped at w/4")
	assert.Equal(t, float64(10), effectiveRadius(10, 100, 200))
	assert.Equal(t, float64(0), effectiveRadius(-5, 100, 100))
}
