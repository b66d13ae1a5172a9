package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/posterforge/posterforge/internal/settings"
)

var (
	defaultTextColor       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	defaultBackgroundColor = color.RGBA{A: 255}
	defaultBorderColor     = color.RGBA{A: 255}
)

// verticalSpacingMultiplier widens gaps in vertical review containers so
// stacked badges read as separate rows.
const verticalSpacingMultiplier = 3

// Renderer draws badge images. It never modifies its inputs; every call
// returns a fresh image.
type Renderer struct {
	fonts *FontLoader
}

func NewRenderer(fonts *FontLoader) *Renderer {
	return &Renderer{fonts: fonts}
}

// TextBadge renders a text label over the configured background. With
// dynamic sizing the badge grows to the text bounding box plus padding
// and border; otherwise it is the fixed square size.
func (r *Renderer) TextBadge(text string, s *settings.BadgeSettings) (image.Image, error) {
	if text == "" {
		return nil, fmt.Errorf("render: empty badge text")
	}

	points := float64(s.Text.TextSize)
	if points <= 0 {
		points = 40
	}

	measure := gg.NewContext(1, 1)
	r.fonts.Apply(measure, s.Text.Font, s.Text.FallbackFont, points)
	textW, textH := measure.MeasureString(text)

	width, height := s.General.BadgeSize, s.General.BadgeSize
	if s.General.UseDynamicSizing || width <= 0 {
		pad := s.General.TextPadding
		width = int(textW) + 2*pad + 2*s.Border.Width
		height = int(textH) + 2*pad + 2*s.Border.Width
	}

	dc := gg.NewContext(width, height)
	r.drawPlate(dc, width, height, s)

	r.fonts.Apply(dc, s.Text.Font, s.Text.FallbackFont, points)
	dc.SetColor(ParseHexColor(s.Text.TextColor, defaultTextColor))
	dc.DrawStringAnchored(text, float64(width)/2, float64(height)/2, 0.5, 0.5)

	return r.finish(dc.Image(), s), nil
}

// ImageBadge renders a loaded image over the configured plate, inset by
// the image padding.
func (r *Renderer) ImageBadge(img image.Image, s *settings.BadgeSettings) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("render: nil badge image")
	}

	size := s.General.BadgeSize
	if size <= 0 {
		size = 100
	}
	inset := s.ImageBadges.ImagePadding + s.Border.Width
	inner := size - 2*inset
	if inner <= 0 {
		inner = size
		inset = 0
	}
	fitted := imaging.Fit(img, inner, inner, imaging.Lanczos)

	dc := gg.NewContext(size, size)
	r.drawPlate(dc, size, size, s)

	x := inset + (inner-fitted.Bounds().Dx())/2
	y := inset + (inner-fitted.Bounds().Dy())/2
	dc.DrawImage(fitted, x, y)

	return r.finish(dc.Image(), s), nil
}

// Container lays child badges out in a row or column, center-aligned.
// Vertical containers triple the spacing and add extra top/bottom
// padding.
func (r *Renderer) Container(children []image.Image, s *settings.BadgeSettings) (image.Image, error) {
	if len(children) == 0 {
		return nil, fmt.Errorf("render: empty container")
	}

	vertical := s.General.BadgeOrientation == "vertical"
	spacing := s.General.BadgeSpacing
	extraPad := 0
	if vertical {
		spacing *= verticalSpacingMultiplier
		extraPad = s.General.TextPadding
	}

	var width, height int
	for i, child := range children {
		b := child.Bounds()
		if vertical {
			if b.Dx() > width {
				width = b.Dx()
			}
			height += b.Dy()
			if i > 0 {
				height += spacing
			}
		} else {
			if b.Dy() > height {
				height = b.Dy()
			}
			width += b.Dx()
			if i > 0 {
				width += spacing
			}
		}
	}
	height += 2 * extraPad

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	offset := extraPad
	for _, child := range children {
		b := child.Bounds()
		var at image.Point
		if vertical {
			at = image.Pt((width-b.Dx())/2, offset)
			offset += b.Dy() + spacing
		} else {
			at = image.Pt(offset, (height-b.Dy())/2)
			offset += b.Dx() + spacing
		}
		draw.Draw(canvas, b.Sub(b.Min).Add(at), child, b.Min, draw.Over)
	}
	return canvas, nil
}

// drawPlate fills the badge background and strokes the border, both with
// rounded corners capped at a quarter of the smaller dimension. A
// non-positive effective radius degrades to a sharp rectangle.
func (r *Renderer) drawPlate(dc *gg.Context, width, height int, s *settings.BadgeSettings) {
	radius := effectiveRadius(s.Border.Radius, width, height)

	bg := WithOpacity(ParseHexColor(s.Background.Color, defaultBackgroundColor), backgroundOpacity(s))
	dc.SetColor(bg)
	if radius > 0 {
		dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), radius)
	} else {
		dc.DrawRectangle(0, 0, float64(width), float64(height))
	}
	dc.Fill()

	if s.Border.Width > 0 {
		half := float64(s.Border.Width) / 2
		dc.SetColor(ParseHexColor(s.Border.Color, defaultBorderColor))
		dc.SetLineWidth(float64(s.Border.Width))
		if radius > 0 {
			dc.DrawRoundedRectangle(half, half, float64(width)-2*half, float64(height)-2*half, radius)
		} else {
			dc.DrawRectangle(half, half, float64(width)-2*half, float64(height)-2*half)
		}
		dc.Stroke()
	}
}

func backgroundOpacity(s *settings.BadgeSettings) int {
	if s.Background.Opacity <= 0 {
		return 100
	}
	return s.Background.Opacity
}

func effectiveRadius(configured, width, height int) float64 {
	radius := configured
	if q := width / 4; radius > q {
		radius = q
	}
	if q := height / 4; radius > q {
		radius = q
	}
	if radius < 0 {
		radius = 0
	}
	return float64(radius)
}

// finish applies the optional drop shadow behind the badge.
func (r *Renderer) finish(img image.Image, s *settings.BadgeSettings) image.Image {
	if !s.Shadow.Enabled {
		return img
	}
	return withShadow(img, s.Shadow)
}

// withShadow blurs the badge silhouette and composites the badge over it
// on a canvas grown by the blur margin and the offset.
func withShadow(img image.Image, sh settings.ShadowSection) image.Image {
	blur := sh.Blur
	if blur <= 0 {
		blur = 4
	}
	margin := blur * 2

	b := img.Bounds()
	silhouette := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.DrawMask(silhouette, silhouette.Bounds(),
		image.NewUniform(color.RGBA{A: 180}), image.Point{}, img, b.Min, draw.Src)
	blurred := imaging.Blur(silhouette, float64(blur))

	width := b.Dx() + 2*margin + abs(sh.OffsetX)
	height := b.Dy() + 2*margin + abs(sh.OffsetY)
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	badgeAt := image.Pt(margin+max(0, -sh.OffsetX), margin+max(0, -sh.OffsetY))
	shadowAt := badgeAt.Add(image.Pt(sh.OffsetX, sh.OffsetY))

	draw.Draw(canvas, blurred.Bounds().Add(shadowAt), blurred, image.Point{}, draw.Over)
	draw.Draw(canvas, b.Sub(b.Min).Add(badgeAt), img, b.Min, draw.Over)
	return canvas
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
