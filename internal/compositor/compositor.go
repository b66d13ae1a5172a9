package compositor

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/settings"
)

const (
	// CanonicalWidth is the poster width every pipeline pass works at.
	CanonicalWidth = 1000

	jpegQuality = 95

	previewPrefix = "preview_"
)

// Compositor resizes posters and pastes rendered badges onto them. All
// outputs are RGB JPEGs under the preview directory.
type Compositor struct {
	previewDir string
}

func New(previewDir string) *Compositor {
	return &Compositor{previewDir: previewDir}
}

// Resize scales a poster to the canonical 1000 px width with Lanczos
// resampling, preserving aspect ratio. Posters already at canonical width
// (or narrower) pass through untouched.
func (c *Compositor) Resize(inputPath string) (string, error) {
	img, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open poster %s: %w", inputPath, err)
	}
	if img.Bounds().Dx() <= CanonicalWidth {
		return inputPath, nil
	}

	resized := imaging.Resize(img, CanonicalWidth, 0, imaging.Lanczos)
	out := filepath.Join(c.previewDir, "resized_"+stem(inputPath)+".jpg")
	if err := c.save(resized, out); err != nil {
		return "", err
	}
	return out, nil
}

// ApplyBadge pastes a badge onto the poster at the configured anchor and
// writes the result as JPEG. An empty outputPath yields a chained
// intermediate path named for the badge type.
func (c *Compositor) ApplyBadge(posterPath string, badge image.Image, badgeType models.BadgeType, general settings.GeneralSection, outputPath string) (string, error) {
	poster, err := imaging.Open(posterPath)
	if err != nil {
		return "", fmt.Errorf("open poster %s: %w", posterPath, err)
	}

	at := anchorPoint(general.BadgePosition, poster.Bounds(), badge.Bounds(), general.EdgePadding)
	composed := imaging.Overlay(poster, badge, at, 1.0)

	if outputPath == "" {
		outputPath = c.ChainedPreviewPath(posterPath, badgeType)
	}
	if err := c.save(composed, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// CopyTo writes the poster unchanged to outputPath, used when a request
// applies no badges but still owes an output. An empty outputPath yields
// the canonical preview path.
func (c *Compositor) CopyTo(posterPath, outputPath string) (string, error) {
	img, err := imaging.Open(posterPath)
	if err != nil {
		return "", fmt.Errorf("open poster %s: %w", posterPath, err)
	}
	if outputPath == "" {
		outputPath = c.PreviewPath(posterPath)
	}
	if err := c.save(img, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// PreviewPath is the canonical final output for a poster:
// preview_<original-basename>.jpg in the preview directory.
func (c *Compositor) PreviewPath(inputPath string) string {
	return filepath.Join(c.previewDir, previewPrefix+originalStem(inputPath)+".jpg")
}

// ChainedPreviewPath names an intermediate output after its badge type,
// preview_<badge>_<original>.jpg, so chained passes never collide.
func (c *Compositor) ChainedPreviewPath(inputPath string, badgeType models.BadgeType) string {
	name := fmt.Sprintf("%s%s_%s.jpg", previewPrefix, badgeType, originalStem(inputPath))
	return filepath.Join(c.previewDir, name)
}

// IsPreview reports whether a path already carries the preview prefix.
func IsPreview(path string) bool {
	return strings.HasPrefix(filepath.Base(path), previewPrefix)
}

func (c *Compositor) save(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	// JPEG encoding flattens to RGB; Save carries the quality option.
	if err := imaging.Save(img, path, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// originalStem strips the working prefixes an intermediate accumulated so
// the final name always derives from the original poster basename.
func originalStem(path string) string {
	s := stem(path)
	s = strings.TrimPrefix(s, "resized_")
	for strings.HasPrefix(s, previewPrefix) {
		s = strings.TrimPrefix(s, previewPrefix)
		for _, bt := range []models.BadgeType{models.BadgeAudio, models.BadgeResolution, models.BadgeReview, models.BadgeAwards} {
			s = strings.TrimPrefix(s, string(bt)+"_")
		}
	}
	return s
}

// anchorPoint resolves the named anchor to paste coordinates. Edge
// padding scales vertically with the poster's aspect ratio so tall
// posters keep proportional margins; bottom-right-flush ignores padding.
func anchorPoint(position string, poster, badge image.Rectangle, edgePadding int) image.Point {
	pw, ph := poster.Dx(), poster.Dy()
	bw, bh := badge.Dx(), badge.Dy()

	padX := edgePadding
	padY := edgePadding
	if pw > 0 {
		padY = edgePadding * ph / pw
	}

	left := padX
	right := pw - bw - padX
	top := padY
	bottom := ph - bh - padY
	centerX := (pw - bw) / 2
	centerY := (ph - bh) / 2

	switch position {
	case "top-left":
		return image.Pt(left, top)
	case "top-center":
		return image.Pt(centerX, top)
	case "top-right":
		return image.Pt(right, top)
	case "center-left":
		return image.Pt(left, centerY)
	case "center":
		return image.Pt(centerX, centerY)
	case "center-right":
		return image.Pt(right, centerY)
	case "bottom-left":
		return image.Pt(left, bottom)
	case "bottom-center":
		return image.Pt(centerX, bottom)
	case "bottom-right":
		return image.Pt(right, bottom)
	case "bottom-right-flush":
		return image.Pt(pw-bw, ph-bh)
	default:
		return image.Pt(right, top)
	}
}
