package render

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// systemFontDirs are searched after the configured fonts directory.
var systemFontDirs = []string{
	"/usr/share/fonts/truetype",
	"/usr/share/fonts",
	"/usr/local/share/fonts",
}

// FontLoader resolves font families to files with a multi-path search.
type FontLoader struct {
	fontDir string
}

func NewFontLoader(fontDir string) *FontLoader {
	return &FontLoader{fontDir: fontDir}
}

// Apply sets the context's face to the requested family, trying the
// fallback family next and a built-in face last. The built-in face keeps
// rendering alive when no font file resolves; it never fails.
func (l *FontLoader) Apply(dc *gg.Context, family, fallback string, points float64) {
	for _, candidate := range []string{family, fallback} {
		if candidate == "" {
			continue
		}
		if path, ok := l.resolve(candidate); ok {
			if err := dc.LoadFontFace(path, points); err == nil {
				return
			}
			log.Printf("render: font %s unusable", path)
		}
	}
	dc.SetFontFace(basicfont.Face7x13)
}

func (l *FontLoader) resolve(family string) (string, bool) {
	candidates := []string{family}
	if l.fontDir != "" {
		candidates = append(candidates, filepath.Join(l.fontDir, family))
	}
	for _, dir := range systemFontDirs {
		candidates = append(candidates, filepath.Join(dir, family))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
