package images

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/posterforge/posterforge/internal/models"
)

// Index tracks the badge-image directory as a set of PNG stems. The scan
// runs lazily on first use and again on demand; lookups are read-mostly.
type Index struct {
	dir string

	mu      sync.RWMutex
	stems   map[string]bool
	scanned bool
}

func NewIndex(dir string) *Index {
	return &Index{dir: dir, stems: map[string]bool{}}
}

// Rescan re-reads the directory. Called hourly by the scheduler and after
// users drop in new image packs.
func (ix *Index) Rescan() error {
	entries, err := os.ReadDir(ix.dir)
	if err != nil {
		return fmt.Errorf("scan badge images: %w", err)
	}
	stems := make(map[string]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".png") {
			continue
		}
		stems[strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))] = true
	}
	ix.mu.Lock()
	ix.stems = stems
	ix.scanned = true
	ix.mu.Unlock()
	return nil
}

func (ix *Index) ensure() {
	ix.mu.RLock()
	scanned := ix.scanned
	ix.mu.RUnlock()
	if !scanned {
		if err := ix.Rescan(); err != nil {
			ix.mu.Lock()
			ix.scanned = true
			ix.mu.Unlock()
		}
	}
}

// Has reports whether a stem (case-insensitive, no extension) is present.
func (ix *Index) Has(stem string) bool {
	ix.ensure()
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.stems[strings.ToLower(stem)]
}

// Path returns the on-disk path for a stem. It does not check existence.
func (ix *Index) Path(stem string) string {
	return filepath.Join(ix.dir, strings.ToLower(stem)+".png")
}

// ──────────────────── Resolution selection ────────────────────

// variantSuffixes orders enhancement combinations from most to least
// specific. A combination is only a candidate when every flag it names
// is set on the resolution.
var variantSuffixes = []struct {
	suffix        string
	dv, hdr, plus bool
}{
	{"dvhdrplus", true, true, true},
	{"dvhdr", true, true, false},
	{"dvplus", true, false, true},
	{"hdrplus", false, true, true},
	{"dv", true, false, false},
	{"hdr", false, true, false},
	{"plus", false, false, true},
	{"", false, false, false},
}

var resolutionFallbacks = map[string]string{
	models.Res1440p: models.Res1080p,
	models.Res8K:    models.Res4K,
	"2160p":         models.Res4K,
	"1080i":         models.Res1080p,
	"720i":          models.Res720p,
}

var lastResortStems = []string{"resolution-generic", "unknown", "1080p", "720p"}

// ResolutionCandidates lists image stems for a resolution in priority
// order, most specific variant first.
func ResolutionCandidates(info models.ResolutionInfo) []string {
	base := strings.ToLower(info.Base)
	var out []string
	for _, v := range variantSuffixes {
		if (v.dv && !info.IsDV) || (v.hdr && !info.IsHDR) || (v.plus && !info.IsHDRPlus) {
			continue
		}
		out = append(out, base+v.suffix)
	}
	return out
}

// SelectResolutionImage picks the image file for a resolution: the user
// mapping wins, then the candidate chain, then base fallback rules, then
// the generic last resorts.
func (ix *Index) SelectResolutionImage(info models.ResolutionInfo, mapping map[string]string) (string, bool) {
	if name, ok := lookupMapping(mapping, info.String(), info.Base); ok {
		return filepath.Join(ix.dir, name), true
	}

	for _, stem := range ResolutionCandidates(info) {
		if ix.Has(stem) {
			return ix.Path(stem), true
		}
	}

	if fallback, ok := resolutionFallbacks[strings.ToLower(info.Base)]; ok {
		retry := info
		retry.Base = fallback
		for _, stem := range ResolutionCandidates(retry) {
			if ix.Has(stem) {
				return ix.Path(stem), true
			}
		}
	}

	for _, stem := range lastResortStems {
		if ix.Has(stem) {
			return ix.Path(stem), true
		}
	}
	return "", false
}

// ──────────────────── Audio and mapped selection ────────────────────

// audioFallbacks degrades a missing premium-format image to the nearest
// family that usually ships in image packs.
var audioFallbacks = map[string]string{
	"dolby_atmos":        "truehd",
	"dts_x":              "dts_hd_ma",
	"truehd":             "dolby_digital_plus",
	"dts_hd_ma":          "dts",
	"dolby_digital_plus": "dolby_digital",
}

// SelectAudioImage resolves an audio image key through the mapping and,
// when the file is missing, walks the audio fallback chain.
func (ix *Index) SelectAudioImage(key string, mapping map[string]string) (string, bool) {
	seen := map[string]bool{}
	for key != "" && !seen[key] {
		seen[key] = true
		if path, ok := ix.mappedPath(key, mapping); ok {
			return path, true
		}
		key = audioFallbacks[key]
	}
	return "", false
}

// SelectMappedImage is the plain image_mapping lookup used by review and
// awards badges.
func (ix *Index) SelectMappedImage(key string, mapping map[string]string) (string, bool) {
	return ix.mappedPath(key, mapping)
}

func (ix *Index) mappedPath(key string, mapping map[string]string) (string, bool) {
	if name, ok := lookupMapping(mapping, key); ok {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if ix.Has(stem) {
			return filepath.Join(ix.dir, name), true
		}
		return "", false
	}
	if ix.Has(key) {
		return ix.Path(key), true
	}
	return "", false
}

func lookupMapping(mapping map[string]string, keys ...string) (string, bool) {
	for _, key := range keys {
		if name, ok := mapping[key]; ok && name != "" {
			return name, true
		}
		for mk, name := range mapping {
			if strings.EqualFold(mk, key) && name != "" {
				return name, true
			}
		}
	}
	return "", false
}
