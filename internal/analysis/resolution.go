package analysis

import (
	"regexp"
	"strings"

	"github.com/posterforge/posterforge/internal/models"
)

// Enhancement pattern sets, matched as case-insensitive substrings over
// display title, video range, video range type, tags and codec profile.
var (
	DefaultHDRPatterns     = []string{"HDR", "HDR10", "BT2020", "PQ", "ST2084", "HLG", "ARIB"}
	DefaultDVPatterns      = []string{"DV", "DOLBY VISION", "DVHE", "DVH1"}
	DefaultHDRPlusPatterns = []string{"HDR10+", "PLUS", "ST2094"}
)

// Streams above this bitrate are assumed to carry HDR10+ grade metadata.
const hdrPlusBitrateFloor = 15_000_000

var baseResolutionRe = regexp.MustCompile(`(?i)\b(4k|2160p|1440p|1080p|1080i|720p|720i|576p|480p|8k)\b`)

// ResolutionDetector extracts base resolution and enhancement flags from
// one video stream.
type ResolutionDetector struct {
	HDRPatterns     []string
	DVPatterns      []string
	HDRPlusPatterns []string
}

func NewResolutionDetector() *ResolutionDetector {
	return &ResolutionDetector{
		HDRPatterns:     DefaultHDRPatterns,
		DVPatterns:      DefaultDVPatterns,
		HDRPlusPatterns: DefaultHDRPlusPatterns,
	}
}

// Detect builds the ResolutionInfo for a stream. Display-title parsing
// wins over dimension thresholds for the base resolution.
func (d *ResolutionDetector) Detect(v models.VideoStream) models.ResolutionInfo {
	info := models.ResolutionInfo{
		Height:     v.Height,
		Width:      v.Width,
		Codec:      v.Codec,
		ColorSpace: v.ColorSpace,
		VideoRange: v.VideoRange,
		BitDepth:   v.BitDepth,
		Bitrate:    v.Bitrate,
		Profile:    v.Profile,
	}

	if base := parseBaseFromTitle(v.DisplayTitle); base != "" {
		info.Base = base
	} else {
		info.Base = baseFromDimensions(v.Height, v.Width)
	}

	fields := []string{v.DisplayTitle, v.VideoRange, v.VideoRangeType, v.Profile}
	fields = append(fields, v.Tags...)
	haystack := strings.ToUpper(strings.Join(fields, " "))

	info.IsDV = containsAny(haystack, d.DVPatterns)
	info.IsHDR = containsAny(haystack, d.HDRPatterns)
	info.IsHDRPlus = containsAny(haystack, d.HDRPlusPatterns)
	if v.Bitrate > hdrPlusBitrateFloor {
		info.IsHDRPlus = true
	}
	return info
}

// parseBaseFromTitle matches a resolution token in the stream's display
// title and normalizes it to a base token (2160p folds into 4k, interlaced
// variants into their progressive base).
func parseBaseFromTitle(title string) string {
	m := baseResolutionRe.FindString(title)
	if m == "" {
		return ""
	}
	switch strings.ToLower(m) {
	case "4k", "2160p":
		return models.Res4K
	case "8k":
		return models.Res8K
	case "1440p":
		return models.Res1440p
	case "1080p", "1080i":
		return models.Res1080p
	case "720p", "720i":
		return models.Res720p
	case "576p":
		return models.Res576p
	case "480p":
		return models.Res480p
	}
	return ""
}

func baseFromDimensions(h, w int) string {
	switch {
	case h >= 4320 || w >= 7680:
		return models.Res8K
	case h >= 2160 || w >= 3840:
		return models.Res4K
	case h >= 1440 || w >= 2560:
		return models.Res1440p
	case h >= 1080 || w >= 1920:
		return models.Res1080p
	case h >= 720 || w >= 1280:
		return models.Res720p
	case h >= 576:
		return models.Res576p
	default:
		return models.Res480p
	}
}

// ParseResolutionString reverses models.ResolutionInfo.String: the base
// token and enhancement flags round-trip.
func ParseResolutionString(s string) models.ResolutionInfo {
	upper := strings.ToUpper(s)
	info := models.ResolutionInfo{
		IsDV:      regexp.MustCompile(`\bDV\b`).MatchString(upper) || strings.Contains(upper, "DOLBY VISION"),
		IsHDRPlus: strings.Contains(upper, "HDR10+"),
	}
	// Strip the plus form first so plain HDR detection doesn't double-fire.
	stripped := strings.ReplaceAll(upper, "HDR10+", "")
	info.IsHDR = strings.Contains(stripped, "HDR")
	if base := parseBaseFromTitle(s); base != "" {
		info.Base = base
	} else {
		info.Base = models.Res1080p
	}
	return info
}

// DefaultResolution is emitted when every episode sample fails.
var DefaultResolution = models.ResolutionInfo{Base: models.Res1080p, Height: 1080, Width: 1920}
