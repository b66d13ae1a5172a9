package analysis

import (
	"fmt"
	"strings"

	"github.com/posterforge/posterforge/internal/models"
)

// Canonical audio families, most prestigious first.
const (
	AudioAtmos   = "Dolby Atmos"
	AudioDTSX    = "DTS-X"
	AudioTrueHD  = "TrueHD"
	AudioDTSHDMA = "DTS-HD MA"
	AudioEAC3    = "Dolby Digital Plus"
	AudioAC3     = "Dolby Digital"
	AudioDTS     = "DTS"
	AudioAAC     = "AAC"
)

// Substring patterns scanned case-insensitively over codec, profile and
// title fields. Overridable per AudioClassifier.
var (
	DefaultAtmosPatterns = []string{"ATMOS", "DOLBY ATMOS"}
	DefaultDTSXPatterns  = []string{"DTS-X", "DTS:X", "DTSX"}
)

// AudioClassifier derives a canonical AudioInfo from one audio stream.
type AudioClassifier struct {
	AtmosPatterns []string
	DTSXPatterns  []string
}

func NewAudioClassifier() *AudioClassifier {
	return &AudioClassifier{
		AtmosPatterns: DefaultAtmosPatterns,
		DTSXPatterns:  DefaultDTSXPatterns,
	}
}

// Classify maps a stream to its audio family by the priority chain
// Atmos > DTS-X > TrueHD > DTS-HD MA > EAC3 > AC3 > DTS > AAC.
func (c *AudioClassifier) Classify(s models.AudioStream) (models.AudioInfo, bool) {
	haystack := strings.ToUpper(strings.Join([]string{s.Codec, s.Profile, s.Title, s.Layout}, " "))
	codec := strings.ToUpper(strings.TrimSpace(s.Codec))
	if codec == "" && haystack == "" {
		return models.AudioInfo{}, false
	}

	info := models.AudioInfo{
		ChannelLayout: channelLayout(s),
		IsAtmos:       containsAny(haystack, c.AtmosPatterns),
		IsDTSX:        containsAny(haystack, c.DTSXPatterns),
	}

	switch {
	case info.IsAtmos:
		info.CodecFamily = AudioAtmos
	case info.IsDTSX:
		info.CodecFamily = AudioDTSX
	case codec == "TRUEHD" || strings.Contains(haystack, "TRUEHD"):
		info.CodecFamily = AudioTrueHD
	case isDTSHDMA(codec, haystack):
		info.CodecFamily = AudioDTSHDMA
	case codec == "EAC3" || codec == "E-AC-3" || codec == "DDP":
		info.CodecFamily = AudioEAC3
	case codec == "AC3" || codec == "AC-3":
		info.CodecFamily = AudioAC3
	case codec == "DTS" || codec == "DCA":
		info.CodecFamily = AudioDTS
	case codec == "AAC":
		info.CodecFamily = AudioAAC
	default:
		return models.AudioInfo{}, false
	}

	info.DisplayLabel = displayLabel(s, info)
	return info, true
}

func isDTSHDMA(codec, haystack string) bool {
	if codec != "DTS" && codec != "DCA" && !strings.Contains(haystack, "DTS") {
		return false
	}
	return strings.Contains(haystack, "DTS-HD MA") ||
		strings.Contains(haystack, "DTS-HD MASTER") ||
		strings.Contains(haystack, " MA ") ||
		strings.HasSuffix(haystack, " MA")
}

// displayLabel is the tally/text form, e.g. "EAC3 6.0" or "Dolby Atmos".
// Atmos and DTS-X show their family name since the channel count is
// carried by the object-based mix.
func displayLabel(s models.AudioStream, info models.AudioInfo) string {
	if info.IsAtmos || info.IsDTSX {
		return info.CodecFamily
	}
	codec := strings.ToUpper(strings.TrimSpace(s.Codec))
	if codec == "" {
		return info.CodecFamily
	}
	if s.Channels > 0 {
		return fmt.Sprintf("%s %d.0", codec, s.Channels)
	}
	return codec
}

func channelLayout(s models.AudioStream) string {
	if s.Layout != "" {
		return s.Layout
	}
	switch {
	case s.Channels >= 8:
		return "7.1"
	case s.Channels >= 6:
		return "5.1"
	case s.Channels == 1:
		return "1.0"
	case s.Channels > 0:
		return "2.0"
	}
	return ""
}

func containsAny(haystack string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(haystack, strings.ToUpper(p)) {
			return true
		}
	}
	return false
}

// DefaultAudio is emitted when every episode sample fails.
var DefaultAudio = models.AudioInfo{
	CodecFamily:   AudioEAC3,
	ChannelLayout: "5.1",
	DisplayLabel:  "EAC3 6.0",
}

// AudioImageKey names the badge image stem for a family; the discovery
// layer applies the fallback chain when a file is missing.
func AudioImageKey(family string) string {
	switch family {
	case AudioAtmos:
		return "dolby_atmos"
	case AudioDTSX:
		return "dts_x"
	case AudioTrueHD:
		return "truehd"
	case AudioDTSHDMA:
		return "dts_hd_ma"
	case AudioEAC3:
		return "dolby_digital_plus"
	case AudioAC3:
		return "dolby_digital"
	case AudioDTS:
		return "dts"
	case AudioAAC:
		return "aac"
	}
	return strings.ToLower(strings.ReplaceAll(family, " ", "_"))
}
