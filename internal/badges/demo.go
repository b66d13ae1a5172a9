package badges

import (
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/posterforge/posterforge/internal/analysis"
	"github.com/posterforge/posterforge/internal/models"
)

// Demo data is seeded from a hash of the poster stem so repeated runs on
// the same file decorate it identically.

func demoSeed(posterPath string) uint64 {
	base := filepath.Base(posterPath)
	return xxhash.Sum64String(strings.TrimSuffix(base, filepath.Ext(base)))
}

var demoAudio = []models.AudioInfo{
	{CodecFamily: analysis.AudioAtmos, ChannelLayout: "7.1", IsAtmos: true, DisplayLabel: "Dolby Atmos"},
	{CodecFamily: analysis.AudioTrueHD, ChannelLayout: "7.1", DisplayLabel: "TRUEHD 8.0"},
	{CodecFamily: analysis.AudioDTSHDMA, ChannelLayout: "5.1", DisplayLabel: "DTS-HD MA 6.0"},
	{CodecFamily: analysis.AudioEAC3, ChannelLayout: "5.1", DisplayLabel: "EAC3 6.0"},
	{CodecFamily: analysis.AudioAAC, ChannelLayout: "2.0", DisplayLabel: "AAC 2.0"},
}

var demoResolutions = []models.ResolutionInfo{
	{Base: models.Res4K, Height: 2160, Width: 3840, IsDV: true, IsHDR: true},
	{Base: models.Res4K, Height: 2160, Width: 3840, IsHDR: true},
	{Base: models.Res1080p, Height: 1080, Width: 1920, IsHDR: true},
	{Base: models.Res1080p, Height: 1080, Width: 1920},
	{Base: models.Res720p, Height: 720, Width: 1280},
}

var demoAwards = []models.AwardToken{
	models.AwardOscars, models.AwardCannes, models.AwardGolden,
	models.AwardBAFTA, models.AwardEmmys, models.AwardCrunchyroll,
}

func DemoAudio(posterPath string) models.AudioInfo {
	return demoAudio[demoSeed(posterPath)%uint64(len(demoAudio))]
}

func DemoResolution(posterPath string) models.ResolutionInfo {
	return demoResolutions[demoSeed(posterPath)%uint64(len(demoResolutions))]
}

// DemoAward returns an award for roughly half of posters so demo runs
// show both outcomes.
func DemoAward(posterPath string) (models.AwardToken, bool) {
	seed := demoSeed(posterPath)
	if seed%2 == 0 {
		return "", false
	}
	return demoAwards[seed%uint64(len(demoAwards))], true
}

// DemoRatings derives a stable rating spread from the seed.
func DemoRatings(posterPath string) []models.RatingRecord {
	seed := demoSeed(posterPath)
	imdbScore := 6.5 + float64(seed%30)/10 // 6.5 .. 9.4
	votes := int(seed % 500000)
	variant := demoIMDbVariant(imdbScore, votes)

	return []models.RatingRecord{
		{Source: variant, Score: imdbScore, MaxScore: 10, ImageKey: demoIMDbImageKey(variant), Variant: variant},
		{Source: models.SourceTMDb, Score: 5.0 + float64(seed%45)/10, MaxScore: 10, ImageKey: "tmdb"},
		{Source: models.SourceRTCritics, Score: float64(40 + seed%60), MaxScore: 100, ImageKey: "rt_critics"},
	}
}

func demoIMDbVariant(score float64, votes int) string {
	switch {
	case score >= 8.5 && votes >= 250000:
		return models.SourceIMDbTop250
	case score >= 8.0 && votes >= 100000:
		return models.SourceIMDbTop1000
	default:
		return models.SourceIMDb
	}
}

func demoIMDbImageKey(variant string) string {
	switch variant {
	case models.SourceIMDbTop250:
		return "imdb_top_250"
	case models.SourceIMDbTop1000:
		return "imdb_top_1000"
	default:
		return "imdb"
	}
}
