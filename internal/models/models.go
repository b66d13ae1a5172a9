package models

import (
	"fmt"
	"strings"
)

// ──────────────────── Enums ────────────────────

type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindSeries  MediaKind = "series"
	KindSeason  MediaKind = "season"
	KindEpisode MediaKind = "episode"
)

// IsEpisodic reports whether stream data has to be sampled from episodes
// rather than read off the item itself.
func (k MediaKind) IsEpisodic() bool {
	return k == KindSeries || k == KindSeason
}

type BadgeType string

const (
	BadgeAudio      BadgeType = "audio"
	BadgeResolution BadgeType = "resolution"
	BadgeReview     BadgeType = "review"
	BadgeAwards     BadgeType = "awards"
)

type ProcessingMode string

const (
	ModeImmediate ProcessingMode = "immediate"
	ModeQueued    ProcessingMode = "queued"
	ModeAuto      ProcessingMode = "auto"
)

// ──────────────────── Media ────────────────────

// MediaRef identifies one library item on the media server. The kind is
// cached at lookup time so downstream components don't re-query it.
type MediaRef struct {
	ID   string
	Kind MediaKind
}

type AudioStream struct {
	Codec    string
	Channels int
	Profile  string
	Layout   string
	Title    string
	Language string
}

type VideoStream struct {
	Height         int
	Width          int
	Codec          string
	ColorSpace     string
	VideoRange     string
	VideoRangeType string
	DisplayTitle   string
	Bitrate        int64
	Profile        string
	BitDepth       int
	Tags           []string
}

// MediaStreams is the ordered stream listing of one item. Episode streams
// have the same shape.
type MediaStreams struct {
	Audio []AudioStream
	Video []VideoStream
}

// ──────────────────── Derived records ────────────────────

// Base resolution tokens, exactly one per ResolutionInfo.
const (
	Res480p  = "480p"
	Res576p  = "576p"
	Res720p  = "720p"
	Res1080p = "1080p"
	Res1440p = "1440p"
	Res4K    = "4k"
	Res8K    = "8k"
)

type ResolutionInfo struct {
	Height     int
	Width      int
	Base       string
	IsHDR      bool
	IsDV       bool
	IsHDRPlus  bool
	Codec      string
	ColorSpace string
	VideoRange string
	BitDepth   int
	Bitrate    int64
	Profile    string
}

// String renders the resolution the way badge text shows it, e.g.
// "1080p HDR" or "4k DV HDR10+". Parsing the result back recovers the
// base and enhancement flags.
func (r ResolutionInfo) String() string {
	parts := []string{r.Base}
	if r.IsDV {
		parts = append(parts, "DV")
	}
	if r.IsHDR {
		parts = append(parts, "HDR")
	}
	if r.IsHDRPlus {
		parts = append(parts, "HDR10+")
	}
	return strings.Join(parts, " ")
}

type AudioInfo struct {
	CodecFamily   string
	ChannelLayout string
	IsAtmos       bool
	IsDTSX        bool
	DisplayLabel  string
}

func (a AudioInfo) String() string { return a.DisplayLabel }

// ──────────────────── Ratings ────────────────────

// Rating source tokens. Within one item at most one of the IMDb variants
// survives selection.
const (
	SourceIMDb        = "IMDb"
	SourceIMDbTop250  = "IMDb Top 250"
	SourceIMDbTop1000 = "IMDb Top 1000"
	SourceTMDb        = "TMDb"
	SourceRTCritics   = "RT Critics"
	SourceMetacritic  = "Metacritic"
	SourceMAL         = "MyAnimeList"
	SourceAniDB       = "AniDB"
)

type RatingRecord struct {
	Source   string
	Text     string
	Score    float64
	MaxScore float64
	ImageKey string
	Variant  string
}

// Percentage converts the score to 0–100 against its own scale.
func (r RatingRecord) Percentage() int {
	if r.MaxScore <= 0 {
		return 0
	}
	pct := r.Score / r.MaxScore * 100
	return int(pct + 0.5)
}

// ──────────────────── Awards ────────────────────

type AwardToken string

const (
	AwardOscars      AwardToken = "oscars"
	AwardCannes      AwardToken = "cannes"
	AwardGolden      AwardToken = "golden"
	AwardBAFTA       AwardToken = "bafta"
	AwardEmmys       AwardToken = "emmys"
	AwardCrunchyroll AwardToken = "crunchyroll"
	AwardBerlinale   AwardToken = "berlinale"
	AwardVenice      AwardToken = "venice"
	AwardSundance    AwardToken = "sundance"
	AwardSpirit      AwardToken = "spirit"
	AwardCesar       AwardToken = "cesar"
	AwardChoice      AwardToken = "choice"
	AwardIMDb        AwardToken = "imdb"
	AwardLetterboxd  AwardToken = "letterboxd"
	AwardMetacritic  AwardToken = "metacritic"
	AwardRotten      AwardToken = "rotten"
	AwardNetflix     AwardToken = "netflix"
)

// awardPriority orders tokens from most to least prestigious. PickAward
// returns the highest-priority member of a detected set.
var awardPriority = []AwardToken{
	AwardOscars, AwardCannes, AwardGolden, AwardBAFTA, AwardEmmys,
	AwardCrunchyroll, AwardBerlinale, AwardVenice, AwardSundance,
	AwardSpirit, AwardCesar, AwardChoice, AwardIMDb, AwardLetterboxd,
	AwardMetacritic, AwardRotten, AwardNetflix,
}

func PickAward(detected []AwardToken) (AwardToken, bool) {
	if len(detected) == 0 {
		return "", false
	}
	set := make(map[AwardToken]bool, len(detected))
	for _, t := range detected {
		set[t] = true
	}
	for _, t := range awardPriority {
		if set[t] {
			return t, true
		}
	}
	return "", false
}

// ValidAward reports whether a token is a member of the award enum.
func ValidAward(t AwardToken) bool {
	for _, p := range awardPriority {
		if p == t {
			return true
		}
	}
	return false
}

// ──────────────────── Requests & results ────────────────────

type SingleBadgeRequest struct {
	PosterPath string
	OutputPath string // optional; derived from the preview dir when empty
	BadgeTypes []BadgeType
	UseDemo    bool
	MediaRef   *MediaRef
}

type BulkBadgeRequest struct {
	PosterPaths []string
	OutputDir   string
	BadgeTypes  []BadgeType
	UseDemo     bool
}

type UniversalBadgeRequest struct {
	Single *SingleBadgeRequest
	Bulk   *BulkBadgeRequest
	Mode   ProcessingMode
}

// Validate rejects requests that name neither or both payloads.
func (r UniversalBadgeRequest) Validate() error {
	if r.Single == nil && r.Bulk == nil {
		return fmt.Errorf("request carries neither a single nor a bulk payload")
	}
	if r.Single != nil && r.Bulk != nil {
		return fmt.Errorf("request carries both a single and a bulk payload")
	}
	return nil
}

// PosterResult is what a badge processor hands back. A processor that found
// no data reports Success=true with an empty AppliedBadges; Success=false is
// reserved for rendering/compositing failures.
type PosterResult struct {
	SourcePath    string
	OutputPath    string
	AppliedBadges []string
	Success       bool
	Err           error
}

// ProcessingResult is the dispatcher's per-request outcome.
type ProcessingResult struct {
	SourcePath    string
	OutputPath    string
	AppliedBadges []string
	Success       bool
	Err           error
}
