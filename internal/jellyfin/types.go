package jellyfin

import (
	"strconv"
	"strings"

	"github.com/posterforge/posterforge/internal/models"
)

// itemFields is requested on every item read so provider ids and stream
// details come back in one call.
const itemFields = "ProviderIds,MediaStreams,Path,Overview,Genres,ProductionYear,OriginalTitle"

type Item struct {
	ID             string            `json:"Id"`
	Name           string            `json:"Name"`
	OriginalTitle  string            `json:"OriginalTitle,omitempty"`
	Type           string            `json:"Type"`
	SeriesID       string            `json:"SeriesId,omitempty"`
	SeasonNumber   int               `json:"ParentIndexNumber,omitempty"`
	EpisodeNumber  int               `json:"IndexNumber,omitempty"`
	ProductionYear int               `json:"ProductionYear,omitempty"`
	ProviderIds    map[string]string `json:"ProviderIds,omitempty"`
	Genres         []string          `json:"Genres,omitempty"`
	ImageTags      map[string]string `json:"ImageTags,omitempty"`
	MediaStreams   []Stream          `json:"MediaStreams,omitempty"`
}

type Stream struct {
	Type           string `json:"Type"`
	Codec          string `json:"Codec,omitempty"`
	Profile        string `json:"Profile,omitempty"`
	Language       string `json:"Language,omitempty"`
	Title          string `json:"Title,omitempty"`
	DisplayTitle   string `json:"DisplayTitle,omitempty"`
	ChannelLayout  string `json:"ChannelLayout,omitempty"`
	Channels       int    `json:"Channels,omitempty"`
	Height         int    `json:"Height,omitempty"`
	Width          int    `json:"Width,omitempty"`
	ColorSpace     string `json:"ColorSpace,omitempty"`
	VideoRange     string `json:"VideoRange,omitempty"`
	VideoRangeType string `json:"VideoRangeType,omitempty"`
	BitRate        int64  `json:"BitRate,omitempty"`
	BitDepth       int    `json:"BitDepth,omitempty"`
	Index          int    `json:"Index"`
}

type Library struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType,omitempty"`
}

type itemsPage struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// Kind maps the server's item type onto the pipeline's media kinds.
func (i Item) Kind() models.MediaKind {
	switch strings.ToLower(i.Type) {
	case "series":
		return models.KindSeries
	case "season":
		return models.KindSeason
	case "episode":
		return models.KindEpisode
	default:
		return models.KindMovie
	}
}

func (i Item) Ref() models.MediaRef {
	return models.MediaRef{ID: i.ID, Kind: i.Kind()}
}

// ProviderID reads a provider id case-insensitively; Jellyfin is not
// consistent about the casing of ProviderIds keys.
func (i Item) ProviderID(name string) string {
	for k, v := range i.ProviderIds {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func (i Item) ProviderIDInt(name string) int {
	n, _ := strconv.Atoi(i.ProviderID(name))
	return n
}

// Streams converts the wire stream list into the pipeline's shape,
// preserving server order.
func (i Item) Streams() models.MediaStreams {
	var ms models.MediaStreams
	for _, s := range i.MediaStreams {
		switch s.Type {
		case "Audio":
			ms.Audio = append(ms.Audio, models.AudioStream{
				Codec:    s.Codec,
				Channels: s.Channels,
				Profile:  s.Profile,
				Layout:   s.ChannelLayout,
				Title:    firstNonEmpty(s.Title, s.DisplayTitle),
				Language: s.Language,
			})
		case "Video":
			ms.Video = append(ms.Video, models.VideoStream{
				Height:         s.Height,
				Width:          s.Width,
				Codec:          s.Codec,
				ColorSpace:     s.ColorSpace,
				VideoRange:     s.VideoRange,
				VideoRangeType: s.VideoRangeType,
				DisplayTitle:   s.DisplayTitle,
				Bitrate:        s.BitRate,
				Profile:        s.Profile,
				BitDepth:       s.BitDepth,
			})
		}
	}
	return ms
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
