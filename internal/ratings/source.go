package ratings

import (
	"context"

	"github.com/posterforge/posterforge/internal/models"
)

// Item carries the identifiers a rating source may need. Sources that lack
// their id return no records rather than an error.
type Item struct {
	Kind      models.MediaKind
	Title     string
	Year      int
	IMDBID    string
	TMDBID    int
	TVDBID    int
	MALID     int
	AniListID int
	AniDBID   int
	IsAnime   bool
}

// Source is one rating provider. A fetch that finds nothing usable returns
// (nil, nil); errors are reserved for transport-level failures and are
// tolerated by the aggregator.
type Source interface {
	Name() string
	Fetch(ctx context.Context, item Item) ([]models.RatingRecord, error)
}

// MALResolver derives a MyAnimeList id from other provider ids or a title,
// backed by the anime-offline-database corpus.
type MALResolver interface {
	MALFromAniList(ctx context.Context, anilistID int) (int, bool)
	MALFromTitle(ctx context.Context, title string) (int, string, bool)
}

// SelectIMDbVariant picks the single IMDb variant an item is entitled to.
func SelectIMDbVariant(score float64, votes int) string {
	switch {
	case score >= 8.5 && votes >= 250000:
		return models.SourceIMDbTop250
	case score >= 8.0 && votes >= 100000:
		return models.SourceIMDbTop1000
	default:
		return models.SourceIMDb
	}
}

func imdbImageKey(variant string) string {
	switch variant {
	case models.SourceIMDbTop250:
		return "imdb_top_250"
	case models.SourceIMDbTop1000:
		return "imdb_top_1000"
	default:
		return "imdb"
	}
}
