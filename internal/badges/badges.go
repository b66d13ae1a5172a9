package badges

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/posterforge/posterforge/internal/analysis"
	"github.com/posterforge/posterforge/internal/compositor"
	"github.com/posterforge/posterforge/internal/images"
	"github.com/posterforge/posterforge/internal/jellyfin"
	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/ratings"
	"github.com/posterforge/posterforge/internal/render"
	"github.com/posterforge/posterforge/internal/settings"
)

// processorBudget is the soft deadline for one processor call. A
// processor that overruns returns a failed result; the dispatcher moves
// on to the next badge.
const processorBudget = 30 * time.Second

// ItemSource is the slice of the media-server client processors need.
type ItemSource interface {
	GetItem(ctx context.Context, itemID string) (*jellyfin.Item, error)
	GetMediaStreams(ctx context.Context, itemID string) (*jellyfin.Item, error)
}

// Env bundles the shared machinery every processor draws on.
type Env struct {
	Settings   *settings.Gateway
	Compositor *compositor.Compositor
	Renderer   *render.Renderer
	Images     *images.Index
	Items      ItemSource
	Analyzer   *analysis.Analyzer
}

// Request is one processor invocation. OutputPath is set only on the last
// badge of a request; intermediate passes derive chained preview paths.
type Request struct {
	PosterPath string
	OutputPath string
	UseDemo    bool
	Session    settings.Querier
	MediaRef   *models.MediaRef
}

// Processor decorates a poster with one badge type. Process never
// panics into the caller; all failures come back inside the result.
type Processor interface {
	Type() models.BadgeType
	Process(ctx context.Context, req Request) models.PosterResult
}

// ──────────────────── Shared result helpers ────────────────────

// noData reports a clean run that found nothing to draw. The dispatcher
// keeps the current poster path.
func noData(req Request) models.PosterResult {
	return models.PosterResult{SourcePath: req.PosterPath, Success: true}
}

func failed(req Request, err error) models.PosterResult {
	return models.PosterResult{SourcePath: req.PosterPath, Success: false, Err: err}
}

func applied(req Request, outputPath string, badgeType models.BadgeType) models.PosterResult {
	return models.PosterResult{
		SourcePath:    req.PosterPath,
		OutputPath:    outputPath,
		AppliedBadges: []string{string(badgeType)},
		Success:       true,
	}
}

// ──────────────────── Shared lookups ────────────────────

// fetchItem loads the media-server item behind a request, or nil when the
// request has no media reference.
func fetchItem(ctx context.Context, env *Env, req Request) (*jellyfin.Item, error) {
	if req.MediaRef == nil || env.Items == nil {
		return nil, nil
	}
	return env.Items.GetItem(ctx, req.MediaRef.ID)
}

// ratingItem translates a media-server item into the identifier bundle
// rating sources consume.
func ratingItem(it *jellyfin.Item) ratings.Item {
	return ratings.Item{
		Kind:      it.Kind(),
		Title:     it.Name,
		Year:      it.ProductionYear,
		IMDBID:    it.ProviderID("Imdb"),
		TMDBID:    it.ProviderIDInt("Tmdb"),
		TVDBID:    it.ProviderIDInt("Tvdb"),
		MALID:     it.ProviderIDInt("MyAnimeList"),
		AniListID: it.ProviderIDInt("AniList"),
		AniDBID:   it.ProviderIDInt("AniDB"),
		IsAnime:   isAnime(it),
	}
}

func isAnime(it *jellyfin.Item) bool {
	for _, g := range it.Genres {
		if strings.EqualFold(g, "anime") {
			return true
		}
	}
	return it.ProviderIDInt("AniList") != 0 || it.ProviderIDInt("AniDB") != 0 ||
		it.ProviderIDInt("MyAnimeList") != 0
}

// loadBadgeImage opens a selected badge PNG; a missing or corrupt file
// logs and returns nil so callers fall back to text.
func loadBadgeImage(path string) image.Image {
	img, err := imaging.Open(path)
	if err != nil {
		log.Printf("badges: open image %s: %v", path, err)
		return nil
	}
	return img
}

func budgetContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, processorBudget)
}

func budgetErr(ctx context.Context, badgeType models.BadgeType) error {
	return fmt.Errorf("%s processor: %w", badgeType, ctx.Err())
}
