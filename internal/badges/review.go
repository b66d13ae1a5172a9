package badges

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/ratings"
	"github.com/posterforge/posterforge/internal/settings"
)

// RatingFetcher aggregates rating records across every configured source.
type RatingFetcher interface {
	FetchAll(ctx context.Context, item ratings.Item) []models.RatingRecord
}

// ReviewProcessor composes the multi-source rating container badge.
type ReviewProcessor struct {
	env     *Env
	ratings RatingFetcher
}

func NewReviewProcessor(env *Env, fetcher RatingFetcher) *ReviewProcessor {
	return &ReviewProcessor{env: env, ratings: fetcher}
}

func (p *ReviewProcessor) Type() models.BadgeType { return models.BadgeReview }

func (p *ReviewProcessor) Process(ctx context.Context, req Request) models.PosterResult {
	ctx, cancel := budgetContext(ctx)
	defer cancel()

	s, err := p.env.Settings.GetBadgeSettings(ctx, req.Session, models.BadgeReview, true)
	if err != nil {
		return failed(req, err)
	}

	records, isAnime, ok := p.collect(ctx, req)
	if !ok {
		return noData(req)
	}
	records = ratings.Finalize(records, s.Sources, s.General.MaxBadgesToDisplay, isAnime)
	if len(records) == 0 {
		return noData(req)
	}
	if ctx.Err() != nil {
		return failed(req, budgetErr(ctx, models.BadgeReview))
	}

	container, err := p.renderContainer(records, s)
	if err != nil {
		return failed(req, err)
	}

	out, err := p.env.Compositor.ApplyBadge(req.PosterPath, container, models.BadgeReview, s.General, req.OutputPath)
	if err != nil {
		return failed(req, err)
	}
	return applied(req, out, models.BadgeReview)
}

func (p *ReviewProcessor) collect(ctx context.Context, req Request) ([]models.RatingRecord, bool, bool) {
	if req.UseDemo {
		return DemoRatings(req.PosterPath), false, true
	}
	if p.ratings == nil {
		return nil, false, false
	}

	it, err := fetchItem(ctx, p.env, req)
	if err != nil {
		log.Printf("badges: review item %s: %v", req.MediaRef.ID, err)
		return nil, false, false
	}
	if it == nil {
		return nil, false, false
	}
	item := ratingItem(it)
	return p.ratings.FetchAll(ctx, item), item.IsAnime, true
}

// renderContainer builds one child badge per record: the source logo when
// the pack carries it, then the score text. Orientation, spacing and the
// display cap all come from settings.
func (p *ReviewProcessor) renderContainer(records []models.RatingRecord, s *settings.BadgeSettings) (image.Image, error) {
	var children []image.Image
	for _, r := range records {
		if s.ImageBadges.Enabled {
			if path, ok := p.env.Images.SelectMappedImage(r.ImageKey, s.ImageBadges.ImageMapping); ok {
				if logo := loadBadgeImage(path); logo != nil {
					child, err := p.env.Renderer.ImageBadge(logo, s)
					if err == nil {
						children = append(children, child)
					}
				}
			}
		}
		text := r.Text
		if text == "" {
			text = fmt.Sprintf("%d%%", r.Percentage())
		}
		child, err := p.env.Renderer.TextBadge(text, s)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return p.env.Renderer.Container(children, s)
}
