package badges

import (
	"context"
	"fmt"
	"log"

	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/ratings"
	"github.com/posterforge/posterforge/internal/settings"
)

// AwardSource detects the single most prestigious award for an item.
type AwardSource interface {
	Detect(ctx context.Context, item ratings.Item) (models.AwardToken, bool)
}

// AwardsProcessor stamps the award badge. Awards are image-only: when the
// pack has no image for the winning token, the poster passes through
// unchanged.
type AwardsProcessor struct {
	env      *Env
	detector AwardSource
}

func NewAwardsProcessor(env *Env, detector AwardSource) *AwardsProcessor {
	return &AwardsProcessor{env: env, detector: detector}
}

func (p *AwardsProcessor) Type() models.BadgeType { return models.BadgeAwards }

func (p *AwardsProcessor) Process(ctx context.Context, req Request) models.PosterResult {
	ctx, cancel := budgetContext(ctx)
	defer cancel()

	s, err := p.env.Settings.GetBadgeSettings(ctx, req.Session, models.BadgeAwards, true)
	if err != nil {
		return failed(req, err)
	}

	token, ok := p.award(ctx, req)
	if !ok || !allowedSource(token, s.Awards.AwardSources) {
		return noData(req)
	}
	if ctx.Err() != nil {
		return failed(req, budgetErr(ctx, models.BadgeAwards))
	}

	path, ok := p.awardImage(token, s)
	if !ok {
		log.Printf("badges: no award image for %q", token)
		return noData(req)
	}
	img := loadBadgeImage(path)
	if img == nil {
		return noData(req)
	}

	badge, err := p.env.Renderer.ImageBadge(img, s)
	if err != nil {
		return failed(req, err)
	}

	out, err := p.env.Compositor.ApplyBadge(req.PosterPath, badge, models.BadgeAwards, s.General, req.OutputPath)
	if err != nil {
		return failed(req, err)
	}
	return applied(req, out, models.BadgeAwards)
}

func (p *AwardsProcessor) award(ctx context.Context, req Request) (models.AwardToken, bool) {
	if req.UseDemo {
		return DemoAward(req.PosterPath)
	}
	if p.detector == nil {
		return "", false
	}

	it, err := fetchItem(ctx, p.env, req)
	if err != nil || it == nil {
		if err != nil {
			log.Printf("badges: awards item %s: %v", req.MediaRef.ID, err)
		}
		return "", false
	}
	return p.detector.Detect(ctx, ratingItem(it))
}

// awardImage tries the color-scheme variant first, then the bare token.
func (p *AwardsProcessor) awardImage(token models.AwardToken, s *settings.BadgeSettings) (string, bool) {
	if scheme := s.Awards.ColorScheme; scheme != "" {
		key := fmt.Sprintf("%s-%s", token, scheme)
		if path, ok := p.env.Images.SelectMappedImage(key, s.ImageBadges.ImageMapping); ok {
			return path, true
		}
	}
	return p.env.Images.SelectMappedImage(string(token), s.ImageBadges.ImageMapping)
}

func allowedSource(token models.AwardToken, sources []string) bool {
	if len(sources) == 0 {
		return true
	}
	for _, s := range sources {
		if s == string(token) {
			return true
		}
	}
	return false
}
