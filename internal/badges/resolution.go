package badges

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/posterforge/posterforge/internal/analysis"
	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/settings"
)

// ResolutionProcessor stamps the video resolution badge, including DV,
// HDR and HDR10+ variants when the image pack carries them.
type ResolutionProcessor struct {
	env      *Env
	detector *analysis.ResolutionDetector
}

func NewResolutionProcessor(env *Env) *ResolutionProcessor {
	return &ResolutionProcessor{env: env, detector: analysis.NewResolutionDetector()}
}

func (p *ResolutionProcessor) Type() models.BadgeType { return models.BadgeResolution }

func (p *ResolutionProcessor) Process(ctx context.Context, req Request) models.PosterResult {
	ctx, cancel := budgetContext(ctx)
	defer cancel()

	s, err := p.env.Settings.GetBadgeSettings(ctx, req.Session, models.BadgeResolution, true)
	if err != nil {
		return failed(req, err)
	}

	info, ok := p.resolutionInfo(ctx, req)
	if !ok {
		return noData(req)
	}
	if ctx.Err() != nil {
		return failed(req, budgetErr(ctx, models.BadgeResolution))
	}

	badge, err := p.renderBadge(info, s)
	if err != nil {
		return failed(req, err)
	}

	out, err := p.env.Compositor.ApplyBadge(req.PosterPath, badge, models.BadgeResolution, s.General, req.OutputPath)
	if err != nil {
		return failed(req, err)
	}
	return applied(req, out, models.BadgeResolution)
}

func (p *ResolutionProcessor) resolutionInfo(ctx context.Context, req Request) (models.ResolutionInfo, bool) {
	if req.UseDemo {
		return DemoResolution(req.PosterPath), true
	}
	if req.MediaRef == nil {
		return models.ResolutionInfo{}, false
	}

	if req.MediaRef.Kind.IsEpisodic() && p.env.Analyzer != nil {
		return p.env.Analyzer.DominantResolution(ctx, req.MediaRef.ID), true
	}

	if p.env.Items == nil {
		return models.ResolutionInfo{}, false
	}
	it, err := p.env.Items.GetMediaStreams(ctx, req.MediaRef.ID)
	if err != nil {
		log.Printf("badges: video streams for %s: %v", req.MediaRef.ID, err)
		return models.ResolutionInfo{}, false
	}
	video := it.Streams().Video
	if len(video) == 0 {
		return models.ResolutionInfo{}, false
	}
	return p.detector.Detect(video[0]), true
}

func (p *ResolutionProcessor) renderBadge(info models.ResolutionInfo, s *settings.BadgeSettings) (image.Image, error) {
	if s.ImageBadges.Enabled {
		if path, ok := p.env.Images.SelectResolutionImage(info, s.ImageBadges.ImageMapping); ok {
			if img := loadBadgeImage(path); img != nil {
				return p.env.Renderer.ImageBadge(img, s)
			}
		}
		if !s.ImageBadges.FallbackToText {
			return nil, fmt.Errorf("no resolution badge image for %q", info.String())
		}
	}
	return p.env.Renderer.TextBadge(info.String(), s)
}
