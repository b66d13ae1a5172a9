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

// AudioProcessor stamps the item's audio codec badge. Movies read their
// own stream list; series defer to the dominant-value analyzer.
type AudioProcessor struct {
	env        *Env
	classifier *analysis.AudioClassifier
}

func NewAudioProcessor(env *Env) *AudioProcessor {
	return &AudioProcessor{env: env, classifier: analysis.NewAudioClassifier()}
}

func (p *AudioProcessor) Type() models.BadgeType { return models.BadgeAudio }

func (p *AudioProcessor) Process(ctx context.Context, req Request) models.PosterResult {
	ctx, cancel := budgetContext(ctx)
	defer cancel()

	s, err := p.env.Settings.GetBadgeSettings(ctx, req.Session, models.BadgeAudio, true)
	if err != nil {
		return failed(req, err)
	}

	info, ok := p.audioInfo(ctx, req)
	if !ok {
		return noData(req)
	}
	if ctx.Err() != nil {
		return failed(req, budgetErr(ctx, models.BadgeAudio))
	}

	badge, err := p.renderBadge(info, s)
	if err != nil {
		return failed(req, err)
	}

	out, err := p.env.Compositor.ApplyBadge(req.PosterPath, badge, models.BadgeAudio, s.General, req.OutputPath)
	if err != nil {
		return failed(req, err)
	}
	return applied(req, out, models.BadgeAudio)
}

func (p *AudioProcessor) audioInfo(ctx context.Context, req Request) (models.AudioInfo, bool) {
	if req.UseDemo {
		return DemoAudio(req.PosterPath), true
	}
	if req.MediaRef == nil {
		return models.AudioInfo{}, false
	}

	if req.MediaRef.Kind.IsEpisodic() && p.env.Analyzer != nil {
		return p.env.Analyzer.DominantAudio(ctx, req.MediaRef.ID), true
	}

	if p.env.Items == nil {
		return models.AudioInfo{}, false
	}
	it, err := p.env.Items.GetMediaStreams(ctx, req.MediaRef.ID)
	if err != nil {
		log.Printf("badges: audio streams for %s: %v", req.MediaRef.ID, err)
		return models.AudioInfo{}, false
	}
	for _, stream := range it.Streams().Audio {
		if info, ok := p.classifier.Classify(stream); ok {
			return info, true
		}
	}
	return models.AudioInfo{}, false
}

func (p *AudioProcessor) renderBadge(info models.AudioInfo, s *settings.BadgeSettings) (image.Image, error) {
	if s.ImageBadges.Enabled {
		key := analysis.AudioImageKey(info.CodecFamily)
		if path, ok := p.env.Images.SelectAudioImage(key, s.ImageBadges.ImageMapping); ok {
			if img := loadBadgeImage(path); img != nil {
				return p.env.Renderer.ImageBadge(img, s)
			}
		}
		if !s.ImageBadges.FallbackToText {
			return nil, fmt.Errorf("no audio badge image for %q", info.CodecFamily)
		}
	}
	return p.env.Renderer.TextBadge(info.DisplayLabel, s)
}
