package analysis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/posterforge/posterforge/internal/jellyfin"
	"github.com/posterforge/posterforge/internal/models"
)

// MediaSource is the slice of the media-server client the analyzer needs.
type MediaSource interface {
	GetEpisodes(ctx context.Context, seriesID string, limit int) ([]jellyfin.Item, error)
	GetMediaStreams(ctx context.Context, itemID string) (*jellyfin.Item, error)
}

const (
	DefaultSampleSize     = 5
	DefaultEpisodeTimeout = 10 * time.Second
	DefaultMaxConcurrency = 5
	seriesCacheTTL        = 24 * time.Hour
)

// Analyzer samples a handful of episodes across a series and reports the
// modal audio codec and resolution. Timed-out or failed episodes are
// dropped; an all-failure sample falls back to a sensible default.
type Analyzer struct {
	src            MediaSource
	audio          *AudioClassifier
	resolution     *ResolutionDetector
	cache          *SeriesCache
	SampleSize     int
	EpisodeTimeout time.Duration
	MaxConcurrency int
}

func NewAnalyzer(src MediaSource, cache *SeriesCache) *Analyzer {
	return &Analyzer{
		src:            src,
		audio:          NewAudioClassifier(),
		resolution:     NewResolutionDetector(),
		cache:          cache,
		SampleSize:     DefaultSampleSize,
		EpisodeTimeout: DefaultEpisodeTimeout,
		MaxConcurrency: DefaultMaxConcurrency,
	}
}

// DominantAudio returns the modal audio classification across sampled
// episodes of one series.
func (a *Analyzer) DominantAudio(ctx context.Context, seriesID string) models.AudioInfo {
	if a.cache != nil {
		if cached, ok := a.cache.Audio(seriesID); ok {
			return cached
		}
	}

	streams := a.sampleStreams(ctx, seriesID)
	var labels []string
	byLabel := make(map[string]models.AudioInfo)
	for _, item := range streams {
		ms := item.Streams()
		if len(ms.Audio) == 0 {
			continue
		}
		info, ok := a.audio.Classify(ms.Audio[0])
		if !ok {
			continue
		}
		labels = append(labels, info.DisplayLabel)
		if _, seen := byLabel[info.DisplayLabel]; !seen {
			byLabel[info.DisplayLabel] = info
		}
	}

	result := DefaultAudio
	if winner, ok := modal(labels); ok {
		result = byLabel[winner]
	} else {
		log.Printf("analysis: series %s: no usable audio sample, defaulting to %s", seriesID, DefaultAudio.DisplayLabel)
	}

	if a.cache != nil {
		a.cache.PutAudio(seriesID, result)
	}
	return result
}

// DominantResolution returns the modal resolution across sampled episodes.
func (a *Analyzer) DominantResolution(ctx context.Context, seriesID string) models.ResolutionInfo {
	if a.cache != nil {
		if cached, ok := a.cache.Resolution(seriesID); ok {
			return cached
		}
	}

	streams := a.sampleStreams(ctx, seriesID)
	var keys []string
	byKey := make(map[string]models.ResolutionInfo)
	for _, item := range streams {
		ms := item.Streams()
		if len(ms.Video) == 0 {
			continue
		}
		info := a.resolution.Detect(ms.Video[0])
		key := info.String()
		keys = append(keys, key)
		if _, seen := byKey[key]; !seen {
			byKey[key] = info
		}
	}

	result := DefaultResolution
	if winner, ok := modal(keys); ok {
		result = byKey[winner]
	} else {
		log.Printf("analysis: series %s: no usable resolution sample, defaulting to %s", seriesID, DefaultResolution.Base)
	}

	if a.cache != nil {
		a.cache.PutResolution(seriesID, result)
	}
	return result
}

// sampleStreams picks up to SampleSize episodes strategically (endpoints
// plus evenly spread middles) and resolves their streams in parallel under
// a concurrency cap and per-episode timeout.
func (a *Analyzer) sampleStreams(ctx context.Context, seriesID string) []*jellyfin.Item {
	episodes, err := a.src.GetEpisodes(ctx, seriesID, a.SampleSize*2)
	if err != nil {
		log.Printf("analysis: series %s: episode listing failed: %v", seriesID, err)
		return nil
	}
	sampled := sampleEpisodes(episodes, a.SampleSize)
	if len(sampled) == 0 {
		return nil
	}

	results := make([]*jellyfin.Item, len(sampled))
	sem := make(chan struct{}, a.MaxConcurrency)
	var wg sync.WaitGroup
	for i, ep := range sampled {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			epCtx, cancel := context.WithTimeout(ctx, a.EpisodeTimeout)
			defer cancel()
			item, err := a.src.GetMediaStreams(epCtx, id)
			if err != nil {
				log.Printf("analysis: episode %s: %v", id, err)
				return
			}
			results[i] = item
		}(i, ep.ID)
	}
	wg.Wait()

	// Compact in sample order so first-seen tie-breaking is deterministic.
	out := results[:0]
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// sampleEpisodes picks endpoints plus evenly spaced middles for n >= 2
// samples, preserving episode order.
func sampleEpisodes(episodes []jellyfin.Item, n int) []jellyfin.Item {
	if n <= 0 || len(episodes) == 0 {
		return nil
	}
	if len(episodes) <= n {
		return episodes
	}
	if n == 1 {
		return episodes[:1]
	}

	picked := make([]jellyfin.Item, 0, n)
	seen := make(map[int]bool, n)
	last := len(episodes) - 1
	for i := 0; i < n; i++ {
		idx := i * last / (n - 1)
		if !seen[idx] {
			seen[idx] = true
			picked = append(picked, episodes[idx])
		}
	}
	return picked
}

// modal returns the most frequent value; ties break by first appearance.
func modal(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(values))
	var order []string
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	best := order[0]
	for _, v := range order {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, true
}
