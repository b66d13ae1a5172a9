package analysis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterforge/posterforge/internal/jellyfin"
	"github.com/posterforge/posterforge/internal/models"
)

// fakeSource serves canned episodes and per-episode stream payloads.
type fakeSource struct {
	mu       sync.Mutex
	episodes []jellyfin.Item
	streams  map[string]*jellyfin.Item
	fail     map[string]bool
	hang     map[string]bool
	inflight int
	maxSeen  int
}

func (f *fakeSource) GetEpisodes(ctx context.Context, seriesID string, limit int) ([]jellyfin.Item, error) {
	if limit > 0 && limit < len(f.episodes) {
		return f.episodes[:limit], nil
	}
	return f.episodes, nil
}

func (f *fakeSource) GetMediaStreams(ctx context.Context, itemID string) (*jellyfin.Item, error) {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxSeen {
		f.maxSeen = f.inflight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if f.hang[itemID] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.fail[itemID] {
		return nil, fmt.Errorf("boom")
	}
	if item, ok := f.streams[itemID]; ok {
		return item, nil
	}
	return nil, fmt.Errorf("unknown episode %s", itemID)
}

func audioEpisode(id, codec string, channels int) *jellyfin.Item {
	return &jellyfin.Item{
		ID:   id,
		Type: "Episode",
		MediaStreams: []jellyfin.Stream{
			{Type: "Audio", Codec: codec, Channels: channels},
			{Type: "Video", Codec: "h264", Height: 1080, Width: 1920},
		},
	}
}

func makeEpisodes(n int) []jellyfin.Item {
	eps := make([]jellyfin.Item, n)
	for i := range eps {
		eps[i] = jellyfin.Item{ID: fmt.Sprintf("ep%d", i), Type: "Episode"}
	}
	return eps
}

func TestDominantAudioModalValue(t *testing.T) {
	src := &fakeSource{
		episodes: makeEpisodes(5),
		streams: map[string]*jellyfin.Item{
			"ep0": audioEpisode("ep0", "eac3", 6),
			"ep1": audioEpisode("ep1", "eac3", 6),
			"ep2": audioEpisode("ep2", "aac", 2),
			"ep3": audioEpisode("ep3", "eac3", 6),
			"ep4": audioEpisode("ep4", "eac3", 6),
		},
	}
	a := NewAnalyzer(src, nil)

	info := a.DominantAudio(context.Background(), "s1")
	assert.Equal(t, "EAC3 6.0", info.DisplayLabel)
}

func TestDominantTieBreaksByFirstSeen(t *testing.T) {
	src := &fakeSource{
		episodes: makeEpisodes(2),
		streams: map[string]*jellyfin.Item{
			"ep0": audioEpisode("ep0", "aac", 2),
			"ep1": audioEpisode("ep1", "eac3", 6),
		},
	}
	a := NewAnalyzer(src, nil)

	info := a.DominantAudio(context.Background(), "s1")
	assert.Equal(t, "AAC 2.0", info.DisplayLabel, "ties break by first-seen sample")
}

func TestDominantSurvivesPartialFailures(t *testing.T) {
	src := &fakeSource{
		episodes: makeEpisodes(5),
		streams: map[string]*jellyfin.Item{
			"ep0": audioEpisode("ep0", "ac3", 6),
			"ep4": audioEpisode("ep4", "eac3", 6),
		},
		hang: map[string]bool{"ep1": true, "ep2": true, "ep3": true},
	}
	a := NewAnalyzer(src, nil)
	a.EpisodeTimeout = 50 * time.Millisecond

	info := a.DominantAudio(context.Background(), "s1")
	assert.Equal(t, "AC3 6.0", info.DisplayLabel, "mode of surviving samples, first-seen wins")
}

func TestDominantAllFailuresYieldsDefault(t *testing.T) {
	src := &fakeSource{
		episodes: makeEpisodes(3),
		fail:     map[string]bool{"ep0": true, "ep1": true, "ep2": true},
	}
	a := NewAnalyzer(src, nil)

	assert.Equal(t, DefaultAudio, a.DominantAudio(context.Background(), "s1"))
	assert.Equal(t, DefaultResolution, a.DominantResolution(context.Background(), "s1"))
}

func TestConcurrencyCapRespected(t *testing.T) {
	streams := make(map[string]*jellyfin.Item)
	eps := makeEpisodes(10)
	for _, ep := range eps {
		streams[ep.ID] = audioEpisode(ep.ID, "eac3", 6)
	}
	src := &fakeSource{episodes: eps, streams: streams}
	a := NewAnalyzer(src, nil)
	a.SampleSize = 10
	a.MaxConcurrency = 2

	a.DominantAudio(context.Background(), "s1")
	assert.LessOrEqual(t, src.maxSeen, 2)
}

func TestSampleEpisodesEndpointsAndMiddle(t *testing.T) {
	eps := makeEpisodes(24)
	picked := sampleEpisodes(eps, 5)
	require.Len(t, picked, 5)
	assert.Equal(t, "ep0", picked[0].ID)
	assert.Equal(t, "ep23", picked[4].ID)

	// Small series sample everything.
	assert.Len(t, sampleEpisodes(makeEpisodes(3), 5), 3)
	assert.Empty(t, sampleEpisodes(nil, 5))
}

func TestDominantResolutionUsesCache(t *testing.T) {
	cache := NewSeriesCache("")
	cache.PutResolution("s1", models.ResolutionInfo{Base: models.Res4K, IsHDR: true})

	// Source that would fail if consulted.
	src := &fakeSource{}
	a := NewAnalyzer(src, cache)

	info := a.DominantResolution(context.Background(), "s1")
	assert.Equal(t, models.Res4K, info.Base)
	assert.True(t, info.IsHDR)
}
