package awards

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/ratings"
)

type stubKeywords struct {
	names []string
	err   error
}

func (s stubKeywords) Keywords(ctx context.Context, tmdbID int, kind models.MediaKind) ([]string, error) {
	return s.names, s.err
}

type stubText struct {
	text string
	err  error
}

func (s stubText) AwardsText(ctx context.Context, imdbID string) (string, error) {
	return s.text, s.err
}

type stubDetails struct {
	voteAverage float64
}

func (s stubDetails) Details(ctx context.Context, tmdbID int, kind models.MediaKind) (*ratings.Details, error) {
	return &ratings.Details{VoteAverage: s.voteAverage}, nil
}

func writeDataFiles(t *testing.T) string {
	dir := t.TempDir()
	staticJSON := `{"movie": {"tt0111161": ["imdb"]}}`
	crJSON := `{"tmdb_ids": [95479], "titles": ["Frieren: Beyond Journey's End"]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "awards_static.json"), []byte(staticJSON), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crunchyroll_winners.json"), []byte(crJSON), 0644))
	return dir
}

func newTestDetector(t *testing.T, keywords KeywordSource, text TextSource, details DetailsSource) *Detector {
	c := cache.New(time.Hour)
	t.Cleanup(c.Close)
	return NewDetector(writeDataFiles(t), keywords, text, details, c)
}

func TestDetectOscarBeatsStaticIMDb(t *testing.T) {
	d := newTestDetector(t,
		stubKeywords{},
		stubText{text: "Won 7 Oscars. 100 wins total"},
		stubDetails{voteAverage: 9.3},
	)
	token, ok := d.Detect(context.Background(), ratings.Item{
		Kind: models.KindMovie, IMDBID: "tt0111161", TMDBID: 278,
	})
	require.True(t, ok)
	assert.Equal(t, models.AwardOscars, token)
}

func TestDetectStaticTableFallback(t *testing.T) {
	d := newTestDetector(t, stubKeywords{}, stubText{text: "3 nominations"}, stubDetails{voteAverage: 7.0})
	token, ok := d.Detect(context.Background(), ratings.Item{
		Kind: models.KindMovie, IMDBID: "tt0111161",
	})
	require.True(t, ok)
	assert.Equal(t, models.AwardIMDb, token)
}

func TestDetectImplicitIMDbFromVoteAverage(t *testing.T) {
	d := newTestDetector(t, stubKeywords{}, stubText{}, stubDetails{voteAverage: 8.5})
	token, ok := d.Detect(context.Background(), ratings.Item{
		Kind: models.KindMovie, IMDBID: "tt9999999", TMDBID: 42,
	})
	require.True(t, ok)
	assert.Equal(t, models.AwardIMDb, token)
}

func TestDetectCrunchyrollByTMDbIDNeedsAnime(t *testing.T) {
	d := newTestDetector(t, stubKeywords{}, stubText{}, stubDetails{voteAverage: 7.0})

	item := ratings.Item{Kind: models.KindSeries, TMDBID: 95479}
	_, ok := d.Detect(context.Background(), item)
	assert.False(t, ok)

	item.IsAnime = true
	token, ok := d.Detect(context.Background(), item)
	require.True(t, ok)
	assert.Equal(t, models.AwardCrunchyroll, token)
}

func TestDetectCrunchyrollByTitle(t *testing.T) {
	d := newTestDetector(t, stubKeywords{}, stubText{}, stubDetails{voteAverage: 7.0})
	token, ok := d.Detect(context.Background(), ratings.Item{
		Kind: models.KindSeries, Title: "frieren: beyond journey's end", IsAnime: true,
	})
	require.True(t, ok)
	assert.Equal(t, models.AwardCrunchyroll, token)
}

func TestDetectKeywordScan(t *testing.T) {
	d := newTestDetector(t,
		stubKeywords{names: []string{"road movie", "palme d'or"}},
		stubText{}, stubDetails{voteAverage: 7.0},
	)
	token, ok := d.Detect(context.Background(), ratings.Item{Kind: models.KindMovie, TMDBID: 7})
	require.True(t, ok)
	assert.Equal(t, models.AwardCannes, token)
}

func TestDetectSourceFailureIsTolerated(t *testing.T) {
	d := newTestDetector(t,
		stubKeywords{err: fmt.Errorf("timeout")},
		stubText{err: fmt.Errorf("timeout")},
		stubDetails{voteAverage: 9.0},
	)
	token, ok := d.Detect(context.Background(), ratings.Item{Kind: models.KindMovie, TMDBID: 9})
	require.True(t, ok)
	assert.Equal(t, models.AwardIMDb, token)
}

func TestDetectNoSignal(t *testing.T) {
	d := newTestDetector(t, stubKeywords{}, stubText{}, stubDetails{voteAverage: 6.0})
	_, ok := d.Detect(context.Background(), ratings.Item{Kind: models.KindMovie, TMDBID: 5})
	assert.False(t, ok)
}

func TestDetectMissingDataFilesAreNonFatal(t *testing.T) {
	c := cache.New(time.Hour)
	t.Cleanup(c.Close)
	d := NewDetector(t.TempDir(), stubKeywords{}, stubText{text: "Won 1 BAFTA Award"}, stubDetails{}, c)
	token, ok := d.Detect(context.Background(), ratings.Item{Kind: models.KindMovie, IMDBID: "tt1"})
	require.True(t, ok)
	assert.Equal(t, models.AwardBAFTA, token)
}
