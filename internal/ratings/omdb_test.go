package ratings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/models"
)

const omdbJSON = `{
	"Response": "True",
	"imdbRating": "8.7",
	"imdbVotes": "300,000",
	"Awards": "Won 2 Oscars. 101 wins & 123 nominations total",
	"Ratings": [
		{"Source": "Internet Movie Database", "Value": "8.7/10"},
		{"Source": "Rotten Tomatoes", "Value": "91%"},
		{"Source": "Metacritic", "Value": "76/100"}
	]
}`

func newOMDbTest(t *testing.T, handler http.HandlerFunc) (*OMDb, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := cache.New(time.Hour)
	t.Cleanup(c.Close)
	s := NewOMDb("key", c)
	s.baseURL = srv.URL
	return s, srv
}

func TestOMDbFetchYieldsThreeRecords(t *testing.T) {
	calls := 0
	s, _ := newOMDbTest(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "tt1856101", r.URL.Query().Get("i"))
		w.Write([]byte(omdbJSON))
	})

	records, err := s.Fetch(context.Background(), Item{IMDBID: "tt1856101"})
	require.NoError(t, err)
	require.Len(t, records, 3)

	bySource := map[string]models.RatingRecord{}
	for _, r := range records {
		bySource[r.Source] = r
	}

	imdb := bySource[models.SourceIMDbTop250]
	assert.Equal(t, 8.7, imdb.Score)
	assert.Equal(t, 87, imdb.Percentage())
	assert.Equal(t, "imdb_top_250", imdb.ImageKey)

	assert.Equal(t, float64(91), bySource[models.SourceRTCritics].Score)
	assert.Equal(t, float64(76), bySource[models.SourceMetacritic].Score)

	// Second fetch is served from cache.
	_, err = s.Fetch(context.Background(), Item{IMDBID: "tt1856101"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestOMDbWithoutIMDbIDIsEmptyNotError(t *testing.T) {
	s, _ := newOMDbTest(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("must not be called")
	})
	records, err := s.Fetch(context.Background(), Item{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOMDbAwardsText(t *testing.T) {
	s, _ := newOMDbTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(omdbJSON))
	})
	text, err := s.AwardsText(context.Background(), "tt1")
	require.NoError(t, err)
	assert.Contains(t, text, "Won 2 Oscars")
}

func TestOMDbRetryAfterHonored(t *testing.T) {
	calls := 0
	s, _ := newOMDbTest(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(omdbJSON))
	})

	records, err := s.Fetch(context.Background(), Item{IMDBID: "tt1"})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 2, calls)
}

func TestSelectIMDbVariant(t *testing.T) {
	tests := []struct {
		score   float64
		votes   int
		variant string
	}{
		{8.7, 300000, models.SourceIMDbTop250},
		{8.5, 250000, models.SourceIMDbTop250},
		{8.5, 249999, models.SourceIMDbTop1000},
		{8.4, 300000, models.SourceIMDbTop1000},
		{8.0, 100000, models.SourceIMDbTop1000},
		{8.0, 99999, models.SourceIMDb},
		{7.9, 900000, models.SourceIMDb},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.variant, SelectIMDbVariant(tc.score, tc.votes),
			"score=%.1f votes=%d", tc.score, tc.votes)
	}
}

func TestParseVotes(t *testing.T) {
	assert.Equal(t, 1234567, parseVotes("1,234,567"))
	assert.Equal(t, 0, parseVotes("N/A"))
}
