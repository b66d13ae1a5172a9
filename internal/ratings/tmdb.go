package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/models"
)

const tmdbTTL = time.Hour

// TMDb reads vote_average/vote_count for a movie or TV item, authenticated
// with a Bearer token.
type TMDb struct {
	token   string
	baseURL string
	client  *http.Client
	cache   *cache.Cache
}

func NewTMDb(token string, c *cache.Cache) *TMDb {
	return &TMDb{
		token:   token,
		baseURL: "https://api.themoviedb.org",
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   c,
	}
}

func (s *TMDb) Name() string { return "tmdb" }

// Details is the slice of a TMDb item the pipeline consumes; the awards
// detector reuses it for the vote_average signal.
type Details struct {
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int     `json:"vote_count"`
	Title       string  `json:"title"`
	Name        string  `json:"name"`
}

func (s *TMDb) Fetch(ctx context.Context, item Item) ([]models.RatingRecord, error) {
	if item.TMDBID == 0 || s.token == "" {
		return nil, nil
	}
	details, err := s.Details(ctx, item.TMDBID, item.Kind)
	if err != nil {
		return nil, err
	}
	if details == nil || details.VoteAverage <= 0 {
		return nil, nil
	}
	return []models.RatingRecord{{
		Source:   models.SourceTMDb,
		Text:     fmt.Sprintf("%.1f", details.VoteAverage),
		Score:    details.VoteAverage,
		MaxScore: 10,
		ImageKey: "tmdb",
	}}, nil
}

// Details fetches /3/{movie|tv}/{id}, cached for an hour.
func (s *TMDb) Details(ctx context.Context, tmdbID int, kind models.MediaKind) (*Details, error) {
	path := "movie"
	if kind.IsEpisodic() || kind == models.KindEpisode {
		path = "tv"
	}
	key := fmt.Sprintf("tmdb:%s:%d", path, tmdbID)
	v, err := s.cache.GetOrFetch(key, tmdbTTL, func() (interface{}, error) {
		var details Details
		if err := s.get(ctx, fmt.Sprintf("/3/%s/%d", path, tmdbID), &details); err != nil {
			return nil, err
		}
		return &details, nil
	})
	if err != nil {
		return nil, err
	}
	details, _ := v.(*Details)
	return details, nil
}

// Keywords fetches the keyword list the awards detector scans.
func (s *TMDb) Keywords(ctx context.Context, tmdbID int, kind models.MediaKind) ([]string, error) {
	if tmdbID == 0 || s.token == "" {
		return nil, nil
	}
	path := "movie"
	if kind.IsEpisodic() || kind == models.KindEpisode {
		path = "tv"
	}
	key := fmt.Sprintf("tmdb:keywords:%s:%d", path, tmdbID)
	v, err := s.cache.GetOrFetch(key, tmdbTTL, func() (interface{}, error) {
		var payload struct {
			Keywords []struct {
				Name string `json:"name"`
			} `json:"keywords"`
			Results []struct {
				Name string `json:"name"`
			} `json:"results"` // TV uses "results"
		}
		if err := s.get(ctx, fmt.Sprintf("/3/%s/%d/keywords", path, tmdbID), &payload); err != nil {
			return nil, err
		}
		names := make([]string, 0, len(payload.Keywords)+len(payload.Results))
		for _, k := range payload.Keywords {
			names = append(names, k.Name)
		}
		for _, k := range payload.Results {
			names = append(names, k.Name)
		}
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	names, _ := v.([]string)
	return names, nil
}

func (s *TMDb) get(ctx context.Context, path string, dst interface{}) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)
	header.Set("Accept", "application/json")

	resp, err := doWithRetryAfter(ctx, s.client, s.baseURL+path, header)
	if err != nil {
		return fmt.Errorf("tmdb %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("tmdb %s: decode: %w", path, err)
	}
	return nil
}
