package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/posterforge/posterforge/internal/animeids"
	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/models"
)

const (
	jikanDetailTTL = 24 * time.Hour
	jikanRetryWait = 5 * time.Second
)

// Jikan reads MyAnimeList scores through the Jikan API. Calls are spaced
// at least one second apart; a 429 gets one retry after a 5 s backoff.
type Jikan struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	mapper  MALResolver
}

func NewJikan(c *cache.Cache, mapper MALResolver) *Jikan {
	return &Jikan{
		baseURL: "https://api.jikan.moe",
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		cache:   c,
		mapper:  mapper,
	}
}

func (s *Jikan) Name() string { return "jikan" }

type jikanAnime struct {
	MALID    int     `json:"mal_id"`
	Title    string  `json:"title"`
	Score    float64 `json:"score"`
	ScoredBy int     `json:"scored_by"`
}

func (s *Jikan) Fetch(ctx context.Context, item Item) ([]models.RatingRecord, error) {
	malID := s.resolveMALID(ctx, item)
	if malID == 0 {
		return nil, nil
	}

	anime, err := s.anime(ctx, malID)
	if err != nil {
		return nil, err
	}
	if anime == nil || anime.Score <= 0 {
		return nil, nil
	}
	return []models.RatingRecord{{
		Source:   models.SourceMAL,
		Text:     fmt.Sprintf("%.2f", anime.Score),
		Score:    anime.Score,
		MaxScore: 10,
		ImageKey: "mal",
	}}, nil
}

// resolveMALID tries the direct id, then the AniList mapping, then the
// corpus title index, and finally a progressive Jikan title search.
func (s *Jikan) resolveMALID(ctx context.Context, item Item) int {
	if item.MALID != 0 {
		return item.MALID
	}
	if s.mapper != nil {
		if item.AniListID != 0 {
			if id, ok := s.mapper.MALFromAniList(ctx, item.AniListID); ok {
				return id
			}
		}
		if item.Title != "" {
			if id, _, ok := s.mapper.MALFromTitle(ctx, item.Title); ok {
				return id
			}
		}
	}
	if item.Title != "" {
		if id, ok := s.searchByTitle(ctx, item.Title); ok {
			return id
		}
	}
	return 0
}

// searchByTitle walks up to five query variations and scores every
// candidate against the original title. A best match below the score
// threshold is discarded.
func (s *Jikan) searchByTitle(ctx context.Context, title string) (int, bool) {
	for _, variation := range animeids.TitleVariations(title) {
		results, err := s.search(ctx, variation)
		if err != nil {
			log.Printf("jikan: search %q: %v", variation, err)
			continue
		}
		candidates := make([]animeids.Candidate, 0, len(results))
		for _, r := range results {
			candidates = append(candidates, animeids.Candidate{
				MALID: r.MALID,
				Title: r.Title,
				Score: r.Score,
				Votes: r.ScoredBy,
			})
		}
		if best, ok := animeids.BestMatch(title, candidates); ok {
			return best.MALID, true
		}
	}
	return 0, false
}

func (s *Jikan) anime(ctx context.Context, malID int) (*jikanAnime, error) {
	key := fmt.Sprintf("jikan:anime:%d", malID)
	v, err := s.cache.GetOrFetch(key, jikanDetailTTL, func() (interface{}, error) {
		var payload struct {
			Data jikanAnime `json:"data"`
		}
		if err := s.get(ctx, fmt.Sprintf("/v4/anime/%d", malID), &payload); err != nil {
			return nil, err
		}
		return &payload.Data, nil
	})
	if err != nil {
		return nil, err
	}
	anime, _ := v.(*jikanAnime)
	return anime, nil
}

func (s *Jikan) search(ctx context.Context, query string) ([]jikanAnime, error) {
	key := "jikan:search:" + query
	v, err := s.cache.GetOrFetch(key, jikanDetailTTL, func() (interface{}, error) {
		var payload struct {
			Data []jikanAnime `json:"data"`
		}
		path := "/v4/anime?limit=10&q=" + url.QueryEscape(query)
		if err := s.get(ctx, path, &payload); err != nil {
			return nil, err
		}
		return payload.Data, nil
	})
	if err != nil {
		return nil, err
	}
	results, _ := v.([]jikanAnime)
	return results, nil
}

func (s *Jikan) get(ctx context.Context, path string, dst interface{}) error {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("jikan %s: %w", path, err)
		}
		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			resp.Body.Close()
			select {
			case <-time.After(jikanRetryWait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("jikan %s: status %d", path, resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(dst)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("jikan %s: decode: %w", path, err)
		}
		return nil
	}
}
