package ratings

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/posterforge/posterforge/internal/animeids"
	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/models"
)

const anidbTTL = 24 * time.Hour

// AniDBIDResolver derives an AniDB id from other provider ids via the
// community anime_ids corpus.
type AniDBIDResolver interface {
	ResolveAniDB(ctx context.Context, ids animeids.ExternalIDs) (int, bool)
}

// AniDB reads the permanent rating from the AniDB HTTP API. The API
// requires a registered client name/version and tolerates at most one
// call every two seconds.
type AniDB struct {
	baseURL    string
	clientName string
	version    int
	client     *http.Client
	limiter    *rate.Limiter
	cache      *cache.Cache
	resolver   AniDBIDResolver
}

func NewAniDB(clientName string, version int, c *cache.Cache, resolver AniDBIDResolver) *AniDB {
	return &AniDB{
		baseURL:    "http://api.anidb.net:9001",
		clientName: clientName,
		version:    version,
		client:     &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
		cache:      c,
		resolver:   resolver,
	}
}

func (s *AniDB) Name() string { return "anidb" }

type anidbAnime struct {
	Ratings struct {
		Permanent struct {
			Count int     `xml:"count,attr"`
			Value float64 `xml:",chardata"`
		} `xml:"permanent"`
	} `xml:"ratings"`
	Error string `xml:"error"`
}

func (s *AniDB) Fetch(ctx context.Context, item Item) ([]models.RatingRecord, error) {
	if s.clientName == "" {
		return nil, nil
	}
	aid := item.AniDBID
	if aid == 0 && s.resolver != nil {
		if id, ok := s.resolver.ResolveAniDB(ctx, animeids.ExternalIDs{
			TMDB:    item.TMDBID,
			TVDB:    item.TVDBID,
			IMDB:    item.IMDBID,
			AniList: item.AniListID,
		}); ok {
			aid = id
		}
	}
	if aid == 0 {
		return nil, nil
	}

	anime, err := s.anime(ctx, aid)
	if err != nil {
		return nil, err
	}
	score := anime.Ratings.Permanent.Value
	if score <= 0 {
		return nil, nil
	}
	return []models.RatingRecord{{
		Source:   models.SourceAniDB,
		Text:     fmt.Sprintf("%.2f", score),
		Score:    score,
		MaxScore: 10,
		ImageKey: "anidb",
	}}, nil
}

func (s *AniDB) anime(ctx context.Context, aid int) (*anidbAnime, error) {
	key := fmt.Sprintf("anidb:anime:%d", aid)
	v, err := s.cache.GetOrFetch(key, anidbTTL, func() (interface{}, error) {
		return s.fetchAnime(ctx, aid)
	})
	if err != nil {
		return nil, err
	}
	anime, _ := v.(*anidbAnime)
	return anime, nil
}

func (s *AniDB) fetchAnime(ctx context.Context, aid int) (*anidbAnime, error) {
	reqURL := fmt.Sprintf("%s/httpapi?request=anime&client=%s&clientver=%d&protover=1&aid=%d",
		s.baseURL, s.clientName, s.version, aid)

	for attempt := 0; ; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("anidb aid %d: %w", aid, err)
		}
		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) && attempt == 0 {
			resp.Body.Close()
			// One retry at the limiter's natural spacing.
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("anidb aid %d: status %d", aid, resp.StatusCode)
		}

		var anime anidbAnime
		err = xml.NewDecoder(resp.Body).Decode(&anime)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("anidb aid %d: decode: %w", aid, err)
		}
		if anime.Error != "" {
			return nil, fmt.Errorf("anidb aid %d: %s", aid, anime.Error)
		}
		return &anime, nil
	}
}
