package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/models"
)

const omdbTTL = time.Hour

// OMDb fetches IMDb, Rotten Tomatoes critics and Metacritic ratings in one
// call, keyed by IMDb id.
type OMDb struct {
	baseURL string
	apiKey  string
	client  *http.Client
	cache   *cache.Cache
}

func NewOMDb(apiKey string, c *cache.Cache) *OMDb {
	return &OMDb{
		baseURL: "http://www.omdbapi.com",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   c,
	}
}

func (s *OMDb) Name() string { return "omdb" }

type omdbPayload struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	IMDBRating string `json:"imdbRating"`
	IMDBVotes  string `json:"imdbVotes"`
	Awards     string `json:"Awards"`
	Ratings    []struct {
		Source string `json:"Source"`
		Value  string `json:"Value"`
	} `json:"Ratings"`
}

func (s *OMDb) Fetch(ctx context.Context, item Item) ([]models.RatingRecord, error) {
	if item.IMDBID == "" || s.apiKey == "" {
		return nil, nil
	}
	payload, err := s.payload(ctx, item.IMDBID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	var records []models.RatingRecord

	if score, ok := parseFloat(payload.IMDBRating); ok {
		votes := parseVotes(payload.IMDBVotes)
		variant := SelectIMDbVariant(score, votes)
		records = append(records, models.RatingRecord{
			Source:   variant,
			Text:     payload.IMDBRating,
			Score:    score,
			MaxScore: 10,
			ImageKey: imdbImageKey(variant),
			Variant:  variant,
		})
	}

	for _, r := range payload.Ratings {
		switch r.Source {
		case "Rotten Tomatoes":
			// Value is like "92%".
			if pct, ok := parsePercent(r.Value); ok {
				records = append(records, models.RatingRecord{
					Source:   models.SourceRTCritics,
					Text:     r.Value,
					Score:    float64(pct),
					MaxScore: 100,
					ImageKey: "rt_critics",
				})
			}
		case "Metacritic":
			// Value is like "76/100".
			if score, ok := parseFraction(r.Value); ok {
				records = append(records, models.RatingRecord{
					Source:   models.SourceMetacritic,
					Text:     r.Value,
					Score:    score,
					MaxScore: 100,
					ImageKey: "metacritic",
				})
			}
		}
	}
	return records, nil
}

// AwardsText returns the raw OMDb awards sentence for the keyword scan.
func (s *OMDb) AwardsText(ctx context.Context, imdbID string) (string, error) {
	if imdbID == "" || s.apiKey == "" {
		return "", nil
	}
	payload, err := s.payload(ctx, imdbID)
	if err != nil || payload == nil {
		return "", err
	}
	if payload.Awards == "N/A" {
		return "", nil
	}
	return payload.Awards, nil
}

func (s *OMDb) payload(ctx context.Context, imdbID string) (*omdbPayload, error) {
	v, err := s.cache.GetOrFetch("omdb:"+imdbID, omdbTTL, func() (interface{}, error) {
		return s.fetchPayload(ctx, imdbID)
	})
	if err != nil {
		return nil, err
	}
	payload, _ := v.(*omdbPayload)
	return payload, nil
}

func (s *OMDb) fetchPayload(ctx context.Context, imdbID string) (*omdbPayload, error) {
	reqURL := fmt.Sprintf("%s/?i=%s&apikey=%s",
		s.baseURL, url.QueryEscape(imdbID), url.QueryEscape(s.apiKey))

	resp, err := doWithRetryAfter(ctx, s.client, reqURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload omdbPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("omdb decode: %w", err)
	}
	if payload.Response == "False" {
		return nil, fmt.Errorf("omdb: %s", payload.Error)
	}
	return &payload, nil
}

// doWithRetryAfter performs a GET and honors one HTTP 429 Retry-After.
func doWithRetryAfter(ctx context.Context, client *http.Client, reqURL string, header http.Header) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		for k, vals := range header {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			delay := 2 * time.Second
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
					delay = time.Duration(secs) * time.Second
				}
			}
			resp.Body.Close()
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("status %d from %s", resp.StatusCode, reqURL)
		}
		return resp, nil
	}
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// parseVotes reads OMDb's comma-grouped vote counts, e.g. "1,234,567".
func parseVotes(s string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	return n
}

func parsePercent(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func parseFraction(s string) (float64, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	f, err := strconv.ParseFloat(parts[0], 64)
	return f, err == nil
}
