package animeids

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/posterforge/posterforge/internal/cache"
)

// DefaultAniDBMapURL is the community-maintained anime_ids corpus keyed
// by AniDB id.
const DefaultAniDBMapURL = "https://raw.githubusercontent.com/Kometa-Team/Anime-IDs/master/anime_ids.json"

const anidbMapTTL = 24 * time.Hour

// ExternalIDs carries the provider ids an item already has, for reverse
// resolution into an AniDB id.
type ExternalIDs struct {
	TMDB    int
	TVDB    int
	IMDB    string
	AniList int
}

// AniDBMapper resolves AniDB ids from TMDb, TVDB, IMDb or AniList ids
// using the anime_ids corpus. The parsed corpus is cached for a day.
type AniDBMapper struct {
	url    string
	client *http.Client
	cache  *cache.Cache
}

func NewAniDBMapper(c *cache.Cache) *AniDBMapper {
	return &AniDBMapper{
		url:    DefaultAniDBMapURL,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  c,
	}
}

type anidbMapEntry struct {
	TVDBID      int        `json:"tvdb_id"`
	TMDBMovieID flexibleID `json:"tmdb_movie_id"`
	TMDBShowID  flexibleID `json:"tmdb_show_id"`
	IMDBID      string     `json:"imdb_id"`
	AniListID   flexibleID `json:"anilist_id"`
	MALID       flexibleID `json:"mal_id"`
}

// flexibleID accepts both numeric and string-typed ids; the corpus mixes
// them freely.
type flexibleID int

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	s := string(data)
	if s[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	// Multi-valued ids like "1,2" map the first.
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			s = s[:i]
			break
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	*f = flexibleID(n)
	return nil
}

type anidbIndex struct {
	byTMDB    map[int]int
	byTVDB    map[int]int
	byIMDB    map[string]int
	byAniList map[int]int
}

// ResolveAniDB walks the ids in precision order: IMDb, TMDb, AniList,
// then TVDB. TVDB goes last since one TVDB series can span several
// AniDB entries.
func (m *AniDBMapper) ResolveAniDB(ctx context.Context, ids ExternalIDs) (int, bool) {
	idx, err := m.index(ctx)
	if err != nil {
		log.Printf("animeids: anidb map: %v", err)
		return 0, false
	}
	if ids.IMDB != "" {
		if aid, ok := idx.byIMDB[ids.IMDB]; ok {
			return aid, true
		}
	}
	if ids.TMDB != 0 {
		if aid, ok := idx.byTMDB[ids.TMDB]; ok {
			return aid, true
		}
	}
	if ids.AniList != 0 {
		if aid, ok := idx.byAniList[ids.AniList]; ok {
			return aid, true
		}
	}
	if ids.TVDB != 0 {
		if aid, ok := idx.byTVDB[ids.TVDB]; ok {
			return aid, true
		}
	}
	return 0, false
}

func (m *AniDBMapper) index(ctx context.Context) (*anidbIndex, error) {
	v, err := m.cache.GetOrFetch("animeids:anidb_map", anidbMapTTL, func() (interface{}, error) {
		return m.fetchIndex(ctx)
	})
	if err != nil {
		return nil, err
	}
	idx, _ := v.(*anidbIndex)
	return idx, nil
}

func (m *AniDBMapper) fetchIndex(ctx context.Context) (*anidbIndex, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anidb map download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anidb map download: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return buildAniDBIndex(data)
}

func buildAniDBIndex(data []byte) (*anidbIndex, error) {
	var entries map[string]anidbMapEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("anidb map parse: %w", err)
	}

	idx := &anidbIndex{
		byTMDB:    make(map[int]int),
		byTVDB:    make(map[int]int),
		byIMDB:    make(map[string]int),
		byAniList: make(map[int]int),
	}
	for key, entry := range entries {
		aid, err := strconv.Atoi(key)
		if err != nil || aid == 0 {
			continue
		}
		if entry.IMDBID != "" {
			if _, seen := idx.byIMDB[entry.IMDBID]; !seen {
				idx.byIMDB[entry.IMDBID] = aid
			}
		}
		for _, tmdb := range []int{int(entry.TMDBMovieID), int(entry.TMDBShowID)} {
			if tmdb != 0 {
				if _, seen := idx.byTMDB[tmdb]; !seen {
					idx.byTMDB[tmdb] = aid
				}
			}
		}
		if entry.AniListID != 0 {
			if _, seen := idx.byAniList[int(entry.AniListID)]; !seen {
				idx.byAniList[int(entry.AniListID)] = aid
			}
		}
		if entry.TVDBID != 0 {
			// Keep the lowest AniDB id per TVDB series, usually season 1.
			if cur, seen := idx.byTVDB[entry.TVDBID]; !seen || aid < cur {
				idx.byTVDB[entry.TVDBID] = aid
			}
		}
	}
	return idx, nil
}
