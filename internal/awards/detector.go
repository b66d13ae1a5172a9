package awards

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/ratings"
)

const (
	awardsTTL = 7 * 24 * time.Hour

	// TMDb items rated this high count as an implicit imdb signal.
	implicitIMDbFloor = 8.5
)

// KeywordSource lists an item's TMDb keywords.
type KeywordSource interface {
	Keywords(ctx context.Context, tmdbID int, kind models.MediaKind) ([]string, error)
}

// TextSource returns the raw OMDb awards sentence for an IMDb id.
type TextSource interface {
	AwardsText(ctx context.Context, imdbID string) (string, error)
}

// DetailsSource returns TMDb details, used for the vote_average signal.
type DetailsSource interface {
	Details(ctx context.Context, tmdbID int, kind models.MediaKind) (*ratings.Details, error)
}

// Detector aggregates award signals from the static curated table, TMDb
// keywords, the OMDb awards text, and the Crunchyroll anime list, then
// selects a single token by prestige. Signal sources fail independently:
// an unreachable provider costs its signal, never the detection.
type Detector struct {
	static      *staticTable
	crunchyroll *crunchyrollList
	keywords    KeywordSource
	text        TextSource
	details     DetailsSource
	cache       *cache.Cache
}

func NewDetector(dataDir string, keywords KeywordSource, text TextSource, details DetailsSource, c *cache.Cache) *Detector {
	return &Detector{
		static:      loadStaticTable(filepath.Join(dataDir, "awards_static.json")),
		crunchyroll: loadCrunchyrollList(filepath.Join(dataDir, "crunchyroll_winners.json")),
		keywords:    keywords,
		text:        text,
		details:     details,
		cache:       c,
	}
}

// Detect returns the single most prestigious award token for the item, or
// false when no signal fires. Results are cached for a week.
func (d *Detector) Detect(ctx context.Context, item ratings.Item) (models.AwardToken, bool) {
	key := fmt.Sprintf("awards:%s:%s:%d:%t:%s", item.Kind, item.IMDBID, item.TMDBID, item.IsAnime, strings.ToLower(item.Title))
	v, err := d.cache.GetOrFetch(key, awardsTTL, func() (interface{}, error) {
		token, _ := models.PickAward(d.collect(ctx, item))
		return token, nil
	})
	if err != nil {
		return "", false
	}
	token, _ := v.(models.AwardToken)
	return token, token != ""
}

func (d *Detector) collect(ctx context.Context, item ratings.Item) []models.AwardToken {
	var detected []models.AwardToken

	if d.static != nil {
		detected = append(detected, d.static.lookup(item.Kind, item.IMDBID)...)
	}

	if d.keywords != nil && item.TMDBID != 0 {
		names, err := d.keywords.Keywords(ctx, item.TMDBID, item.Kind)
		if err != nil {
			log.Printf("awards: tmdb keywords: %v", err)
		} else {
			detected = append(detected, scanKeywords(names)...)
		}
	}

	if d.text != nil && item.IMDBID != "" {
		text, err := d.text.AwardsText(ctx, item.IMDBID)
		if err != nil {
			log.Printf("awards: omdb text: %v", err)
		} else if text != "" {
			detected = append(detected, scanText(text)...)
		}
	}

	if d.crunchyroll != nil && item.IsAnime && d.crunchyroll.contains(item.TMDBID, item.Title) {
		detected = append(detected, models.AwardCrunchyroll)
	}

	if d.details != nil && item.TMDBID != 0 {
		details, err := d.details.Details(ctx, item.TMDBID, item.Kind)
		if err != nil {
			log.Printf("awards: tmdb details: %v", err)
		} else if details != nil && details.VoteAverage >= implicitIMDbFloor {
			detected = append(detected, models.AwardIMDb)
		}
	}

	return detected
}

// keywordTokens maps lowercase phrase fragments to award tokens. Both the
// TMDb keyword scan and the OMDb awards-text scan use it.
var keywordTokens = []struct {
	phrase string
	token  models.AwardToken
}{
	{"oscar", models.AwardOscars},
	{"academy award", models.AwardOscars},
	{"palme d'or", models.AwardCannes},
	{"cannes", models.AwardCannes},
	{"golden globe", models.AwardGolden},
	{"bafta", models.AwardBAFTA},
	{"emmy", models.AwardEmmys},
	{"crunchyroll anime award", models.AwardCrunchyroll},
	{"golden bear", models.AwardBerlinale},
	{"berlinale", models.AwardBerlinale},
	{"golden lion", models.AwardVenice},
	{"venice film festival", models.AwardVenice},
	{"sundance", models.AwardSundance},
	{"independent spirit", models.AwardSpirit},
	{"cesar award", models.AwardCesar},
	{"critics' choice", models.AwardChoice},
	{"critics choice", models.AwardChoice},
}

func scanKeywords(names []string) []models.AwardToken {
	var tokens []models.AwardToken
	for _, name := range names {
		tokens = append(tokens, scanText(name)...)
	}
	return tokens
}

func scanText(text string) []models.AwardToken {
	lower := strings.ToLower(text)
	var tokens []models.AwardToken
	for _, kt := range keywordTokens {
		if strings.Contains(lower, kt.phrase) {
			tokens = append(tokens, kt.token)
		}
	}
	return tokens
}

// ──────────────────── Curated tables ────────────────────

// staticTable maps IMDb ids to award tokens, per media kind. The file
// shape is {"movie": {"tt0111161": ["imdb"]}, "series": {...}}.
type staticTable struct {
	byKind map[string]map[string][]string
}

func loadStaticTable(path string) *staticTable {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("awards: static table %s unavailable: %v", path, err)
		return &staticTable{byKind: map[string]map[string][]string{}}
	}
	var byKind map[string]map[string][]string
	if err := json.Unmarshal(data, &byKind); err != nil {
		log.Printf("awards: static table %s malformed: %v", path, err)
		return &staticTable{byKind: map[string]map[string][]string{}}
	}
	return &staticTable{byKind: byKind}
}

func (t *staticTable) lookup(kind models.MediaKind, imdbID string) []models.AwardToken {
	if imdbID == "" {
		return nil
	}
	byID, ok := t.byKind[string(kind)]
	if !ok {
		return nil
	}
	var tokens []models.AwardToken
	for _, raw := range byID[imdbID] {
		token := models.AwardToken(raw)
		if models.ValidAward(token) {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// crunchyrollList holds Crunchyroll Anime Awards winners, matched by TMDb
// id or normalized title. File shape: {"tmdb_ids": [...], "titles": [...]}.
type crunchyrollList struct {
	tmdbIDs map[int]bool
	titles  map[string]bool
}

func loadCrunchyrollList(path string) *crunchyrollList {
	list := &crunchyrollList{tmdbIDs: map[int]bool{}, titles: map[string]bool{}}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("awards: crunchyroll list %s unavailable: %v", path, err)
		return list
	}
	var raw struct {
		TMDBIDs []int    `json:"tmdb_ids"`
		Titles  []string `json:"titles"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("awards: crunchyroll list %s malformed: %v", path, err)
		return list
	}
	for _, id := range raw.TMDBIDs {
		list.tmdbIDs[id] = true
	}
	for _, title := range raw.Titles {
		list.titles[strings.ToLower(strings.TrimSpace(title))] = true
	}
	return list
}

func (l *crunchyrollList) contains(tmdbID int, title string) bool {
	if tmdbID != 0 && l.tmdbIDs[tmdbID] {
		return true
	}
	return l.titles[strings.ToLower(strings.TrimSpace(title))]
}
