package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/posterforge/posterforge/internal/models"
)

// Gateway is the read-only typed view over the settings table used by the
// badge pipeline. Parsed documents are cached per key; a forced reload
// bypasses the cache for one call and refreshes it.
type Gateway struct {
	db *sql.DB

	mu    sync.RWMutex
	badge map[models.BadgeType]*BadgeSettings
	keys  *APIKeys
}

func NewGateway(db *sql.DB) *Gateway {
	return &Gateway{
		db:    db,
		badge: make(map[models.BadgeType]*BadgeSettings),
	}
}

// candidateKeys lists the settings keys tried per badge type, first
// non-empty value wins.
func candidateKeys(badgeType models.BadgeType) []string {
	t := string(badgeType)
	return []string{
		fmt.Sprintf("badge_settings_%s.yml", t),
		fmt.Sprintf("badge_settings_%s", t),
		fmt.Sprintf("%s_badge_settings", t),
		fmt.Sprintf("%s_settings", t),
	}
}

// GetBadgeSettings resolves the badge settings document for one type.
// The querier may be a per-request session; when it is nil the gateway
// serves the cached value or defaults, so a degraded database never
// blocks a processor.
func (g *Gateway) GetBadgeSettings(ctx context.Context, q Querier, badgeType models.BadgeType, forceReload bool) (*BadgeSettings, error) {
	if _, ok := requiredSections[badgeType]; !ok {
		return nil, fmt.Errorf("unknown badge type %q", badgeType)
	}

	if !forceReload {
		g.mu.RLock()
		cached := g.badge[badgeType]
		g.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
	}

	if q == nil {
		if g.db != nil {
			q = g.db
		} else {
			log.Printf("settings: no session for %s badge settings, using defaults", badgeType)
			return Defaults(badgeType), nil
		}
	}

	doc, found := g.resolveDocument(ctx, q, badgeType)
	if !found {
		log.Printf("settings: no stored document for %s badge, using defaults", badgeType)
		s := Defaults(badgeType)
		g.store(badgeType, s)
		return s, nil
	}

	s, err := ParseBadgeSettings(badgeType, doc)
	if err != nil {
		var verr *ValidationError
		if s != nil && asValidation(err, &verr) {
			// Incomplete document: merge defaults over the gaps and carry on.
			log.Printf("settings: %v, substituting defaults", verr)
			mergeDefaults(s)
			g.store(badgeType, s)
			return s, nil
		}
		return nil, err
	}
	g.store(badgeType, s)
	return s, nil
}

func (g *Gateway) resolveDocument(ctx context.Context, q Querier, badgeType models.BadgeType) ([]byte, bool) {
	for _, key := range candidateKeys(badgeType) {
		val, err := GetWith(ctx, q, key)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			log.Printf("settings: read %s: %v", key, err)
			continue
		}
		if val != "" {
			return []byte(val), true
		}
	}
	return nil, false
}

func (g *Gateway) store(badgeType models.BadgeType, s *BadgeSettings) {
	g.mu.Lock()
	g.badge[badgeType] = s
	g.mu.Unlock()
}

func asValidation(err error, target **ValidationError) bool {
	v, ok := err.(*ValidationError)
	if ok {
		*target = v
	}
	return ok
}

// mergeDefaults fills the sections a validation failure flagged as missing.
func mergeDefaults(s *BadgeSettings) {
	d := Defaults(s.BadgeType)
	if _, ok := s.Raw["General"]; !ok {
		s.General = d.General
	}
	if s.General.BadgeSize == 0 {
		s.General.BadgeSize = d.General.BadgeSize
	}
	if s.General.TextPadding == 0 {
		s.General.TextPadding = d.General.TextPadding
	}
	if _, ok := s.Raw["Text"]; !ok {
		s.Text = d.Text
	}
	if _, ok := s.Raw["Background"]; !ok {
		s.Background = d.Background
	}
	if _, ok := s.Raw["Border"]; !ok {
		s.Border = d.Border
	}
	if _, ok := s.Raw["ImageBadges"]; !ok {
		s.ImageBadges = d.ImageBadges
	}
}

// ──────────────────── API credentials ────────────────────

type JellyfinCreds struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	UserID string `yaml:"user_id"`
}

type OMDBCreds struct {
	APIKey string `yaml:"api_key"`
}

type TMDBCreds struct {
	APIKey string `yaml:"api_key"`
}

type AniDBCreds struct {
	ClientName string `yaml:"client_name"`
	Version    int    `yaml:"version"`
}

type APIKeys struct {
	Jellyfin []JellyfinCreds `yaml:"Jellyfin"`
	OMDB     []OMDBCreds     `yaml:"OMDB"`
	TMDB     []TMDBCreds     `yaml:"TMDB"`
	AniDB    []AniDBCreds    `yaml:"aniDB"`
}

// GetAPIKeys loads service credentials from the "settings.yaml" key, with
// "api_keys" as the fallback key. The parsed document is cached until a
// forced reload.
func (g *Gateway) GetAPIKeys(ctx context.Context, q Querier, forceReload bool) (*APIKeys, error) {
	if !forceReload {
		g.mu.RLock()
		cached := g.keys
		g.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
	}

	if q == nil {
		q = g.db
	}

	var doc string
	var err error
	for _, key := range []string{"settings.yaml", "api_keys"} {
		doc, err = GetWith(ctx, q, key)
		if err == nil && doc != "" {
			break
		}
	}
	if doc == "" {
		return nil, fmt.Errorf("no api_keys document in settings store")
	}

	var wrapper struct {
		APIKeys APIKeys `yaml:"api_keys"`
	}
	if err := yaml.Unmarshal([]byte(doc), &wrapper); err != nil {
		return nil, fmt.Errorf("parse api_keys: %w", err)
	}
	keys := wrapper.APIKeys
	if len(keys.Jellyfin) == 0 && len(keys.OMDB) == 0 && len(keys.TMDB) == 0 && len(keys.AniDB) == 0 {
		// Document may be the bare mapping without the api_keys wrapper.
		if err := yaml.Unmarshal([]byte(doc), &keys); err != nil {
			return nil, fmt.Errorf("parse api_keys: %w", err)
		}
	}

	g.mu.Lock()
	g.keys = &keys
	g.mu.Unlock()
	return &keys, nil
}
