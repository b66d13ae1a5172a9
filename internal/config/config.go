package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
)

type Config struct {
	DatabaseURL   string
	RedisAddr     string
	DataDir       string
	PreviewDir    string
	BadgeImageDir string
	FontDir       string

	JellyfinURL    string
	JellyfinToken  string
	JellyfinUserID string

	OMDbAPIKey   string
	TMDbToken    string
	AniDBClient  string
	AniDBVersion int
}

func Load() *Config {
	return &Config{
		DatabaseURL:    env("DATABASE_URL", "postgres://posterforge:posterforge@db:5432/posterforge?sslmode=disable"),
		RedisAddr:      env("REDIS_ADDR", "redis:6379"),
		DataDir:        env("DATA_DIR", "/data"),
		PreviewDir:     env("PREVIEW_DIR", "/data/previews"),
		BadgeImageDir:  env("BADGE_IMAGE_DIR", "/data/badges"),
		FontDir:        env("FONT_DIR", "/data/fonts"),
		JellyfinURL:    env("JELLYFIN_URL", ""),
		JellyfinToken:  env("JELLYFIN_TOKEN", ""),
		JellyfinUserID: env("JELLYFIN_USER_ID", ""),
		OMDbAPIKey:     env("OMDB_API_KEY", ""),
		TMDbToken:      env("TMDB_TOKEN", ""),
		AniDBClient:    env("ANIDB_CLIENT", "posterforge"),
		AniDBVersion:   envInt("ANIDB_CLIENT_VERSION", 1),
	}
}

// MergeFromDB overrides env values with operator settings from the
// settings table. Missing table or rows just keep the env defaults.
func (c *Config) MergeFromDB(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("config: skipping DB merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "jellyfin_url":
			c.JellyfinURL = value
		case "jellyfin_token":
			c.JellyfinToken = value
		case "jellyfin_user_id":
			c.JellyfinUserID = value
		case "omdb_api_key":
			c.OMDbAPIKey = value
		case "tmdb_token":
			c.TMDbToken = value
		case "badge_image_dir":
			c.BadgeImageDir = value
		case "font_dir":
			c.FontDir = value
		case "preview_dir":
			c.PreviewDir = value
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
