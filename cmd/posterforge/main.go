package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/posterforge/posterforge/internal/activity"
	"github.com/posterforge/posterforge/internal/analysis"
	"github.com/posterforge/posterforge/internal/animeids"
	"github.com/posterforge/posterforge/internal/awards"
	"github.com/posterforge/posterforge/internal/badges"
	"github.com/posterforge/posterforge/internal/cache"
	"github.com/posterforge/posterforge/internal/compositor"
	"github.com/posterforge/posterforge/internal/config"
	"github.com/posterforge/posterforge/internal/db"
	"github.com/posterforge/posterforge/internal/images"
	"github.com/posterforge/posterforge/internal/jellyfin"
	"github.com/posterforge/posterforge/internal/jobs"
	"github.com/posterforge/posterforge/internal/pipeline"
	"github.com/posterforge/posterforge/internal/ratings"
	"github.com/posterforge/posterforge/internal/render"
	"github.com/posterforge/posterforge/internal/settings"
	"github.com/posterforge/posterforge/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	ver := version.Load()
	log.Printf("PosterForge %s starting...", ver.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg)
	if err != nil {
		log.Printf("database connection failed: %v", err)
		return 1
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Printf("migration failed: %v", err)
		return 1
	}
	cfg.MergeFromDB(database.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("redis ping failed (%s): %v", cfg.RedisAddr, err)
		pingCancel()
		return 1
	}
	pingCancel()

	ttlCache := cache.New(time.Hour)
	gateway := settings.NewGateway(database.DB)

	// Operator-managed credentials in the settings store win over env vars.
	if keys, err := gateway.GetAPIKeys(ctx, nil, false); err == nil {
		if len(keys.Jellyfin) > 0 {
			cfg.JellyfinURL = keys.Jellyfin[0].URL
			cfg.JellyfinToken = keys.Jellyfin[0].APIKey
			cfg.JellyfinUserID = keys.Jellyfin[0].UserID
		}
		if len(keys.OMDB) > 0 {
			cfg.OMDbAPIKey = keys.OMDB[0].APIKey
		}
		if len(keys.TMDB) > 0 {
			cfg.TMDbToken = keys.TMDB[0].APIKey
		}
		if len(keys.AniDB) > 0 {
			cfg.AniDBClient = keys.AniDB[0].ClientName
			cfg.AniDBVersion = keys.AniDB[0].Version
		}
	}

	jf := jellyfin.NewClient(cfg.JellyfinURL, cfg.JellyfinToken, cfg.JellyfinUserID)

	seriesCache := analysis.NewSeriesCache(filepath.Join(cfg.DataDir, "series_cache.json"))
	if err := seriesCache.Load(); err != nil {
		log.Printf("series cache load: %v", err)
	}
	analyzer := analysis.NewAnalyzer(jf, seriesCache)

	mapper := animeids.NewMapper(cfg.DataDir)
	anidbMap := animeids.NewAniDBMapper(ttlCache)

	omdb := ratings.NewOMDb(cfg.OMDbAPIKey, ttlCache)
	tmdb := ratings.NewTMDb(cfg.TMDbToken, ttlCache)
	jikan := ratings.NewJikan(ttlCache, mapper)
	anidb := ratings.NewAniDB(cfg.AniDBClient, cfg.AniDBVersion, ttlCache, anidbMap)
	aggregator := ratings.NewAggregator(omdb, tmdb, jikan, anidb)

	awardDetector := awards.NewDetector(cfg.DataDir, tmdb, omdb, tmdb, ttlCache)

	comp := compositor.New(cfg.PreviewDir)
	renderer := render.NewRenderer(render.NewFontLoader(cfg.FontDir))
	imageIndex := images.NewIndex(cfg.BadgeImageDir)

	env := &badges.Env{
		Settings:   gateway,
		Compositor: comp,
		Renderer:   renderer,
		Images:     imageIndex,
		Items:      jf,
		Analyzer:   analyzer,
	}

	tracker := activity.NewTracker(database.DB)
	dispatcher := pipeline.NewDispatcher(comp, tracker,
		badges.NewAudioProcessor(env),
		badges.NewResolutionProcessor(env),
		badges.NewReviewProcessor(env, aggregator),
		badges.NewAwardsProcessor(env, awardDetector),
	).WithDatabase(database.DB, cfg.DatabaseURL)

	queue := jobs.NewQueue(cfg.RedisAddr)
	jobs.RegisterHandlers(queue, dispatcher)
	dispatcher.WithQueue(jobs.NewQueueEnqueuer(queue))

	if err := queue.Start(ctx); err != nil {
		log.Printf("queue start failed: %v", err)
		return 1
	}
	defer queue.Stop()

	scheduler := cron.New()
	scheduler.AddFunc("@hourly", func() {
		if err := seriesCache.Flush(); err != nil {
			log.Printf("Main: series cache flush: %v", err)
		}
	})
	scheduler.AddFunc("@hourly", func() {
		if err := imageIndex.Rescan(); err != nil {
			log.Printf("Main: badge image rescan: %v", err)
		}
	})
	scheduler.AddFunc("@weekly", func() {
		if err := mapper.Refresh(ctx); err != nil {
			log.Printf("Main: anime corpus refresh: %v", err)
		}
	})
	scheduler.Start()
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Println("shutting down...")
	cancel()
	if err := seriesCache.Flush(); err != nil {
		log.Printf("Main: final series cache flush: %v", err)
	}

	if sig == syscall.SIGINT {
		return 130
	}
	return 0
}
