package ratings

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/posterforge/posterforge/internal/models"
	"github.com/posterforge/posterforge/internal/settings"
)

// Aggregator fans a rating lookup out to every configured source and
// tolerates partial failure: a source error costs its records, never the
// request.
type Aggregator struct {
	sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{sources: sources}
}

// FetchAll queries all sources concurrently. Source order in the result
// is arbitrary; callers finalize ordering from settings.
func (a *Aggregator) FetchAll(ctx context.Context, item Item) []models.RatingRecord {
	type outcome struct {
		records []models.RatingRecord
		name    string
		err     error
	}

	results := make(chan outcome, len(a.sources))
	var wg sync.WaitGroup
	for _, src := range a.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			records, err := src.Fetch(ctx, item)
			results <- outcome{records: records, name: src.Name(), err: err}
		}(src)
	}
	wg.Wait()
	close(results)

	var all []models.RatingRecord
	for r := range results {
		if r.err != nil {
			log.Printf("ratings: source %s: %v", r.name, r.err)
			continue
		}
		all = append(all, r.records...)
	}
	return dedupeIMDb(all)
}

// dedupeIMDb enforces the one-IMDb-variant invariant, keeping the most
// prestigious record when multiple slipped through.
func dedupeIMDb(records []models.RatingRecord) []models.RatingRecord {
	prestige := map[string]int{
		models.SourceIMDbTop250:  3,
		models.SourceIMDbTop1000: 2,
		models.SourceIMDb:        1,
	}
	bestIdx := -1
	for i, r := range records {
		if prestige[r.Source] == 0 {
			continue
		}
		if bestIdx == -1 || prestige[r.Source] > prestige[records[bestIdx].Source] {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return records
	}
	out := records[:0]
	for i, r := range records {
		if prestige[r.Source] > 0 && i != bestIdx {
			continue
		}
		out = append(out, r)
	}
	return out
}

// defaultOrder positions sources when settings declare no display order.
var defaultOrder = []string{
	models.SourceIMDbTop250, models.SourceIMDbTop1000, models.SourceIMDb,
	models.SourceTMDb, models.SourceRTCritics, models.SourceMetacritic,
	models.SourceMAL, models.SourceAniDB,
}

// Finalize applies per-source enable flags, content-type predicates,
// percentage normalization, the user's display order, and the badge cap.
func Finalize(records []models.RatingRecord, src settings.SourcesSection, maxBadges int, isAnime bool) []models.RatingRecord {
	var kept []models.RatingRecord
	for _, r := range records {
		if !sourceEnabled(r.Source, src) {
			continue
		}
		// Anime-only sources stay off non-anime items.
		if (r.Source == models.SourceMAL || r.Source == models.SourceAniDB) && !isAnime {
			continue
		}
		if !contains(src.DisableNormalized, r.Source) {
			r.Text = fmt.Sprintf("%d%%", r.Percentage())
		}
		kept = append(kept, r)
	}

	orderRank := make(map[string]int)
	for i, s := range src.DisplayOrder {
		orderRank[s] = i
	}
	// IMDb variants inherit the plain IMDb slot unless listed themselves.
	rank := func(r models.RatingRecord) int {
		if i, ok := orderRank[r.Source]; ok {
			return i
		}
		if (r.Source == models.SourceIMDbTop250 || r.Source == models.SourceIMDbTop1000) && len(orderRank) > 0 {
			if i, ok := orderRank[models.SourceIMDb]; ok {
				return i
			}
		}
		return len(src.DisplayOrder) + defaultRank(r.Source)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return rank(kept[i]) < rank(kept[j])
	})

	if maxBadges > 0 && len(kept) > maxBadges {
		kept = kept[:maxBadges]
	}
	return kept
}

func sourceEnabled(source string, src settings.SourcesSection) bool {
	switch source {
	case models.SourceIMDb, models.SourceIMDbTop250, models.SourceIMDbTop1000:
		return src.EnableIMDb
	case models.SourceTMDb:
		return src.EnableTMDb
	case models.SourceRTCritics:
		return src.EnableRTCritics
	case models.SourceMetacritic:
		return src.EnableMetacritic
	case models.SourceMAL:
		return src.EnableMAL
	case models.SourceAniDB:
		return src.EnableAniDB
	}
	return false
}

func defaultRank(source string) int {
	for i, s := range defaultOrder {
		if s == source {
			return i
		}
	}
	return len(defaultOrder)
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
