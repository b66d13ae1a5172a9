package analysis

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"github.com/posterforge/posterforge/internal/models"
)

// SeriesCache remembers per-series dominant values for 24 h. It is
// persisted to disk as JSON so restarts don't resample whole libraries;
// persistence holds an exclusive file lock for the duration of the write.
type SeriesCache struct {
	path string

	mu      sync.RWMutex
	entries map[string]*seriesEntry

	// now is swappable for tests.
	now func() time.Time
}

type seriesEntry struct {
	Audio      *models.AudioInfo      `json:"audio,omitempty"`
	Resolution *models.ResolutionInfo `json:"resolution,omitempty"`
	InsertedAt time.Time              `json:"inserted_at"`
}

func NewSeriesCache(path string) *SeriesCache {
	return &SeriesCache{
		path:    path,
		entries: make(map[string]*seriesEntry),
		now:     time.Now,
	}
}

func (c *SeriesCache) Audio(seriesID string) (models.AudioInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e := c.entries[seriesID]
	if e == nil || e.Audio == nil || c.expired(e) {
		return models.AudioInfo{}, false
	}
	return *e.Audio, true
}

func (c *SeriesCache) Resolution(seriesID string) (models.ResolutionInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e := c.entries[seriesID]
	if e == nil || e.Resolution == nil || c.expired(e) {
		return models.ResolutionInfo{}, false
	}
	return *e.Resolution, true
}

func (c *SeriesCache) PutAudio(seriesID string, info models.AudioInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.liveEntry(seriesID)
	e.Audio = &info
}

func (c *SeriesCache) PutResolution(seriesID string, info models.ResolutionInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.liveEntry(seriesID)
	e.Resolution = &info
}

// liveEntry returns a fresh entry for the key, replacing an expired one.
// Caller holds the write lock.
func (c *SeriesCache) liveEntry(seriesID string) *seriesEntry {
	e := c.entries[seriesID]
	if e == nil || c.expired(e) {
		e = &seriesEntry{InsertedAt: c.now()}
		c.entries[seriesID] = e
	}
	return e
}

func (c *SeriesCache) expired(e *seriesEntry) bool {
	return c.now().Sub(e.InsertedAt) >= seriesCacheTTL
}

// Load reads the persisted cache, dropping expired entries. A missing
// file is a clean start, not an error.
func (c *SeriesCache) Load() error {
	if c.path == "" {
		return nil
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	loaded := make(map[string]*seriesEntry)
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Printf("analysis: series cache at %s is corrupt, starting empty: %v", c.path, err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range loaded {
		if e != nil && !c.expired(e) {
			c.entries[k] = e
		}
	}
	return nil
}

// Flush persists fresh entries to disk under an exclusive flock. Called
// hourly by the maintenance scheduler and once at shutdown.
func (c *SeriesCache) Flush() error {
	if c.path == "" {
		return nil
	}

	c.mu.RLock()
	snapshot := make(map[string]*seriesEntry, len(c.entries))
	for k, e := range c.entries {
		if !c.expired(e) {
			snapshot[k] = e
		}
	}
	c.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	lock := flock.New(c.path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
