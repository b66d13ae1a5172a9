package animeids

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DefaultCorpusURL is the anime-offline-database minified corpus (~50 MB),
// refreshed weekly.
const DefaultCorpusURL = "https://raw.githubusercontent.com/manami-project/anime-offline-database/master/anime-offline-database-minified.json"

const corpusMaxAge = 7 * 24 * time.Hour

// Mapper builds in-memory cross-provider id indexes from the downloaded
// corpus. Index construction runs once under a one-shot guard; afterwards
// all readers see the completed maps without locking.
type Mapper struct {
	corpusURL string
	path      string
	client    *http.Client

	once    sync.Once
	loadErr error

	anilistToMAL map[int]int
	anidbToMAL   map[int]int
	kitsuToMAL   map[int]int
	malToAniList map[int]int
	titleToMAL   map[string]titleEntry
}

type titleEntry struct {
	MALID     int
	Canonical string
}

func NewMapper(dataDir string) *Mapper {
	return &Mapper{
		corpusURL: DefaultCorpusURL,
		path:      filepath.Join(dataDir, "anime-offline-database-minified.json"),
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Refresh forces a corpus re-download when the local copy has aged out.
// Scheduled weekly; the in-memory indexes refresh on next process start.
func (m *Mapper) Refresh(ctx context.Context) error {
	if fresh, _ := m.localCopyFresh(); fresh {
		return nil
	}
	return m.download(ctx)
}

func (m *Mapper) ensure(ctx context.Context) error {
	m.once.Do(func() {
		m.loadErr = m.load(ctx)
	})
	return m.loadErr
}

func (m *Mapper) load(ctx context.Context) error {
	if fresh, _ := m.localCopyFresh(); !fresh {
		if err := m.download(ctx); err != nil {
			// A stale local copy still beats no mapping at all.
			if _, statErr := os.Stat(m.path); statErr != nil {
				return err
			}
			log.Printf("animeids: corpus download failed, using stale copy: %v", err)
		}
	}
	return m.buildIndexes()
}

func (m *Mapper) localCopyFresh() (bool, time.Time) {
	info, err := os.Stat(m.path)
	if err != nil {
		return false, time.Time{}
	}
	return time.Since(info.ModTime()) < corpusMaxAge, info.ModTime()
}

func (m *Mapper) download(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.corpusURL, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("corpus download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("corpus download: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("corpus download: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

type corpusFile struct {
	Data []corpusEntry `json:"data"`
}

type corpusEntry struct {
	Sources []string `json:"sources"`
	Title   string   `json:"title"`
}

func (m *Mapper) buildIndexes() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}
	var corpus corpusFile
	if err := json.Unmarshal(data, &corpus); err != nil {
		return fmt.Errorf("parse corpus: %w", err)
	}

	m.anilistToMAL = make(map[int]int)
	m.anidbToMAL = make(map[int]int)
	m.kitsuToMAL = make(map[int]int)
	m.malToAniList = make(map[int]int)
	m.titleToMAL = make(map[string]titleEntry)

	indexed := 0
	for _, entry := range corpus.Data {
		var mal, anilist, anidb, kitsu int
		for _, src := range entry.Sources {
			switch {
			case strings.Contains(src, "myanimelist.net/anime/"):
				mal = trailingInt(src, "myanimelist.net/anime/")
			case strings.Contains(src, "anilist.co/anime/"):
				anilist = trailingInt(src, "anilist.co/anime/")
			case strings.Contains(src, "anidb.net/anime/"):
				anidb = trailingInt(src, "anidb.net/anime/")
			case strings.Contains(src, "kitsu.app/anime/"):
				kitsu = trailingInt(src, "kitsu.app/anime/")
			}
		}
		if mal == 0 {
			// Malformed or MAL-less entries are skipped, not fatal.
			continue
		}
		indexed++
		if anilist != 0 {
			m.anilistToMAL[anilist] = mal
			m.malToAniList[mal] = anilist
		}
		if anidb != 0 {
			m.anidbToMAL[anidb] = mal
		}
		if kitsu != 0 {
			m.kitsuToMAL[kitsu] = mal
		}
		if key := normalizeTitle(entry.Title); key != "" {
			if _, exists := m.titleToMAL[key]; !exists {
				m.titleToMAL[key] = titleEntry{MALID: mal, Canonical: entry.Title}
			}
		}
	}
	log.Printf("animeids: indexed %d corpus entries (%d total)", indexed, len(corpus.Data))
	return nil
}

// trailingInt parses the integer path segment after marker, stopping at
// the next path or query separator.
func trailingInt(src, marker string) int {
	i := strings.Index(src, marker)
	if i < 0 {
		return 0
	}
	rest := src[i+len(marker):]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(rest[:end])
	return n
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ──────────────────── Lookups ────────────────────

func (m *Mapper) MALFromAniList(ctx context.Context, anilistID int) (int, bool) {
	if err := m.ensure(ctx); err != nil {
		log.Printf("animeids: %v", err)
		return 0, false
	}
	id, ok := m.anilistToMAL[anilistID]
	return id, ok
}

func (m *Mapper) MALFromAniDB(ctx context.Context, anidbID int) (int, bool) {
	if err := m.ensure(ctx); err != nil {
		return 0, false
	}
	id, ok := m.anidbToMAL[anidbID]
	return id, ok
}

func (m *Mapper) MALFromKitsu(ctx context.Context, kitsuID int) (int, bool) {
	if err := m.ensure(ctx); err != nil {
		return 0, false
	}
	id, ok := m.kitsuToMAL[kitsuID]
	return id, ok
}

func (m *Mapper) AniListFromMAL(ctx context.Context, malID int) (int, bool) {
	if err := m.ensure(ctx); err != nil {
		return 0, false
	}
	id, ok := m.malToAniList[malID]
	return id, ok
}

// MALFromTitle looks up the exact normalized title in the corpus index,
// returning the id and canonical title.
func (m *Mapper) MALFromTitle(ctx context.Context, title string) (int, string, bool) {
	if err := m.ensure(ctx); err != nil {
		return 0, "", false
	}
	entry, ok := m.titleToMAL[normalizeTitle(title)]
	return entry.MALID, entry.Canonical, ok
}
