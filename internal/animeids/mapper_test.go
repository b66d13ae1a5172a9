package animeids

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const corpusJSON = `{
	"data": [
		{
			"sources": [
				"https://anidb.net/anime/4563",
				"https://anilist.co/anime/5114",
				"https://kitsu.app/anime/3936",
				"https://myanimelist.net/anime/5114"
			],
			"title": "Fullmetal Alchemist: Brotherhood"
		},
		{
			"sources": ["https://anilist.co/anime/99999"],
			"title": "No MAL Entry"
		},
		{
			"sources": ["not a url", "https://myanimelist.net/anime/1"],
			"title": "Cowboy Bebop"
		}
	]
}`

func newTestMapper(t *testing.T) *Mapper {
	dir := t.TempDir()
	path := filepath.Join(dir, "anime-offline-database-minified.json")
	require.NoError(t, os.WriteFile(path, []byte(corpusJSON), 0644))
	return NewMapper(dir)
}

func TestMapperIndexesProviderIDs(t *testing.T) {
	m := newTestMapper(t)
	ctx := context.Background()

	id, ok := m.MALFromAniList(ctx, 5114)
	require.True(t, ok)
	assert.Equal(t, 5114, id)

	id, ok = m.MALFromAniDB(ctx, 4563)
	require.True(t, ok)
	assert.Equal(t, 5114, id)

	id, ok = m.MALFromKitsu(ctx, 3936)
	require.True(t, ok)
	assert.Equal(t, 5114, id)

	id, ok = m.AniListFromMAL(ctx, 5114)
	require.True(t, ok)
	assert.Equal(t, 5114, id)
}

func TestMapperSkipsEntriesWithoutMAL(t *testing.T) {
	m := newTestMapper(t)
	_, ok := m.MALFromAniList(context.Background(), 99999)
	assert.False(t, ok)
}

func TestMapperTitleLookupIsCaseInsensitive(t *testing.T) {
	m := newTestMapper(t)
	id, canonical, ok := m.MALFromTitle(context.Background(), "  fullmetal alchemist: brotherhood ")
	require.True(t, ok)
	assert.Equal(t, 5114, id)
	assert.Equal(t, "Fullmetal Alchemist: Brotherhood", canonical)

	_, _, ok = m.MALFromTitle(context.Background(), "does not exist")
	assert.False(t, ok)
}

func TestTrailingInt(t *testing.T) {
	assert.Equal(t, 5114, trailingInt("https://myanimelist.net/anime/5114", "myanimelist.net/anime/"))
	assert.Equal(t, 5114, trailingInt("https://myanimelist.net/anime/5114/Fullmetal", "myanimelist.net/anime/"))
	assert.Equal(t, 0, trailingInt("https://myanimelist.net/anime/abc", "myanimelist.net/anime/"))
	assert.Equal(t, 0, trailingInt("https://example.com", "myanimelist.net/anime/"))
}
