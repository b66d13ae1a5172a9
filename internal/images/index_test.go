package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterforge/posterforge/internal/models"
)

func newTestIndex(t *testing.T, stems ...string) *Index {
	dir := t.TempDir()
	for _, stem := range stems {
		require.NoError(t, os.WriteFile(filepath.Join(dir, stem+".png"), []byte("png"), 0644))
	}
	return NewIndex(dir)
}

func TestResolutionCandidatesRespectFlags(t *testing.T) {
	info := models.ResolutionInfo{Base: models.Res1080p, IsDV: true, IsHDR: true}
	assert.Equal(t, []string{"1080pdvhdr", "1080pdv", "1080phdr", "1080p"}, ResolutionCandidates(info))

	plain := models.ResolutionInfo{Base: models.Res4K}
	assert.Equal(t, []string{"4k"}, ResolutionCandidates(plain))
}

func TestSelectResolutionDVHDRPicksCombinedImage(t *testing.T) {
	ix := newTestIndex(t, "1080pdvhdr", "1080p")
	info := models.ResolutionInfo{Base: models.Res1080p, IsDV: true, IsHDR: true}
	path, ok := ix.SelectResolutionImage(info, nil)
	require.True(t, ok)
	assert.Equal(t, "1080pdvhdr.png", filepath.Base(path))
}

func TestSelectResolutionWalksCandidateChain(t *testing.T) {
	ix := newTestIndex(t, "1080p")
	info := models.ResolutionInfo{Base: models.Res1080p, IsHDR: true}
	path, ok := ix.SelectResolutionImage(info, nil)
	require.True(t, ok)
	assert.Equal(t, "1080p.png", filepath.Base(path))
}

func TestSelectResolutionUserMappingWins(t *testing.T) {
	ix := newTestIndex(t, "1080phdr")
	info := models.ResolutionInfo{Base: models.Res1080p, IsHDR: true}
	mapping := map[string]string{"1080p HDR": "custom.png"}
	path, ok := ix.SelectResolutionImage(info, mapping)
	require.True(t, ok)
	assert.Equal(t, "custom.png", filepath.Base(path))
}

func TestSelectResolutionBaseFallbackRules(t *testing.T) {
	ix := newTestIndex(t, "1080p", "4k")

	path, ok := ix.SelectResolutionImage(models.ResolutionInfo{Base: models.Res1440p}, nil)
	require.True(t, ok)
	assert.Equal(t, "1080p.png", filepath.Base(path))

	path, ok = ix.SelectResolutionImage(models.ResolutionInfo{Base: models.Res8K}, nil)
	require.True(t, ok)
	assert.Equal(t, "4k.png", filepath.Base(path))
}

func TestSelectResolutionLastResort(t *testing.T) {
	ix := newTestIndex(t, "unknown", "720p")
	path, ok := ix.SelectResolutionImage(models.ResolutionInfo{Base: models.Res576p}, nil)
	require.True(t, ok)
	assert.Equal(t, "unknown.png", filepath.Base(path))

	empty := newTestIndex(t)
	_, ok = empty.SelectResolutionImage(models.ResolutionInfo{Base: models.Res576p}, nil)
	assert.False(t, ok)
}

func TestSelectAudioImageFallbackChain(t *testing.T) {
	ix := newTestIndex(t, "truehd")
	path, ok := ix.SelectAudioImage("dolby_atmos", nil)
	require.True(t, ok)
	assert.Equal(t, "truehd.png", filepath.Base(path))

	_, ok = ix.SelectAudioImage("aac", nil)
	assert.False(t, ok)
}

func TestSelectAudioImageMappingBeforeFallback(t *testing.T) {
	ix := newTestIndex(t, "atmos-custom", "truehd")
	mapping := map[string]string{"dolby_atmos": "atmos-custom.png"}
	path, ok := ix.SelectAudioImage("dolby_atmos", mapping)
	require.True(t, ok)
	assert.Equal(t, "atmos-custom.png", filepath.Base(path))
}

func TestSelectMappedImage(t *testing.T) {
	ix := newTestIndex(t, "imdb_top_250")
	path, ok := ix.SelectMappedImage("imdb_top_250", nil)
	require.True(t, ok)
	assert.Equal(t, "imdb_top_250.png", filepath.Base(path))

	_, ok = ix.SelectMappedImage("letterboxd", nil)
	assert.False(t, ok)
}

func TestRescanPicksUpNewFiles(t *testing.T) {
	ix := newTestIndex(t, "1080p")
	require.True(t, ix.Has("1080p"))

	require.NoError(t, os.WriteFile(filepath.Join(ix.dir, "4k.png"), []byte("png"), 0644))
	assert.False(t, ix.Has("4k"))
	require.NoError(t, ix.Rescan())
	assert.True(t, ix.Has("4k"))
}
