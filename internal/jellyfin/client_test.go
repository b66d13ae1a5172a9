package jellyfin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterforge/posterforge/internal/models"
)

const itemJSON = `{
	"Id": "abc123",
	"Name": "Blade Runner 2049",
	"Type": "Movie",
	"ProductionYear": 2017,
	"ProviderIds": {"Imdb": "tt1856101", "Tmdb": "335984"},
	"MediaStreams": [
		{"Type": "Video", "Codec": "hevc", "Height": 2160, "Width": 3840,
		 "DisplayTitle": "4K HEVC HDR", "VideoRange": "HDR", "VideoRangeType": "HDR10",
		 "BitRate": 45000000, "Profile": "Main 10", "BitDepth": 10},
		{"Type": "Audio", "Codec": "truehd", "Channels": 8, "Profile": "TrueHD Atmos",
		 "DisplayTitle": "Dolby TrueHD Atmos 7.1", "ChannelLayout": "7.1", "Language": "eng"},
		{"Type": "Audio", "Codec": "ac3", "Channels": 6, "ChannelLayout": "5.1"}
	]
}`

func TestGetItem(t *testing.T) {
	var gotToken, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Emby-Token")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(itemJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token", "user1")
	item, err := c.GetItem(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "secret-token", gotToken)
	assert.Equal(t, "/Users/user1/Items/abc123", gotPath)
	assert.Equal(t, "Blade Runner 2049", item.Name)
	assert.Equal(t, models.KindMovie, item.Kind())
	assert.Equal(t, "tt1856101", item.ProviderID("imdb"))
	assert.Equal(t, 335984, item.ProviderIDInt("tmdb"))
}

func TestStreamsConversionPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(itemJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", "u")
	item, err := c.GetItem(context.Background(), "abc123")
	require.NoError(t, err)

	ms := item.Streams()
	require.Len(t, ms.Audio, 2)
	require.Len(t, ms.Video, 1)

	assert.Equal(t, "truehd", ms.Audio[0].Codec)
	assert.Equal(t, 8, ms.Audio[0].Channels)
	assert.Equal(t, "Dolby TrueHD Atmos 7.1", ms.Audio[0].Title)
	assert.Equal(t, "ac3", ms.Audio[1].Codec)

	v := ms.Video[0]
	assert.Equal(t, 2160, v.Height)
	assert.Equal(t, "HDR10", v.VideoRangeType)
	assert.Equal(t, int64(45000000), v.Bitrate)
	assert.Equal(t, 10, v.BitDepth)
}

func TestGetEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Shows/series9/Episodes", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("Limit"))
		w.Write([]byte(`{"Items":[{"Id":"e1","Type":"Episode"},{"Id":"e2","Type":"Episode"}],"TotalRecordCount":2}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", "u")
	eps, err := c.GetEpisodes(context.Background(), "series9", 10)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, models.KindEpisode, eps[0].Kind())
}

func TestDownloadPoster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Items/abc/Images/Primary", r.URL.Path)
		w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", "u")
	data, err := c.DownloadPoster(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, data)
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", "u")
	_, err := c.GetItem(context.Background(), "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
