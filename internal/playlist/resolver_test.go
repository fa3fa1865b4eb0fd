package playlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMediaPlaylist(t *testing.T) {
	body := "#EXTM3U\n" +
		"#EXT-X-PLAYLIST-TYPE:VOD\n" +
		"#EXT-X-TARGETDURATION:10\n" +
		"#EXTINF:9.5,\n" +
		"seg0.ts\n" +
		"#EXTINF:9.5,\n" +
		"seg1.ts\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, BrowserUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(body))
	}))
	defer srv.Close()

	r := New()
	res, err := r.Resolve(context.Background(), srv.URL+"/media/index.m3u8")
	require.NoError(t, err)
	require.False(t, res.IsMaster)
	require.Len(t, res.Media.Segments, 2)
	assert.Equal(t, srv.URL+"/media/seg0.ts", res.Media.Segments[0])
	assert.Equal(t, srv.URL+"/media/seg1.ts", res.Media.Segments[1])
	assert.InDelta(t, 19.0, res.Media.DurationSeconds, 0.001)
	assert.False(t, res.Media.Live)
}

func TestResolveLiveMediaPlaylist(t *testing.T) {
	body := "#EXTM3U\n" +
		"#EXT-X-TARGETDURATION:6\n" +
		"#EXTINF:6.0,\n" +
		"seg0.ts\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	r := New()
	res, err := r.Resolve(context.Background(), srv.URL+"/live.m3u8")
	require.NoError(t, err)
	assert.True(t, res.Media.Live)
}

func TestResolveMasterPlaylist(t *testing.T) {
	body := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=720x480\n" +
		"720p/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=640000,RESOLUTION=480x320\n" +
		"480p/index.m3u8\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	r := New()
	res, err := r.Resolve(context.Background(), srv.URL+"/master.m3u8")
	require.NoError(t, err)
	require.True(t, res.IsMaster)
	require.Len(t, res.Master.Variants, 2)
	assert.Equal(t, srv.URL+"/720p/index.m3u8", res.Master.Variants[0].URL)
	assert.Equal(t, "720x480", res.Master.Variants[0].Resolution)
	assert.Equal(t, int64(1280000), res.Master.Variants[0].Bandwidth)
}

func TestResolveEmptyBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	_, err := r.Resolve(context.Background(), srv.URL+"/empty.m3u8")
	require.Error(t, err)
}

func TestResolveNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := New()
	_, err := r.Resolve(context.Background(), srv.URL+"/missing.m3u8")
	require.Error(t, err)
}
