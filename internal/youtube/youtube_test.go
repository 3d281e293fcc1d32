package youtube

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestSearchMusic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/youtube/v3/search", r.URL.Path)
		assert.Equal(t, "lofi", q.Get("q"))
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, "10", q.Get("videoCategoryId"))
		assert.Equal(t, "3", q.Get("maxResults"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items": [
			{"id": {"videoId": "abc"}, "snippet": {"title": "Lofi Beats", "channelTitle": "Chill Channel", "thumbnails": {"high": {"url": "https://i.ytimg.com/abc.jpg"}}}},
			{"id": {"videoId": "def"}, "snippet": {"title": "No Thumbnail", "channelTitle": "Other"}},
			{"id": {"channelId": "chan"}, "snippet": {"title": "A channel"}}
		]}`)
	}))
	defer srv.Close()

	client, err := New("key", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	results, err := client.SearchMusic(context.Background(), "lofi", 3)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{
		Artist:       "Chill Channel",
		Title:        "Lofi Beats",
		MusicURL:     "https://music.youtube.com/watch?v=abc",
		ThumbnailURL: "https://i.ytimg.com/abc.jpg",
		Source:       "youtube",
	}, results[0])
	assert.Empty(t, results[1].ThumbnailURL)
}

func TestSearchMusicError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"code": 403, "message": "quota exceeded"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := New("key", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = client.SearchMusic(context.Background(), "lofi", 3)
	assert.ErrorContains(t, err, "youtube search call failed")
}
