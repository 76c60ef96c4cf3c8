package rapidapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tagsync/internal/config"
	"tagsync/internal/core/domain"
)

func testClient(baseURL string) *Client {
	cfg := &config.Config{
		FlicToken:    "flic",
		RapidAPIKey:  "test-key",
		RapidAPIHost: "host.example",
		CategoryID:   25,
	}
	c := NewClient(cfg, zap.NewNop())
	c.baseURL = baseURL
	return c
}

const searchPayload = `{
	"data": {
		"items": [
			{"pk": 101, "is_video": true, "video_url": "http://cdn.example/101.mp4"},
			{"pk": 102, "is_video": true, "video_url": "http://cdn.example/102.mp4"},
			{"pk": 102, "is_video": true, "video_url": "http://cdn.example/102-dup.mp4"},
			{"pk": 103, "is_video": true, "video_url": ""},
			{"pk": 104, "is_video": false, "image_versions": {"items": [{"url": "http://cdn.example/104.jpg"}]}}
		]
	}
}`

func TestSearchVideos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-rapidapi-key"))
		assert.Equal(t, "host.example", r.Header.Get("x-rapidapi-host"))
		assert.Equal(t, "sunset", r.URL.Query().Get("hashtag"))
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	descriptors, err := c.Search(context.Background(), "sunset", domain.KindVideo, 10)
	require.NoError(t, err)

	// 101 and 102: the duplicate pk and the empty-url item are dropped,
	// and the image item is not a video.
	require.Len(t, descriptors, 2)
	ids := map[string]bool{}
	for _, d := range descriptors {
		assert.NotEmpty(t, d.ID)
		assert.NotEmpty(t, d.SourceURL)
		assert.Equal(t, "sunset", d.Hashtag)
		assert.Equal(t, domain.KindVideo, d.Kind)
		assert.False(t, ids[d.ID], "duplicate id %s", d.ID)
		ids[d.ID] = true
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	descriptors, err := c.Search(context.Background(), "sunset", domain.KindVideo, 1)
	require.NoError(t, err)
	assert.Len(t, descriptors, 1)
}

func TestSearchZeroLimitSkipsRequest(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	descriptors, err := c.Search(context.Background(), "sunset", domain.KindVideo, 0)
	require.NoError(t, err)
	assert.Empty(t, descriptors)
	assert.Equal(t, 0, requests)
}

func TestSearchImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	descriptors, err := c.Search(context.Background(), "sunset", domain.KindImage, 10)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "104", descriptors[0].ID)
	assert.Equal(t, "http://cdn.example/104.jpg", descriptors[0].SourceURL)
	assert.Equal(t, domain.KindImage, descriptors[0].Kind)
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Search(context.Background(), "sunset", domain.KindVideo, 3)
	require.Error(t, err)
	var searchErr *domain.SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "sunset", searchErr.Hashtag)
	assert.Contains(t, err.Error(), "429")
}

func TestSearchMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"items": [`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Search(context.Background(), "sunset", domain.KindVideo, 3)
	var searchErr *domain.SearchError
	require.ErrorAs(t, err, &searchErr)
}

func TestSearchStringPKs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"items": [{"pk": "abc123", "is_video": true, "video_url": "http://cdn.example/v.mp4"}]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	descriptors, err := c.Search(context.Background(), "sunset", domain.KindVideo, 3)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "abc123", descriptors[0].ID)
}
