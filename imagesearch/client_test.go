package imagesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		PexelsAPIKey:   "pexels-key",
		PixabayAPIKey:  "pixabay-key",
		PexelsURL:      srv.URL + "/pexels",
		PixabayURL:     srv.URL + "/pixabay",
		OpenClipartURL: srv.URL + "/openclipart",
	}, srv.Client(), zaptest.NewLogger(t))
}

func TestSearchPexels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pexels", r.URL.Path)
		assert.Equal(t, "pexels-key", r.Header.Get("Authorization"))
		assert.Equal(t, "old lighthouse", r.URL.Query().Get("query"))
		assert.Equal(t, "6", r.URL.Query().Get("per_page"))
		_, _ = w.Write([]byte(`{"photos":[{"id":1234567,"alt":"A lighthouse","photographer":"Ann","src":{"medium":"m.jpg","small":"s.jpg"}}]}`))
	})

	images, err := c.Search(context.Background(), "", "old lighthouse", 0)
	require.NoError(t, err)
	assert.Equal(t, []Image{{ID: "1234567", URL: "m.jpg", Thumbnail: "s.jpg", Alt: "A lighthouse", Photographer: "Ann", Source: "Pexels"}}, images)
}

func TestSearchPixabay(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/pixabay", r.URL.Path)
		assert.Equal(t, "pixabay-key", q.Get("key"))
		assert.Equal(t, "castle", q.Get("q"))
		assert.Equal(t, "photo", q.Get("image_type"))
		assert.Equal(t, "true", q.Get("safesearch"))
		assert.Equal(t, "80", q.Get("per_page"))
		_, _ = w.Write([]byte(`{"hits":[{"id":42,"webformatURL":"w.jpg","previewURL":"p.jpg","tags":"castle, stone","user":"bo"}]}`))
	})

	images, err := c.Search(context.Background(), SourcePixabay, "castle", 500)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, Image{ID: "42", URL: "w.jpg", Thumbnail: "p.jpg", Alt: "castle, stone", Photographer: "bo", Source: "Pixabay"}, images[0])
}

func TestSearchOpenClipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openclipart", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("amount"))
		_, _ = w.Write([]byte(`{"payload":[{"id":"77","title":"Crown","svg":{"png_full_lossy":"f.png","png_thumb":"t.png"},"uploader":{"username":"carl"}}]}`))
	})

	images, err := c.Search(context.Background(), SourceOpenClipart, "crown", 3)
	require.NoError(t, err)
	assert.Equal(t, []Image{{ID: "77", URL: "f.png", Thumbnail: "t.png", Alt: "Crown", Photographer: "carl", Source: "OpenClipart"}}, images)
}

func TestSearchNoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	images, err := c.Search(context.Background(), SourcePexels, "nothing", 5)
	require.NoError(t, err)
	assert.NotNil(t, images)
	assert.Empty(t, images)
}

func TestSearchErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := c.Search(context.Background(), SourcePexels, "", 5)
	assert.ErrorIs(t, err, ErrQueryRequired)

	_, err = c.Search(context.Background(), "flickr", "cats", 5)
	assert.ErrorIs(t, err, ErrInvalidSource)

	_, err = c.Search(context.Background(), SourcePixabay, "cats", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pixabay API error: 401")
}

func TestSearchHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Search(ctx, SourcePexels, "slow", 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClampPerPage(t *testing.T) {
	for in, want := range map[int]int{-3: 6, 0: 6, 1: 1, 12: 12, 80: 80, 81: 80} {
		assert.Equal(t, want, ClampPerPage(in), in)
	}
}
