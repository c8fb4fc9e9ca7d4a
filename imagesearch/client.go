// Package imagesearch queries stock image services for character and cover
// inspiration.
package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	pexelsURL      = "https://api.pexels.com/v1/search"
	pixabayURL     = "https://pixabay.com/api/"
	openClipartURL = "https://openclipart.org/search/json/"
)

// Sources.
const (
	SourcePexels      = "pexels"
	SourcePixabay     = "pixabay"
	SourceOpenClipart = "openclipart"
)

const (
	DefaultPerPage = 6
	MaxPerPage     = 80
)

var (
	ErrQueryRequired = errors.New("search query is required")
	ErrInvalidSource = errors.New("invalid source")
)

// Image is one search hit, normalised across sources.
type Image struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	Thumbnail    string `json:"thumbnail"`
	Alt          string `json:"alt"`
	Photographer string `json:"photographer"`
	Source       string `json:"source"`
}

// Config holds the API keys and, for tests, alternative endpoints.
type Config struct {
	PexelsAPIKey   string
	PixabayAPIKey  string
	PexelsURL      string
	PixabayURL     string
	OpenClipartURL string
}

type pexelsResp struct {
	Photos []struct {
		ID  json.Number `json:"id"`
		Alt string      `json:"alt"`
		Src struct {
			Medium string `json:"medium"`
			Small  string `json:"small"`
		} `json:"src"`
		Photographer string `json:"photographer"`
	} `json:"photos"`
}

type pixabayResp struct {
	Hits []struct {
		ID           json.Number `json:"id"`
		WebformatURL string      `json:"webformatURL"`
		PreviewURL   string      `json:"previewURL"`
		Tags         string      `json:"tags"`
		User         string      `json:"user"`
	} `json:"hits"`
}

type openClipartResp struct {
	Payload []struct {
		ID    json.Number `json:"id"`
		Title string      `json:"title"`
		SVG   struct {
			PNGFullLossy string `json:"png_full_lossy"`
			PNGThumb     string `json:"png_thumb"`
		} `json:"svg"`
		Uploader struct {
			Username string `json:"username"`
		} `json:"uploader"`
	} `json:"payload"`
}

// Client searches the three image sources. It is safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Client. A nil http client gets a 15 second timeout.
func New(cfg Config, client *http.Client, logger *zap.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PexelsURL == "" {
		cfg.PexelsURL = pexelsURL
	}
	if cfg.PixabayURL == "" {
		cfg.PixabayURL = pixabayURL
	}
	if cfg.OpenClipartURL == "" {
		cfg.OpenClipartURL = openClipartURL
	}
	return &Client{cfg: cfg, client: client, logger: logger}
}

// ClampPerPage applies the default and the 1..MaxPerPage bounds.
func ClampPerPage(n int) int {
	switch {
	case n <= 0:
		return DefaultPerPage
	case n > MaxPerPage:
		return MaxPerPage
	}
	return n
}

// Search queries source for query. An empty source means Pexels. The
// returned slice is never nil on success.
func (c *Client) Search(ctx context.Context, source, query string, perPage int) ([]Image, error) {
	if query == "" {
		return nil, ErrQueryRequired
	}
	if source == "" {
		source = SourcePexels
	}
	perPage = ClampPerPage(perPage)

	var (
		images []Image
		err    error
	)
	switch source {
	case SourcePexels:
		images, err = c.searchPexels(ctx, query, perPage)
	case SourcePixabay:
		images, err = c.searchPixabay(ctx, query, perPage)
	case SourceOpenClipart:
		images, err = c.searchOpenClipart(ctx, query, perPage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, source)
	}
	if err != nil {
		c.logger.Error("image search failed", zap.String("source", source), zap.String("query", query), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("image search done", zap.String("source", source), zap.Int("images", len(images)))
	return images, nil
}

func (c *Client) getJSON(ctx context.Context, name, rawURL string, q url.Values, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s API error: %d", name, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", name, err)
	}
	return nil
}

func (c *Client) searchPexels(ctx context.Context, query string, perPage int) ([]Image, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(perPage))
	header := http.Header{}
	header.Set("Authorization", c.cfg.PexelsAPIKey)

	var data pexelsResp
	if err := c.getJSON(ctx, "Pexels", c.cfg.PexelsURL, q, header, &data); err != nil {
		return nil, err
	}
	images := make([]Image, 0, len(data.Photos))
	for _, p := range data.Photos {
		images = append(images, Image{
			ID:           p.ID.String(),
			URL:          p.Src.Medium,
			Thumbnail:    p.Src.Small,
			Alt:          p.Alt,
			Photographer: p.Photographer,
			Source:       "Pexels",
		})
	}
	return images, nil
}

func (c *Client) searchPixabay(ctx context.Context, query string, perPage int) ([]Image, error) {
	q := url.Values{}
	q.Set("key", c.cfg.PixabayAPIKey)
	q.Set("q", query)
	q.Set("image_type", "photo")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("safesearch", "true")

	var data pixabayResp
	if err := c.getJSON(ctx, "Pixabay", c.cfg.PixabayURL, q, nil, &data); err != nil {
		return nil, err
	}
	images := make([]Image, 0, len(data.Hits))
	for _, h := range data.Hits {
		images = append(images, Image{
			ID:           h.ID.String(),
			URL:          h.WebformatURL,
			Thumbnail:    h.PreviewURL,
			Alt:          h.Tags,
			Photographer: h.User,
			Source:       "Pixabay",
		})
	}
	return images, nil
}

func (c *Client) searchOpenClipart(ctx context.Context, query string, perPage int) ([]Image, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("amount", strconv.Itoa(perPage))

	var data openClipartResp
	if err := c.getJSON(ctx, "OpenClipart", c.cfg.OpenClipartURL, q, nil, &data); err != nil {
		return nil, err
	}
	images := make([]Image, 0, len(data.Payload))
	for _, item := range data.Payload {
		images = append(images, Image{
			ID:           item.ID.String(),
			URL:          item.SVG.PNGFullLossy,
			Thumbnail:    item.SVG.PNGThumb,
			Alt:          item.Title,
			Photographer: item.Uploader.Username,
			Source:       "OpenClipart",
		})
	}
	return images, nil
}
