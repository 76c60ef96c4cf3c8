// Package rapidapi implements the hashtag search port against the RapidAPI
// Instagram endpoint.
package rapidapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"tagsync/internal/config"
	"tagsync/internal/core/domain"
)

const searchTimeout = 10 * time.Second

// Client implements ports.Searcher using the RapidAPI hashtag endpoint.
type Client struct {
	baseURL string
	host    string
	key     string
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a search client from the RapidAPI credentials in cfg.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL: "https://" + cfg.RapidAPIHost,
		host:    cfg.RapidAPIHost,
		key:     cfg.RapidAPIKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// hashtagResponse mirrors the subset of the API payload we consume.
type hashtagResponse struct {
	Data struct {
		Items []searchItem `json:"items"`
	} `json:"data"`
}

// flexID tolerates the API serialising pk as either a number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type searchItem struct {
	PK            flexID `json:"pk"`
	IsVideo       bool   `json:"is_video"`
	VideoURL      string `json:"video_url"`
	ImageVersions struct {
		Items []struct {
			URL string `json:"url"`
		} `json:"items"`
	} `json:"image_versions"`
	Caption struct {
		Text string `json:"text"`
	} `json:"caption"`
}

// Search queries the hashtag endpoint once and returns up to limit
// descriptors of the requested kind. Items are shuffled before selection so
// repeated runs against the same tag do not always pick the same media.
func (c *Client) Search(ctx context.Context, hashtag string, kind domain.MediaKind, limit int) ([]domain.VideoDescriptor, error) {
	if limit <= 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/v1/hashtag?hashtag=%s", c.baseURL, url.QueryEscape(hashtag))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &domain.SearchError{Hashtag: hashtag, Err: err}
	}
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.key)

	c.logger.Info("searching hashtag",
		zap.String("hashtag", hashtag),
		zap.String("kind", string(kind)),
		zap.Int("limit", limit))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.SearchError{Hashtag: hashtag, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.SearchError{
			Hashtag: hashtag,
			Err:     fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body),
		}
	}

	var payload hashtagResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &domain.SearchError{Hashtag: hashtag, Err: fmt.Errorf("malformed payload: %w", err)}
	}

	items := payload.Data.Items
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})

	descriptors := make([]domain.VideoDescriptor, 0, limit)
	seen := make(map[string]struct{})
	for _, item := range items {
		if len(descriptors) >= limit {
			break
		}
		desc, ok := c.toDescriptor(item, hashtag, kind)
		if !ok {
			continue
		}
		if _, dup := seen[desc.ID]; dup {
			continue
		}
		seen[desc.ID] = struct{}{}
		descriptors = append(descriptors, desc)
	}

	c.logger.Info("search completed",
		zap.String("hashtag", hashtag),
		zap.Int("results", len(descriptors)))
	return descriptors, nil
}

// toDescriptor extracts a descriptor of the requested kind, rejecting items
// without a usable id or source URL.
func (c *Client) toDescriptor(item searchItem, hashtag string, kind domain.MediaKind) (domain.VideoDescriptor, bool) {
	pk := string(item.PK)
	if pk == "" {
		return domain.VideoDescriptor{}, false
	}

	var sourceURL string
	switch kind {
	case domain.KindVideo:
		sourceURL = item.VideoURL
	case domain.KindImage:
		if item.IsVideo || len(item.ImageVersions.Items) == 0 {
			return domain.VideoDescriptor{}, false
		}
		sourceURL = item.ImageVersions.Items[0].URL
	}
	if sourceURL == "" {
		return domain.VideoDescriptor{}, false
	}

	metadata := map[string]string{"pk": pk}
	if item.Caption.Text != "" {
		metadata["caption"] = item.Caption.Text
	}

	return domain.VideoDescriptor{
		ID:        pk,
		SourceURL: sourceURL,
		Hashtag:   hashtag,
		Kind:      kind,
		Metadata:  metadata,
	}, true
}
