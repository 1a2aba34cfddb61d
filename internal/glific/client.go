// Package glific talks to the chat platform that fronts the conversation
// flows. The only outbound call the pipeline needs is fetching meter images
// the operator attached to a message, either by media id or by a direct URL
// the webhook payload already carries.
package glific

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"telemetry_backend/platform/apperr"
	"telemetry_backend/platform/config"
	"telemetry_backend/platform/logger"
)

const userAgent = "WaterSupplyBot/1.0"

// maxImageBytes bounds a single media download. Meter photos from phones
// comfortably fit; anything larger is rejected rather than buffered.
const maxImageBytes = 16 << 20

// MediaFetcher downloads image bytes for a meter reading submission.
type MediaFetcher interface {
	FetchByID(ctx context.Context, mediaID string) ([]byte, error)
	FetchURL(ctx context.Context, imageURL string) ([]byte, error)
}

type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      *logger.Logger
}

func NewClient(cfg config.GlificConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.GetGlificMediaBaseURL(), "/"),
		apiToken: cfg.GetGlificAPIToken(),
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// FetchByID downloads media through the platform's media endpoint.
func (c *Client) FetchByID(ctx context.Context, mediaID string) ([]byte, error) {
	if mediaID == "" {
		return nil, apperr.Validation("media id is required")
	}
	return c.fetch(ctx, fmt.Sprintf("%s/%s", c.baseURL, mediaID), true)
}

// FetchURL downloads media from a direct URL carried in the webhook payload.
// Direct URLs are pre-signed by the platform, so no token is attached.
func (c *Client) FetchURL(ctx context.Context, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, apperr.Validation("image url is required")
	}
	return c.fetch(ctx, imageURL, false)
}

func (c *Client) fetch(ctx context.Context, url string, authenticated bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build media request", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if authenticated && c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "media download failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperr.Unavailable(fmt.Sprintf("media service returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(preview))))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "read media body", err)
	}
	if len(data) > maxImageBytes {
		return nil, apperr.Validation("media exceeds the maximum allowed size")
	}
	if len(data) == 0 {
		return nil, apperr.Unavailable("media service returned an empty body")
	}

	c.log.Info("media downloaded", "bytes", len(data))
	return data, nil
}
