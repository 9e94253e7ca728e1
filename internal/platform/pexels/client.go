// Package pexels provides image lookup enrichment backed by the Pexels
// search API. Lookups are best-effort: any failure yields the configured
// placeholder URL, never an error.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lingualab/lingua-api/internal/config"
)

const defaultBaseURL = "https://api.pexels.com/v1"

// Client looks up illustrative images for generated vocabulary.
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	placeholder string
	logger      *slog.Logger
}

// NewClient creates a Pexels client. An empty API key is allowed; lookups
// then short-circuit to the placeholder.
func NewClient(cfg config.ImageConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		apiKey:      cfg.PexelsAPIKey,
		baseURL:     defaultBaseURL,
		placeholder: cfg.PlaceholderURL,
		logger:      logger.With(slog.String("component", "pexels_client")),
	}
}

type searchResponse struct {
	Photos []struct {
		Src struct {
			Medium string `json:"medium"`
		} `json:"src"`
	} `json:"photos"`
}

// LookupImage returns a medium-sized image URL for the query, or the
// placeholder on any failure (missing key, network error, rate limit,
// empty result).
func (c *Client) LookupImage(ctx context.Context, query string) string {
	if c.apiKey == "" || query == "" {
		return c.placeholder
	}

	endpoint := fmt.Sprintf("%s/search?query=%s&per_page=1", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("failed to build image lookup request", "error", err, "query", query)
		return c.placeholder
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("image lookup failed", "error", err, "query", query)
		return c.placeholder
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("failed to close image lookup response", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("image lookup returned non-OK status",
			"status", resp.StatusCode, "query", query)
		return c.placeholder
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.Warn("failed to decode image lookup response", "error", err, "query", query)
		return c.placeholder
	}
	if len(parsed.Photos) == 0 || parsed.Photos[0].Src.Medium == "" {
		return c.placeholder
	}

	return parsed.Photos[0].Src.Medium
}
