// Package usgs fetches earthquake events from the USGS FDSN event service.
package usgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/seismoscope/quake-feed-service/internal/domain"
)

// Client fetches time-windowed event feeds over HTTP. One outbound request
// per Fetch call, no retries; the retry policy belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a feed client against the given query endpoint,
// e.g. "https://earthquake.usgs.gov/fdsnws/event/1/query".
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// featureCollection is the top-level GeoJSON document returned by the feed.
type featureCollection struct {
	Features []domain.RawFeature `json:"features"`
}

// Fetch retrieves the raw features reported for the window, in whatever
// order the upstream returns them. Failures are classified into a
// domain.FetchError with reason network, timeout, or malformed-response.
func (c *Client) Fetch(ctx context.Context, window domain.TimeWindow) ([]domain.RawFeature, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{
		"format":    {"geojson"},
		"starttime": {window.Start.UTC().Format(time.RFC3339)},
		"endtime":   {window.End.UTC().Format(time.RFC3339)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.FetchError{
			Reason: domain.FetchMalformed,
			Err:    fmt.Errorf("feed API: status %d: %s", resp.StatusCode, body),
		}
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, &domain.FetchError{
			Reason: domain.FetchMalformed,
			Err:    fmt.Errorf("decode feed response: %w", err),
		}
	}

	c.logger.Debug("feed fetched",
		"features", len(fc.Features),
		"duration", time.Since(start),
		"window_start", window.Start,
		"window_end", window.End,
	)
	return fc.Features, nil
}

// classifyTransportError separates timeouts from other network failures so
// callers can report them distinctly.
func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.FetchError{Reason: domain.FetchTimeout, Err: err}
	}
	return &domain.FetchError{Reason: domain.FetchNetwork, Err: err}
}
