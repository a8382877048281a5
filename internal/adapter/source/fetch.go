package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// Fetcher reads a source document from a local path or an http(s) URL.
type Fetcher struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher whose downloads are bounded by timeout.
func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// IsRemote reports whether locator is fetched over HTTP.
func IsRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// Fetch returns the raw bytes behind locator. Any failure wraps
// domain.ErrSourceUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if !IsRemote(locator) {
		path := strings.TrimPrefix(locator, "file://")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %v: %w", path, err, domain.ErrSourceUnavailable)
		}
		f.logger.Debug("source read from disk", "path", path, "bytes", len(data))
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %v: %w", err, domain.ErrSourceUnavailable)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %v: %w", locator, err, domain.ErrSourceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download %s: status %d: %w", locator, resp.StatusCode, domain.ErrSourceUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %v: %w", locator, err, domain.ErrSourceUnavailable)
	}
	f.logger.Info("source downloaded",
		"url", locator,
		"bytes", len(data),
		"duration", time.Since(start),
	)
	return data, nil
}
