// Package loader reads the three inputs of the map (geometry, metrics and the
// dataset registry), validates them and publishes them as one immutable
// Snapshot.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxFetchBytes bounds a single input document.
const maxFetchBytes = 512 << 20

// ErrFetch is returned when an input document cannot be read.
var ErrFetch = errors.New("fetch failed")

// Fetcher reads a document from a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// LocationFetcher reads local files and http(s) URLs.
// Relative file paths are resolved against BaseDir.
type LocationFetcher struct {
	BaseDir string
	Client  *http.Client
}

// NewLocationFetcher creates a fetcher rooted at baseDir.
func NewLocationFetcher(baseDir string) *LocationFetcher {
	return &LocationFetcher{
		BaseDir: baseDir,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch reads the document at location.
func (f *LocationFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if isURL(location) {
		return f.fetchURL(ctx, location)
	}
	return f.fetchFile(ctx, location)
}

func (f *LocationFetcher) fetchFile(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := location
	if !filepath.IsAbs(path) && f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrFetch, path, err)
	}
	return data, nil
}

func (f *LocationFetcher) fetchURL(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request for %s: %w", ErrFetch, location, err)
	}
	req.Header.Set("Accept", "application/json, application/geo+json, application/yaml")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrFetch, location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: get %s: unexpected status %d", ErrFetch, location, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %w", ErrFetch, location, err)
	}
	return data, nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
