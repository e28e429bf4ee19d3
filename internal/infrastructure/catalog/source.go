package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/halalscan/backend/internal/domain"
)

// maxCatalogBytes caps how much of a remote catalog is read
const maxCatalogBytes = 64 << 20

// SourceOptions configures the sources built by NewSource
type SourceOptions struct {
	HTTPTimeout time.Duration
	S3          S3Options
}

// NewSource picks a catalog source from a location: a bare path or file://
// URL, an http(s):// URL, or s3://bucket/key.
func NewSource(ctx context.Context, location string, opts SourceOptions) (domain.CatalogSource, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("catalog source is empty")
	}

	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPSource(location, opts.HTTPTimeout), nil
	case strings.HasPrefix(location, "file://"):
		return NewFileSource(strings.TrimPrefix(location, "file://")), nil
	case strings.HasPrefix(location, "s3://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 location %q: %w", location, err)
		}
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 location %q must look like s3://bucket/key", location)
		}
		source, err := NewS3Source(ctx, u.Host, key, opts.S3)
		if err != nil {
			return nil, err
		}
		return source, nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("unsupported catalog source scheme in %q", location)
	default:
		return NewFileSource(location), nil
	}
}

// FileSource reads the catalog from the local filesystem
type FileSource struct {
	path string
}

// NewFileSource creates a source for a local products.json
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads and decodes the file
func (s *FileSource) Fetch(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	return DecodeCatalog(data)
}

func (s *FileSource) String() string {
	return "file://" + s.path
}

// HTTPSource fetches the catalog with a single GET from a static location
type HTTPSource struct {
	httpClient *http.Client
	url        string
}

// NewHTTPSource creates a new HTTP catalog source
func NewHTTPSource(location string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPSource{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url: location,
	}
}

// Fetch downloads and decodes the catalog. Any non-200 status is
// ErrCatalogUnavailable. There are no retries.
func (s *HTTPSource) Fetch(ctx context.Context) ([]domain.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "HalalScan/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrCatalogUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	return DecodeCatalog(data)
}

func (s *HTTPSource) String() string {
	return s.url
}
