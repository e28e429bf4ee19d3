package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CatalogSource fetches the complete product catalog from its static location
type CatalogSource interface {
	Fetch(ctx context.Context) ([]Product, error)
	String() string
}

// CatalogRepository looks up products by barcode
type CatalogRepository interface {
	Lookup(ctx context.Context, barcode string) (*Product, error)
}

// Advisor produces a free-form compliance narrative. Its output is opaque
// prose and is never parsed.
type Advisor interface {
	Assess(ctx context.Context, request *AdvisorRequest) (string, error)
}
