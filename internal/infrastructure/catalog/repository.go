package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/halalscan/backend/internal/domain"
)

const loadKey = "catalog"

// productIndex maps barcodes to products. It is built once and never written
// after it is published.
type productIndex map[string]*domain.Product

// Repository is a lazily loaded, read-only product catalog. The first caller
// triggers a single fetch; concurrent callers wait for the same fetch.
type Repository struct {
	source       domain.CatalogSource
	logger       *zap.Logger
	fetchTimeout time.Duration

	group singleflight.Group
	index atomic.Pointer[productIndex]
}

// NewRepository creates a catalog backed by source
func NewRepository(source domain.CatalogSource, logger *zap.Logger, fetchTimeout time.Duration) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}

	return &Repository{
		source:       source,
		logger:       logger,
		fetchTimeout: fetchTimeout,
	}
}

// Load populates the catalog if needed and returns the number of products.
// A failed fetch leaves the catalog empty for the life of the process.
func (r *Repository) Load(ctx context.Context) int {
	return len(r.loadOnce(ctx))
}

// Loaded reports whether the single fetch has completed
func (r *Repository) Loaded() bool {
	return r.index.Load() != nil
}

// Lookup returns the product for barcode or ErrProductNotFound. The returned
// product is shared and must not be modified.
func (r *Repository) Lookup(ctx context.Context, barcode string) (*domain.Product, error) {
	idx := r.loadOnce(ctx)

	product, ok := idx[barcode]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *Repository) loadOnce(ctx context.Context) productIndex {
	if idx := r.index.Load(); idx != nil {
		return *idx
	}

	// The fetch is shared, so it must outlive the caller that started it.
	fetchCtx := context.WithoutCancel(ctx)

	ch := r.group.DoChan(loadKey, func() (interface{}, error) {
		if idx := r.index.Load(); idx != nil {
			return *idx, nil
		}
		idx := r.fetch(fetchCtx)
		r.index.Store(&idx)
		return idx, nil
	})

	select {
	case res := <-ch:
		return res.Val.(productIndex)
	case <-ctx.Done():
		r.logger.Debug("caller gave up waiting for catalog load", zap.Error(ctx.Err()))
		return nil
	}
}

func (r *Repository) fetch(ctx context.Context) productIndex {
	ctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	start := time.Now()
	products, err := r.source.Fetch(ctx)
	if err != nil {
		fields := []zap.Field{
			zap.String("source", r.source.String()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		}
		if errors.Is(err, context.DeadlineExceeded) {
			fields = append(fields, zap.Duration("timeout", r.fetchTimeout))
		}
		r.logger.Warn("catalog fetch failed, continuing with an empty catalog", fields...)
		return productIndex{}
	}

	idx := make(productIndex, len(products))
	for i := range products {
		p := &products[i]
		if _, dup := idx[p.Barcode]; dup {
			continue
		}
		idx[p.Barcode] = p
	}

	r.logger.Info("catalog loaded",
		zap.String("source", r.source.String()),
		zap.Int("products", len(idx)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return idx
}
