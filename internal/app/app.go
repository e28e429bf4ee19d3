package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/halalscan/backend/config"
	"github.com/halalscan/backend/internal/infrastructure/cache"
	"github.com/halalscan/backend/internal/infrastructure/catalog"
	"github.com/halalscan/backend/internal/infrastructure/gemini"
	"github.com/halalscan/backend/internal/infrastructure/taxonomy"
	"github.com/halalscan/backend/internal/usecase"
)

// App is the dependency graph shared by the server and the CLI
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Catalog    *catalog.Repository
	Classifier *usecase.Classifier
	Scanner    *usecase.ScanService

	clients *cache.MemoryCache
}

// New wires taxonomy, catalog, advisor and scan service from configuration.
// Nothing is fetched yet; the catalog loads on first use.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rules, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}
	tax, err := usecase.NewIngredientTaxonomy(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build taxonomy: %w", err)
	}
	classifier := usecase.NewClassifier(tax)

	source, err := catalog.NewSource(ctx, cfg.Catalog.Source, catalog.SourceOptions{
		HTTPTimeout: cfg.Catalog.FetchTimeout,
		S3: catalog.S3Options{
			Region:          cfg.Catalog.S3.Region,
			Endpoint:        cfg.Catalog.S3.Endpoint,
			AccessKeyID:     cfg.Catalog.S3.AccessKeyID,
			SecretAccessKey: cfg.Catalog.S3.SecretAccessKey,
			UsePathStyle:    cfg.Catalog.S3.UsePathStyle,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure catalog source: %w", err)
	}
	products := catalog.NewRepository(source, logger.Named("catalog"), cfg.Catalog.FetchTimeout)

	clients := cache.NewMemoryCache(10 * time.Minute)
	advisor := gemini.NewAdvisor(gemini.Config{
		Model:             cfg.Advisor.Model,
		BaseURL:           cfg.Advisor.BaseURL,
		Timeout:           cfg.Advisor.Timeout,
		RequestsPerMinute: cfg.Advisor.RequestsPerMinute,
		Burst:             cfg.Advisor.Burst,
		ClientTTL:         cfg.Advisor.ClientTTL,
	}, clients, logger.Named("advisor"))

	scanner := usecase.NewScanService(products, classifier, advisor, logger.Named("scan"), usecase.ScanServiceConfig{
		DefaultLanguage: cfg.Advisor.DefaultLanguage,
		MaxImageBytes:   cfg.Advisor.MaxImageBytes,
	})

	logger.Info("application wired",
		zap.String("catalog", source.String()),
		zap.Int("exact_terms", len(rules.ExactTerms)),
		zap.Int("forbidden_codes", len(rules.ForbiddenCodes)),
		zap.Int("ambiguous_codes", len(rules.AmbiguousCodes)),
		zap.Int("fragments", len(rules.Fragments)),
		zap.String("advisor_model", cfg.Advisor.Model),
	)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Catalog:    products,
		Classifier: classifier,
		Scanner:    scanner,
		clients:    clients,
	}, nil
}

// Close releases background resources
func (a *App) Close() {
	a.clients.Close()
}
