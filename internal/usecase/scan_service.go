package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/halalscan/backend/internal/domain"
)

const noteNoResults = "No results: the product is not in the catalog."

// ScanServiceConfig holds configuration for the scan service
type ScanServiceConfig struct {
	DefaultLanguage string
	MaxImageBytes   int64
}

// ScanService resolves scan requests against the catalog, the classifier and
// the compliance advisor
type ScanService struct {
	catalog         domain.CatalogRepository
	classifier      *Classifier
	advisor         domain.Advisor
	logger          *zap.Logger
	defaultLanguage string
	maxImageBytes   int64
	now             func() time.Time
}

// NewScanService creates a new scan service with dependencies
func NewScanService(
	catalog domain.CatalogRepository,
	classifier *Classifier,
	advisor domain.Advisor,
	logger *zap.Logger,
	config ScanServiceConfig,
) *ScanService {
	language := config.DefaultLanguage
	if !domain.IsSupportedLanguage(language) {
		language = domain.LanguageRussian
	}

	maxImageBytes := config.MaxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = 10 << 20
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &ScanService{
		catalog:         catalog,
		classifier:      classifier,
		advisor:         advisor,
		logger:          logger,
		defaultLanguage: language,
		maxImageBytes:   maxImageBytes,
		now:             time.Now,
	}
}

// MaxImageBytes is the largest photo a scan accepts
func (s *ScanService) MaxImageBytes() int64 {
	return s.maxImageBytes
}

// ScanByBarcode looks a barcode up. The advisor runs only with a credential
// and either a catalog miss or enrich set.
func (s *ScanService) ScanByBarcode(ctx context.Context, barcode, credential, language string, enrich bool) (*domain.ScanOutcome, error) {
	return s.Scan(ctx, &domain.ScanRequest{
		Barcode:    barcode,
		Credential: credential,
		Language:   language,
		Enrich:     enrich,
	})
}

// ScanByText asks the advisor about a free-text product description
func (s *ScanService) ScanByText(ctx context.Context, text, credential, language string) (*domain.ScanOutcome, error) {
	return s.Scan(ctx, &domain.ScanRequest{
		Text:       text,
		Credential: credential,
		Language:   language,
	})
}

// ScanByImage asks the advisor about a product photo
func (s *ScanService) ScanByImage(ctx context.Context, image []byte, mimeType, credential, language string) (*domain.ScanOutcome, error) {
	return s.Scan(ctx, &domain.ScanRequest{
		Image:      image,
		MimeType:   mimeType,
		Credential: credential,
		Language:   language,
	})
}

// Scan runs one request through the resolution pipeline:
// validate -> catalog lookup -> classify -> advisor (optional) -> assemble.
// Downstream failures never fail the scan; only invalid input does.
func (s *ScanService) Scan(ctx context.Context, request *domain.ScanRequest) (*domain.ScanOutcome, error) {
	req, err := s.normalize(request)
	if err != nil {
		return nil, err
	}

	product := s.lookup(ctx, req.Barcode)

	var findings *domain.LocalFindings
	if product != nil && len(product.Ingredients) > 0 {
		findings = domain.NewLocalFindings(s.classifier.Check(product.Ingredients))
	}

	outcome := &domain.ScanOutcome{
		Product:       product,
		Origin:        domain.OriginCatalog,
		LocalFindings: findings,
	}

	var advisorErr error
	if s.shouldConsultAdvisor(req, product) {
		narrative, err := s.consultAdvisor(ctx, req, product, findings)
		if err != nil {
			advisorErr = err
		} else {
			outcome.Narrative = &narrative
			if product != nil {
				outcome.Origin = domain.OriginCatalogAndAdvisor
			} else {
				outcome.Origin = domain.OriginAdvisor
			}
		}
	}

	switch {
	case product == nil && outcome.Narrative == nil:
		outcome.NoResults = true
		outcome.Note = noResultsNote(advisorErr)
	case advisorErr != nil:
		outcome.Note = advisorNote(advisorErr)
	}

	s.logger.Info("scan resolved",
		zap.String("barcode", req.Barcode),
		zap.Bool("catalog_hit", product != nil),
		zap.String("origin", string(outcome.Origin)),
		zap.Bool("narrative", outcome.Narrative != nil),
		zap.Bool("no_results", outcome.NoResults),
	)

	return outcome, nil
}

// LookupProduct returns a catalog product together with its local findings
func (s *ScanService) LookupProduct(ctx context.Context, barcode string) (*domain.Product, *domain.LocalFindings, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, nil, fmt.Errorf("%w: barcode is required", domain.ErrInvalidRequest)
	}
	if s.catalog == nil {
		return nil, nil, domain.ErrProductNotFound
	}

	product, err := s.catalog.Lookup(ctx, barcode)
	if err != nil {
		return nil, nil, err
	}

	return product, domain.NewLocalFindings(s.classifier.Check(product.Ingredients)), nil
}

// CheckIngredients classifies an ingredient list without touching the catalog
func (s *ScanService) CheckIngredients(ingredients []string) *domain.LocalFindings {
	return domain.NewLocalFindings(s.classifier.Check(ingredients))
}

// normalize validates a request and returns a trimmed copy. It fails fast,
// before any network call.
func (s *ScanService) normalize(request *domain.ScanRequest) (*domain.ScanRequest, error) {
	var err error
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	req := *request
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Text = strings.TrimSpace(req.Text)
	req.Credential = strings.TrimSpace(req.Credential)
	req.Model = strings.TrimSpace(req.Model)
	if req.Language, err = s.resolveLanguage(req.Language); err != nil {
		return nil, err
	}

	if req.Barcode == "" && req.Text == "" && len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: a barcode, text or image is required", domain.ErrInvalidRequest)
	}

	if req.NarrativeOnly() && req.Credential == "" {
		return nil, fmt.Errorf("%w: an API key is required for text and image analysis", domain.ErrInvalidRequest)
	}

	if len(req.Image) > 0 {
		if req.MimeType, err = s.checkImage(req.Image, req.MimeType); err != nil {
			return nil, err
		}
	}

	return &req, nil
}

// resolveLanguage falls back to the default language and rejects unsupported tags
func (s *ScanService) resolveLanguage(language string) (string, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return s.defaultLanguage, nil
	}
	if !domain.IsSupportedLanguage(language) {
		return "", fmt.Errorf("%w: unsupported language %q", domain.ErrInvalidRequest, language)
	}
	return language, nil
}

// checkImage enforces the size limit and returns the image MIME type,
// sniffing it when the caller gave none
func (s *ScanService) checkImage(image []byte, mimeType string) (string, error) {
	if int64(len(image)) > s.maxImageBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidRequest, s.maxImageBytes)
	}
	if mimeType == "" {
		mimeType = mimetype.Detect(image).String()
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("%w: unsupported image type %q", domain.ErrInvalidRequest, mimeType)
	}
	return mimeType, nil
}

// lookup treats any catalog failure as a miss
func (s *ScanService) lookup(ctx context.Context, barcode string) *domain.Product {
	if barcode == "" || s.catalog == nil {
		return nil
	}

	product, err := s.catalog.Lookup(ctx, barcode)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			s.logger.Warn("catalog lookup failed", zap.String("barcode", barcode), zap.Error(err))
		}
		return nil
	}

	return product
}

func (s *ScanService) shouldConsultAdvisor(req *domain.ScanRequest, product *domain.Product) bool {
	if req.Credential == "" || s.advisor == nil {
		return false
	}
	return product == nil || req.Text != "" || len(req.Image) > 0 || req.Enrich
}

func (s *ScanService) consultAdvisor(
	ctx context.Context,
	req *domain.ScanRequest,
	product *domain.Product,
	findings *domain.LocalFindings,
) (string, error) {
	prompt := BuildPrompt(PromptInput{
		Barcode:  req.Barcode,
		Product:  product,
		Findings: findings,
		Text:     req.Text,
		HasImage: len(req.Image) > 0,
		Language: req.Language,
	})

	narrative, err := s.advisor.Assess(ctx, &domain.AdvisorRequest{
		Prompt:     prompt,
		Image:      req.Image,
		MimeType:   req.MimeType,
		Language:   req.Language,
		Credential: req.Credential,
		Model:      req.Model,
	})
	if err != nil {
		s.logger.Warn("advisor failed, returning local evidence only",
			zap.String("barcode", req.Barcode),
			zap.String("kind", string(domain.AdvisorErrorKindOf(err))),
			zap.Error(err),
		)
		return "", err
	}

	return narrative, nil
}

func advisorNote(err error) string {
	var advErr *domain.AdvisorError
	if errors.As(err, &advErr) {
		return advErr.Note()
	}
	return (&domain.AdvisorError{Kind: domain.AdvisorUnknown}).Note()
}

func noResultsNote(advisorErr error) string {
	if advisorErr == nil {
		return noteNoResults
	}
	return fmt.Sprintf("%s AI analysis failed (%s).", noteNoResults, domain.AdvisorErrorKindOf(advisorErr))
}
