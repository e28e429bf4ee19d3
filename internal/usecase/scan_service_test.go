package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halalscan/backend/internal/domain"
)

// MockCatalog is a mock implementation of domain.CatalogRepository
type MockCatalog struct {
	mu          sync.Mutex
	products    map[string]*domain.Product
	lookupError error
	lookups     int
}

func NewMockCatalog(products ...*domain.Product) *MockCatalog {
	m := &MockCatalog{products: make(map[string]*domain.Product)}
	for _, p := range products {
		m.products[p.Barcode] = p
	}
	return m
}

func (m *MockCatalog) Lookup(ctx context.Context, barcode string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupError != nil {
		return nil, m.lookupError
	}
	if p, ok := m.products[barcode]; ok {
		return p, nil
	}
	return nil, domain.ErrProductNotFound
}

// MockAdvisor is a mock implementation of domain.Advisor
type MockAdvisor struct {
	mu        sync.Mutex
	narrative string
	err       error
	requests  []*domain.AdvisorRequest
}

func NewMockAdvisor(narrative string) *MockAdvisor {
	return &MockAdvisor{narrative: narrative}
}

func (m *MockAdvisor) Assess(ctx context.Context, request *domain.AdvisorRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, request)
	if m.err != nil {
		return "", m.err
	}
	return m.narrative, nil
}

func (m *MockAdvisor) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// pngHeader is enough of a PNG file for MIME sniffing
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func testProducts() []*domain.Product {
	return []*domain.Product{
		{
			Barcode:      "4600000000001",
			Name:         "Gummy Bears",
			Manufacturer: "Sweet Co",
			Ingredients:  []string{"Sugar", "Gelatin", "E120", "Water"},
			Status:       domain.VerdictForbidden,
		},
		{
			Barcode:      "4600000000002",
			Name:         "Crackers",
			Manufacturer: "Bakery",
			Ingredients:  []string{"Wheat flour", "E471", "Salt"},
			Boycott:      true,
		},
		{
			Barcode:      "4600000000003",
			Name:         "Mineral Water",
			Manufacturer: "Springs",
		},
	}
}

func newTestScanService(t *testing.T, catalog domain.CatalogRepository, advisor domain.Advisor) *ScanService {
	t.Helper()
	return NewScanService(catalog, NewClassifier(newDefaultTaxonomy(t)), advisor, nil, ScanServiceConfig{})
}

func TestNewScanService(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		svc := NewScanService(NewMockCatalog(), nil, nil, nil, ScanServiceConfig{DefaultLanguage: "fr"})
		assert.Equal(t, domain.LanguageRussian, svc.defaultLanguage)
		assert.Equal(t, int64(10<<20), svc.maxImageBytes)
		assert.NotNil(t, svc.logger)
	})

	t.Run("keeps custom values", func(t *testing.T) {
		svc := NewScanService(NewMockCatalog(), nil, nil, nil, ScanServiceConfig{DefaultLanguage: "en", MaxImageBytes: 1024})
		assert.Equal(t, domain.LanguageEnglish, svc.defaultLanguage)
		assert.Equal(t, int64(1024), svc.maxImageBytes)
	})
}

func TestScanByBarcode(t *testing.T) {
	ctx := context.Background()

	t.Run("catalog hit without credential skips advisor", func(t *testing.T) {
		advisor := NewMockAdvisor("narrative")
		svc := newTestScanService(t, NewMockCatalog(testProducts()...), advisor)

		outcome, err := svc.ScanByBarcode(ctx, "4600000000001", "", "en", false)
		require.NoError(t, err)

		require.NotNil(t, outcome.Product)
		assert.Equal(t, "Gummy Bears", outcome.Product.Name)
		assert.Equal(t, domain.OriginCatalog, outcome.Origin)
		assert.Nil(t, outcome.Narrative)
		assert.False(t, outcome.NoResults)
		require.NotNil(t, outcome.LocalFindings)
		assert.Equal(t, []string{"Gelatin", "E120 (E120)"}, outcome.LocalFindings.Forbidden)
		assert.Empty(t, outcome.LocalFindings.Ambiguous)
		assert.Equal(t, domain.VerdictForbidden, outcome.LocalFindings.Verdict)
		assert.Equal(t, 0, advisor.calls())
	})

	t.Run("catalog hit with credential but no enrich skips advisor", func(t *testing.T) {
		advisor := NewMockAdvisor("narrative")
		svc := newTestScanService(t, NewMockCatalog(testProducts()...), advisor)

		outcome, err := svc.ScanByBarcode(ctx, "4600000000002", "key", "en", false)
		require.NoError(t, err)

		assert.Equal(t, domain.OriginCatalog, outcome.Origin)
		assert.Equal(t, []string{"E471 (E471)"}, outcome.LocalFindings.Ambiguous)
		assert.Equal(t, domain.VerdictAmbiguous, outcome.LocalFindings.Verdict)
		assert.Equal(t, 0, advisor.calls())
	})

	t.Run("catalog hit with enrich consults advisor with findings", func(t *testing.T) {
		advisor := NewMockAdvisor("This product is haram.")
		svc := newTestScanService(t, NewMockCatalog(testProducts()...), advisor)

		outcome, err := svc.ScanByBarcode(ctx, "4600000000001", "key", "ar", true)
		require.NoError(t, err)

		assert.Equal(t, domain.OriginCatalogAndAdvisor, outcome.Origin)
		require.NotNil(t, outcome.Narrative)
		assert.Equal(t, "This product is haram.", *outcome.Narrative)
		assert.Equal(t, []string{"Gelatin", "E120 (E120)"}, outcome.LocalFindings.Forbidden)

		require.Equal(t, 1, advisor.calls())
		req := advisor.requests[0]
		assert.Equal(t, "key", req.Credential)
		assert.Equal(t, "ar", req.Language)
		assert.Contains(t, req.Prompt, "Barcode: 4600000000001")
		assert.Contains(t, req.Prompt, "HARAM ingredients: Gelatin, E120 (E120)")
		assert.Contains(t, req.Prompt, "Arabic")
	})

	t.Run("catalog miss is not an error", func(t *testing.T) {
		svc := newTestScanService(t, NewMockCatalog(), NewMockAdvisor("unused"))

		outcome, err := svc.ScanByBarcode(ctx, "0000000000000", "", "en", false)
		require.NoError(t, err)

		assert.Nil(t, outcome.Product)
		assert.Nil(t, outcome.Narrative)
		assert.Nil(t, outcome.LocalFindings)
		assert.True(t, outcome.NoResults)
		assert.NotEmpty(t, outcome.Note)
	})

	t.Run("catalog miss with credential uses advisor", func(t *testing.T) {
		advisor := NewMockAdvisor("Unknown product, looks halal.")
		svc := newTestScanService(t, NewMockCatalog(), advisor)

		outcome, err := svc.ScanByBarcode(ctx, "0000000000000", "key", "ru", false)
		require.NoError(t, err)

		assert.Nil(t, outcome.Product)
		assert.Equal(t, domain.OriginAdvisor, outcome.Origin)
		require.NotNil(t, outcome.Narrative)
		assert.False(t, outcome.NoResults)
		assert.NotContains(t, advisor.requests[0].Prompt, "Known product")
	})

	t.Run("catalog failure degrades to miss", func(t *testing.T) {
		catalog := NewMockCatalog()
		catalog.lookupError = domain.ErrCatalogUnavailable
		svc := newTestScanService(t, catalog, nil)

		outcome, err := svc.ScanByBarcode(ctx, "4600000000001", "", "en", false)
		require.NoError(t, err)
		assert.Nil(t, outcome.Product)
		assert.True(t, outcome.NoResults)
	})

	t.Run("product without ingredients has no findings", func(t *testing.T) {
		svc := newTestScanService(t, NewMockCatalog(testProducts()...), nil)

		outcome, err := svc.ScanByBarcode(ctx, "4600000000003", "", "en", false)
		require.NoError(t, err)
		require.NotNil(t, outcome.Product)
		assert.Nil(t, outcome.LocalFindings)
	})

	t.Run("default language applies when empty", func(t *testing.T) {
		advisor := NewMockAdvisor("ok")
		svc := newTestScanService(t, NewMockCatalog(), advisor)

		_, err := svc.ScanByBarcode(ctx, "123", "key", "", false)
		require.NoError(t, err)
		assert.Equal(t, domain.LanguageRussian, advisor.requests[0].Language)
	})
}

func TestScan_AdvisorFailure(t *testing.T) {
	ctx := context.Background()

	kinds := []domain.AdvisorErrorKind{
		domain.AdvisorUnauthorized,
		domain.AdvisorUnreachable,
		domain.AdvisorRateLimited,
		domain.AdvisorUnknown,
	}

	for _, kind := range kinds {
		t.Run(string(kind)+" keeps local findings", func(t *testing.T) {
			advisor := NewMockAdvisor("")
			advisor.err = domain.NewAdvisorError(kind, errors.New("boom"))
			svc := newTestScanService(t, NewMockCatalog(testProducts()...), advisor)

			outcome, err := svc.ScanByBarcode(ctx, "4600000000001", "key", "en", true)
			require.NoError(t, err)

			assert.Nil(t, outcome.Narrative)
			assert.Equal(t, domain.OriginCatalog, outcome.Origin)
			require.NotNil(t, outcome.LocalFindings)
			assert.NotEmpty(t, outcome.LocalFindings.Forbidden)
			assert.False(t, outcome.NoResults)
			assert.Equal(t, advisor.err.(*domain.AdvisorError).Note(), outcome.Note)
		})
	}

	t.Run("no catalog evidence yields explicit no results", func(t *testing.T) {
		advisor := NewMockAdvisor("")
		advisor.err = domain.NewAdvisorError(domain.AdvisorRateLimited, nil)
		svc := newTestScanService(t, NewMockCatalog(), advisor)

		outcome, err := svc.ScanByText(ctx, "some snack", "key", "en")
		require.NoError(t, err)

		assert.True(t, outcome.NoResults)
		assert.Nil(t, outcome.Product)
		assert.Nil(t, outcome.Narrative)
		assert.Contains(t, outcome.Note, "rate_limited")
	})

	t.Run("plain error is treated as unknown", func(t *testing.T) {
		advisor := NewMockAdvisor("")
		advisor.err = errors.New("unexpected")
		svc := newTestScanService(t, NewMockCatalog(testProducts()...), advisor)

		outcome, err := svc.ScanByBarcode(ctx, "4600000000001", "key", "en", true)
		require.NoError(t, err)
		assert.Equal(t, "AI analysis failed. Showing catalog results.", outcome.Note)
	})
}

func TestScanByText(t *testing.T) {
	ctx := context.Background()

	t.Run("requires credential", func(t *testing.T) {
		advisor := NewMockAdvisor("unused")
		catalog := NewMockCatalog()
		svc := newTestScanService(t, catalog, advisor)

		_, err := svc.ScanByText(ctx, "gummy bears", "", "en")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.Equal(t, 0, advisor.calls())
		assert.Equal(t, 0, catalog.lookups)
	})

	t.Run("passes text to advisor", func(t *testing.T) {
		advisor := NewMockAdvisor("Contains gelatin.")
		svc := newTestScanService(t, NewMockCatalog(), advisor)

		outcome, err := svc.ScanByText(ctx, "  gummy bears with gelatin ", "key", "en")
		require.NoError(t, err)

		assert.Equal(t, domain.OriginAdvisor, outcome.Origin)
		assert.Equal(t, "Contains gelatin.", *outcome.Narrative)
		assert.Contains(t, advisor.requests[0].Prompt, "gummy bears with gelatin")
	})

	t.Run("text with known barcode always consults advisor", func(t *testing.T) {
		advisor := NewMockAdvisor("ok")
		svc := newTestScanService(t, NewMockCatalog(testProducts()...), advisor)

		outcome, err := svc.Scan(ctx, &domain.ScanRequest{
			Barcode:    "4600000000002",
			Text:       "is this ok?",
			Credential: "key",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OriginCatalogAndAdvisor, outcome.Origin)
		assert.Equal(t, 1, advisor.calls())
	})
}

func TestScanByImage(t *testing.T) {
	ctx := context.Background()

	t.Run("sniffs mime type", func(t *testing.T) {
		advisor := NewMockAdvisor("Photo analysed.")
		svc := newTestScanService(t, NewMockCatalog(), advisor)

		outcome, err := svc.ScanByImage(ctx, pngHeader, "", "key", "en")
		require.NoError(t, err)

		assert.Equal(t, domain.OriginAdvisor, outcome.Origin)
		require.Equal(t, 1, advisor.calls())
		assert.Equal(t, "image/png", advisor.requests[0].MimeType)
		assert.Equal(t, pngHeader, advisor.requests[0].Image)
		assert.Contains(t, advisor.requests[0].Prompt, "photo")
	})

	t.Run("rejects non image payload", func(t *testing.T) {
		svc := newTestScanService(t, NewMockCatalog(), NewMockAdvisor("unused"))

		_, err := svc.ScanByImage(ctx, []byte("plain text, not a picture"), "", "key", "en")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("rejects oversized image", func(t *testing.T) {
		svc := NewScanService(NewMockCatalog(), NewClassifier(newDefaultTaxonomy(t)), NewMockAdvisor("unused"), nil,
			ScanServiceConfig{MaxImageBytes: 4})

		_, err := svc.ScanByImage(ctx, pngHeader, "image/png", "key", "en")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("requires credential", func(t *testing.T) {
		svc := newTestScanService(t, NewMockCatalog(), NewMockAdvisor("unused"))

		_, err := svc.ScanByImage(ctx, pngHeader, "image/png", "", "en")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestScan_InvalidRequests(t *testing.T) {
	ctx := context.Background()
	svc := newTestScanService(t, NewMockCatalog(), NewMockAdvisor("unused"))

	tests := []struct {
		name    string
		request *domain.ScanRequest
	}{
		{"nil request", nil},
		{"empty request", &domain.ScanRequest{}},
		{"whitespace barcode", &domain.ScanRequest{Barcode: "   "}},
		{"unsupported language", &domain.ScanRequest{Barcode: "1", Language: "de"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Scan(ctx, tt.request)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestLookupProduct(t *testing.T) {
	ctx := context.Background()
	svc := newTestScanService(t, NewMockCatalog(testProducts()...), nil)

	t.Run("found", func(t *testing.T) {
		product, findings, err := svc.LookupProduct(ctx, " 4600000000002 ")
		require.NoError(t, err)
		assert.Equal(t, "Crackers", product.Name)
		assert.Equal(t, []string{"E471 (E471)"}, findings.Ambiguous)
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := svc.LookupProduct(ctx, "999")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("empty barcode", func(t *testing.T) {
		_, _, err := svc.LookupProduct(ctx, "")
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestCheckIngredients(t *testing.T) {
	svc := newTestScanService(t, NewMockCatalog(), nil)

	findings := svc.CheckIngredients([]string{"Sugar", "Gelatin", "E120", "Water"})
	assert.Equal(t, []string{"Gelatin", "E120 (E120)"}, findings.Forbidden)
	assert.Equal(t, []string{}, findings.Ambiguous)
	assert.Equal(t, domain.VerdictForbidden, findings.Verdict)
}

func TestScan_ConcurrentRequests(t *testing.T) {
	ctx := context.Background()
	advisor := NewMockAdvisor("ok")
	svc := newTestScanService(t, NewMockCatalog(testProducts()...), advisor)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := svc.ScanByBarcode(ctx, "4600000000001", "key", "en", true)
			assert.NoError(t, err)
			assert.Equal(t, domain.OriginCatalogAndAdvisor, outcome.Origin)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, advisor.calls())
}
