package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/halalscan/backend/internal/domain"
)

// AnalyzeHealth asks the advisor for a health analysis written for the
// request's profile. A catalog hit adds the product's ingredients to the
// prompt and to the local allergy check. Advisor failures end up in Note;
// only invalid input is an error.
func (s *ScanService) AnalyzeHealth(ctx context.Context, request *domain.HealthRequest) (*domain.HealthOutcome, error) {
	req, err := s.normalizeHealth(request)
	if err != nil {
		return nil, err
	}

	product := s.lookup(ctx, req.Barcode)

	outcome := &domain.HealthOutcome{
		Product:        product,
		AllergyMatches: []string{},
	}
	if product != nil {
		outcome.AllergyMatches = MatchAllergies(product.Ingredients, req.Profile.Allergies)
	}

	if s.advisor == nil {
		outcome.Note = "Health analysis unavailable: no advisor is configured."
		return outcome, nil
	}

	prompt := BuildHealthPrompt(HealthPromptInput{
		Barcode:  req.Barcode,
		Profile:  req.Profile,
		Product:  product,
		Text:     req.Text,
		HasImage: len(req.Image) > 0,
		Language: req.Language,
		Now:      s.now(),
	})

	analysis, err := s.advisor.Assess(ctx, &domain.AdvisorRequest{
		Prompt:     prompt,
		Image:      req.Image,
		MimeType:   req.MimeType,
		Language:   req.Language,
		Credential: req.Credential,
		Model:      req.Model,
	})
	if err != nil {
		s.logger.Warn("health analysis failed",
			zap.String("barcode", req.Barcode),
			zap.String("kind", string(domain.AdvisorErrorKindOf(err))),
			zap.Error(err),
		)
		outcome.Note = healthNote(err)
		return outcome, nil
	}
	outcome.Analysis = &analysis

	s.logger.Info("health analysis resolved",
		zap.String("barcode", req.Barcode),
		zap.Bool("catalog_hit", product != nil),
		zap.Int("allergy_matches", len(outcome.AllergyMatches)),
	)

	return outcome, nil
}

func (s *ScanService) normalizeHealth(request *domain.HealthRequest) (*domain.HealthRequest, error) {
	if request == nil {
		return nil, domain.ErrInvalidRequest
	}

	var err error
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
	if req.Credential == "" {
		return nil, fmt.Errorf("%w: an API key is required for health analysis", domain.ErrInvalidRequest)
	}
	if len(req.Image) > 0 {
		if req.MimeType, err = s.checkImage(req.Image, req.MimeType); err != nil {
			return nil, err
		}
	}

	return &req, nil
}

// MatchAllergies returns the ingredients that contain any of the allergy
// terms, case-insensitively, in ingredient order
func MatchAllergies(ingredients, allergies []string) []string {
	terms := lowerAll(allergies)
	matches := []string{}
	for _, ingredient := range ingredients {
		lower := strings.ToLower(ingredient)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				matches = append(matches, ingredient)
				break
			}
		}
	}
	return matches
}

func healthNote(err error) string {
	var advErr *domain.AdvisorError
	if !errors.As(err, &advErr) {
		return "Health analysis failed."
	}
	switch advErr.Kind {
	case domain.AdvisorUnauthorized:
		return "Health analysis unavailable: the API key was rejected."
	case domain.AdvisorRateLimited:
		return "Health analysis unavailable: too many requests, try again later."
	case domain.AdvisorUnreachable:
		return "Health analysis unavailable: the service could not be reached."
	default:
		return "Health analysis failed."
	}
}
