package usecase

import (
	"fmt"
	"strings"

	"github.com/halalscan/backend/internal/domain"
)

// Classifier partitions ingredient lists using an IngredientTaxonomy
type Classifier struct {
	taxonomy *IngredientTaxonomy
}

// NewClassifier creates a classifier over the given taxonomy
func NewClassifier(taxonomy *IngredientTaxonomy) *Classifier {
	return &Classifier{taxonomy: taxonomy}
}

// Check classifies every ingredient independently. Both result lists keep the
// input order and are never nil. Additive matches are annotated with the codes
// exactly as written in the label, e.g. "E120 (E120)".
func (c *Classifier) Check(ingredients []string) domain.ClassificationResult {
	result := domain.ClassificationResult{
		Forbidden: []string{},
		Ambiguous: []string{},
	}

	for _, ingredient := range ingredients {
		match := c.taxonomy.Classify(ingredient)

		switch match.Verdict {
		case domain.VerdictForbidden:
			result.Forbidden = append(result.Forbidden, formatFinding(ingredient, match))
		case domain.VerdictAmbiguous:
			result.Ambiguous = append(result.Ambiguous, formatFinding(ingredient, match))
		}
	}

	return result
}

// Explain returns the per-ingredient matches, in input order
func (c *Classifier) Explain(ingredients []string) []Match {
	matches := make([]Match, len(ingredients))
	for i, ingredient := range ingredients {
		matches[i] = c.taxonomy.Classify(ingredient)
	}
	return matches
}

func formatFinding(ingredient string, match Match) string {
	label := strings.TrimSpace(ingredient)
	if match.Stage == StageCodedAdditive && len(match.Evidence) > 0 {
		return fmt.Sprintf("%s (%s)", label, strings.Join(match.Evidence, ", "))
	}
	return label
}
