// Package taxonomy loads the ingredient rule sets used by the classifier.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/halalscan/backend/internal/domain"
)

//go:embed default.yaml
var defaultRules []byte

// Default returns the embedded rule set
func Default() (*domain.TaxonomyRules, error) {
	return Parse(defaultRules)
}

// Load reads a rule set from a YAML file. An empty path yields the default.
func Load(path string) (*domain.TaxonomyRules, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and normalizes a YAML rule set
func Parse(data []byte) (*domain.TaxonomyRules, error) {
	var rules domain.TaxonomyRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidTaxonomy, err)
	}

	rules.ExactTerms = normalizeEntries(rules.ExactTerms)
	rules.ForbiddenCodes = normalizeEntries(rules.ForbiddenCodes)
	rules.AmbiguousCodes = normalizeEntries(rules.AmbiguousCodes)
	rules.Fragments = normalizeEntries(rules.Fragments)

	if err := validate(&rules); err != nil {
		return nil, err
	}

	return &rules, nil
}

// normalizeEntries lower-cases and trims entries, dropping empties and duplicates
func normalizeEntries(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	result := make([]string, 0, len(entries))

	for _, entry := range entries {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}

	return result
}

func validate(rules *domain.TaxonomyRules) error {
	forbidden := make(map[string]struct{}, len(rules.ForbiddenCodes))
	for _, code := range rules.ForbiddenCodes {
		forbidden[code] = struct{}{}
	}

	for _, code := range rules.AmbiguousCodes {
		if _, ok := forbidden[code]; ok {
			return fmt.Errorf("%w: code %q is listed as both forbidden and ambiguous", domain.ErrInvalidTaxonomy, code)
		}
	}

	return nil
}
