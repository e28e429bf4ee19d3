package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halalscan/backend/internal/domain"
	"github.com/halalscan/backend/internal/infrastructure/taxonomy"
)

func newDefaultTaxonomy(t *testing.T) *IngredientTaxonomy {
	t.Helper()

	rules, err := taxonomy.Default()
	require.NoError(t, err)

	tax, err := NewIngredientTaxonomy(rules)
	require.NoError(t, err)

	return tax
}

func TestNewIngredientTaxonomy(t *testing.T) {
	t.Run("rejects nil rules", func(t *testing.T) {
		_, err := NewIngredientTaxonomy(nil)
		assert.ErrorIs(t, err, domain.ErrInvalidTaxonomy)
	})

	t.Run("rejects code in both tables", func(t *testing.T) {
		_, err := NewIngredientTaxonomy(&domain.TaxonomyRules{
			ForbiddenCodes: []string{"e120"},
			AmbiguousCodes: []string{"E120"},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTaxonomy)
	})

	t.Run("accepts empty rules", func(t *testing.T) {
		tax, err := NewIngredientTaxonomy(&domain.TaxonomyRules{})
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictClean, tax.Classify("pork").Verdict)
	})
}

func TestIngredientTaxonomy_Classify(t *testing.T) {
	tax := newDefaultTaxonomy(t)

	tests := []struct {
		name         string
		ingredient   string
		wantVerdict  domain.Verdict
		wantStage    string
		wantOutcome  StageOutcome
		wantEvidence []string
	}{
		{
			name:        "exact term",
			ingredient:  "pork",
			wantVerdict: domain.VerdictForbidden,
			wantStage:   StageExactTerm,
			wantOutcome: StageMatched,
		},
		{
			name:        "exact term ignores case and surrounding whitespace",
			ingredient:  "  Pork  ",
			wantVerdict: domain.VerdictForbidden,
			wantStage:   StageExactTerm,
			wantOutcome: StageMatched,
		},
		{
			name:        "exact term in russian",
			ingredient:  "Свинина",
			wantVerdict: domain.VerdictForbidden,
			wantStage:   StageExactTerm,
			wantOutcome: StageMatched,
		},
		{
			name:         "always forbidden code",
			ingredient:   "E120",
			wantVerdict:  domain.VerdictForbidden,
			wantStage:    StageCodedAdditive,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"E120"},
		},
		{
			name:         "ambiguous code keeps literal casing",
			ingredient:   "emulsifier e471",
			wantVerdict:  domain.VerdictAmbiguous,
			wantStage:    StageCodedAdditive,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"e471"},
		},
		{
			name:         "code with letter suffix",
			ingredient:   "E472e",
			wantVerdict:  domain.VerdictAmbiguous,
			wantStage:    StageCodedAdditive,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"E472e"},
		},
		{
			name:         "additive code suppresses fragment matching",
			ingredient:   "contains E471 and pork fat",
			wantVerdict:  domain.VerdictAmbiguous,
			wantStage:    StageCodedAdditive,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"E471"},
		},
		{
			name:        "unknown code is clean and still suppresses fragments",
			ingredient:  "E999 stabilizer",
			wantVerdict: domain.VerdictClean,
			wantStage:   StageCodedAdditive,
			wantOutcome: StageSuppressed,
		},
		{
			name:        "unknown code hides forbidden fragment",
			ingredient:  "E999 gelatin",
			wantVerdict: domain.VerdictClean,
			wantStage:   StageCodedAdditive,
			wantOutcome: StageSuppressed,
		},
		{
			name:         "forbidden code wins over ambiguous code in one label",
			ingredient:   "E471, E120",
			wantVerdict:  domain.VerdictForbidden,
			wantStage:    StageCodedAdditive,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"E120"},
		},
		{
			name:         "fragment",
			ingredient:   "Gelatin",
			wantVerdict:  domain.VerdictForbidden,
			wantStage:    StageFragment,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"gelatin"},
		},
		{
			name:         "fragment inside longer label",
			ingredient:   "Beef tallow (refined)",
			wantVerdict:  domain.VerdictForbidden,
			wantStage:    StageFragment,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"beef tallow"},
		},
		{
			name:         "weight suffix is not an additive code",
			ingredient:   "Lard100g",
			wantVerdict:  domain.VerdictForbidden,
			wantStage:    StageFragment,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"lard"},
		},
		{
			name:         "grade marking is not an additive code",
			ingredient:   "pork fat (grade A100)",
			wantVerdict:  domain.VerdictForbidden,
			wantStage:    StageFragment,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"pork"},
		},
		{
			name:         "type marking is not an additive code",
			ingredient:   "gelatin (type B250)",
			wantVerdict:  domain.VerdictForbidden,
			wantStage:    StageFragment,
			wantOutcome:  StageMatched,
			wantEvidence: []string{"gelatin"},
		},
		{
			name:        "clean",
			ingredient:  "Wheat flour",
			wantVerdict: domain.VerdictClean,
			wantOutcome: StageNoMatch,
		},
		{
			name:        "empty label is clean",
			ingredient:  "",
			wantVerdict: domain.VerdictClean,
			wantOutcome: StageNoMatch,
		},
		{
			name:        "whitespace only is clean",
			ingredient:  "   ",
			wantVerdict: domain.VerdictClean,
			wantOutcome: StageNoMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tax.Classify(tt.ingredient)

			assert.Equal(t, tt.wantVerdict, got.Verdict)
			assert.Equal(t, tt.wantStage, got.Stage)
			assert.Equal(t, tt.wantOutcome, got.Outcome)
			assert.Equal(t, tt.wantEvidence, got.Evidence)
		})
	}
}

func TestIngredientTaxonomy_CodePrefixes(t *testing.T) {
	t.Run("prefix letters come from the code tables", func(t *testing.T) {
		tax, err := NewIngredientTaxonomy(&domain.TaxonomyRules{
			ForbiddenCodes: []string{"x123"},
			AmbiguousCodes: []string{"E471"},
			Fragments:      []string{"pork"},
		})
		require.NoError(t, err)

		got := tax.Classify("X123 colour")
		assert.Equal(t, domain.VerdictForbidden, got.Verdict)
		assert.Equal(t, []string{"X123"}, got.Evidence)

		got = tax.Classify("pork (lot B250)")
		assert.Equal(t, StageFragment, got.Stage)
		assert.Equal(t, domain.VerdictForbidden, got.Verdict)
	})

	t.Run("no codes disables the coded stage", func(t *testing.T) {
		tax, err := NewIngredientTaxonomy(&domain.TaxonomyRules{Fragments: []string{"pork"}})
		require.NoError(t, err)

		got := tax.Classify("E999 pork")
		assert.Equal(t, StageFragment, got.Stage)
		assert.Equal(t, domain.VerdictForbidden, got.Verdict)
	})
}

func TestIngredientTaxonomy_CaseInsensitive(t *testing.T) {
	tax := newDefaultTaxonomy(t)

	for _, label := range []string{"  Pork  ", "pork", "PORK"} {
		assert.Equal(t, domain.VerdictForbidden, tax.Classify(label).Verdict, label)
	}
}

func TestStageOutcome_String(t *testing.T) {
	assert.Equal(t, "matched", StageMatched.String())
	assert.Equal(t, "suppressed", StageSuppressed.String())
	assert.Equal(t, "no_match", StageNoMatch.String())
}
