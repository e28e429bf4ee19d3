package usecase

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/halalscan/backend/internal/domain"
)

// additiveCodePattern builds the token pattern for coded additives such as
// E471 or e472e. Only prefix letters that start a code in the tables count, so
// with E-number tables "A100" or "Lard100g" is not a code token.
func additiveCodePattern(codeSets ...map[string]struct{}) *regexp.Regexp {
	letters := make(map[rune]struct{})
	for _, set := range codeSets {
		for code := range set {
			first := []rune(code)[0]
			if first >= 'a' && first <= 'z' {
				letters[first] = struct{}{}
			}
		}
	}
	if len(letters) == 0 {
		return nil
	}

	class := make([]rune, 0, len(letters))
	for letter := range letters {
		class = append(class, letter)
	}
	sort.Slice(class, func(i, j int) bool { return class[i] < class[j] })

	return regexp.MustCompile(`(?i)[` + string(class) + `]\d{3}[a-z]?`)
}

// Stage names, in evaluation order
const (
	StageExactTerm     = "exact_term"
	StageCodedAdditive = "coded_additive"
	StageFragment      = "fragment"
)

// StageOutcome is the result kind of a single matcher stage
type StageOutcome int

const (
	// StageNoMatch lets evaluation continue with the next stage
	StageNoMatch StageOutcome = iota
	// StageMatched stops evaluation with the stage's verdict
	StageMatched
	// StageSuppressed stops evaluation with a clean verdict. The coded additive
	// stage returns it when an additive-shaped token is present but none of the
	// tokens is in either code table, so fragment matching never runs for
	// that ingredient.
	StageSuppressed
)

func (o StageOutcome) String() string {
	switch o {
	case StageMatched:
		return "matched"
	case StageSuppressed:
		return "suppressed"
	default:
		return "no_match"
	}
}

// MarshalText renders the outcome by name in JSON output
func (o StageOutcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// StageResult is what a stage reports for one ingredient
type StageResult struct {
	Outcome  StageOutcome
	Verdict  domain.Verdict
	Evidence []string
}

// Match is the final verdict for one ingredient
type Match struct {
	Verdict domain.Verdict `json:"verdict"`
	// Stage is the stage that decided, empty when every stage passed
	Stage   string       `json:"stage,omitempty"`
	Outcome StageOutcome `json:"outcome"`
	// Evidence holds the literal codes or the fragment that triggered the verdict
	Evidence []string `json:"evidence,omitempty"`
}

type ingredientLabel struct {
	trimmed string
	lower   string
}

type matchStage interface {
	name() string
	match(label ingredientLabel) StageResult
}

// IngredientTaxonomy classifies single ingredient labels against a read-only
// rule set. It is safe for concurrent use.
type IngredientTaxonomy struct {
	stages []matchStage
}

// NewIngredientTaxonomy builds the ordered matcher stages from a rule set
func NewIngredientTaxonomy(rules *domain.TaxonomyRules) (*IngredientTaxonomy, error) {
	if rules == nil {
		return nil, fmt.Errorf("%w: nil rule set", domain.ErrInvalidTaxonomy)
	}

	exact := exactTermStage{terms: toSet(rules.ExactTerms)}
	coded := codedAdditiveStage{
		forbidden: toSet(rules.ForbiddenCodes),
		ambiguous: toSet(rules.AmbiguousCodes),
	}
	for code := range coded.forbidden {
		if _, ok := coded.ambiguous[code]; ok {
			return nil, fmt.Errorf("%w: code %q is both forbidden and ambiguous", domain.ErrInvalidTaxonomy, code)
		}
	}
	coded.pattern = additiveCodePattern(coded.forbidden, coded.ambiguous)
	fragments := fragmentStage{fragments: lowerAll(rules.Fragments)}

	return &IngredientTaxonomy{
		stages: []matchStage{exact, coded, fragments},
	}, nil
}

// Classify runs the stages in order and returns the first decisive result
func (t *IngredientTaxonomy) Classify(ingredient string) Match {
	trimmed := strings.TrimSpace(ingredient)
	label := ingredientLabel{trimmed: trimmed, lower: strings.ToLower(trimmed)}

	for _, stage := range t.stages {
		result := stage.match(label)
		switch result.Outcome {
		case StageMatched:
			return Match{
				Verdict:  result.Verdict,
				Stage:    stage.name(),
				Outcome:  StageMatched,
				Evidence: result.Evidence,
			}
		case StageSuppressed:
			return Match{
				Verdict: domain.VerdictClean,
				Stage:   stage.name(),
				Outcome: StageSuppressed,
			}
		}
	}

	return Match{Verdict: domain.VerdictClean, Outcome: StageNoMatch}
}

type exactTermStage struct {
	terms map[string]struct{}
}

func (exactTermStage) name() string { return StageExactTerm }

func (s exactTermStage) match(label ingredientLabel) StageResult {
	if _, ok := s.terms[label.lower]; ok {
		return StageResult{Outcome: StageMatched, Verdict: domain.VerdictForbidden}
	}
	return StageResult{Outcome: StageNoMatch}
}

type codedAdditiveStage struct {
	pattern   *regexp.Regexp
	forbidden map[string]struct{}
	ambiguous map[string]struct{}
}

func (codedAdditiveStage) name() string { return StageCodedAdditive }

// match resolves every additive token in the label. A label holding both kinds
// of code is forbidden; only the forbidden codes are reported then.
func (s codedAdditiveStage) match(label ingredientLabel) StageResult {
	if s.pattern == nil {
		return StageResult{Outcome: StageNoMatch}
	}
	tokens := s.pattern.FindAllString(label.trimmed, -1)
	if len(tokens) == 0 {
		return StageResult{Outcome: StageNoMatch}
	}

	var forbidden, ambiguous []string
	for _, token := range tokens {
		code := strings.ToLower(token)
		if _, ok := s.forbidden[code]; ok {
			forbidden = append(forbidden, token)
		} else if _, ok := s.ambiguous[code]; ok {
			ambiguous = append(ambiguous, token)
		}
	}

	switch {
	case len(forbidden) > 0:
		return StageResult{Outcome: StageMatched, Verdict: domain.VerdictForbidden, Evidence: forbidden}
	case len(ambiguous) > 0:
		return StageResult{Outcome: StageMatched, Verdict: domain.VerdictAmbiguous, Evidence: ambiguous}
	default:
		return StageResult{Outcome: StageSuppressed, Verdict: domain.VerdictClean}
	}
}

type fragmentStage struct {
	fragments []string
}

func (fragmentStage) name() string { return StageFragment }

func (s fragmentStage) match(label ingredientLabel) StageResult {
	for _, fragment := range s.fragments {
		if strings.Contains(label.lower, fragment) {
			return StageResult{
				Outcome:  StageMatched,
				Verdict:  domain.VerdictForbidden,
				Evidence: []string{fragment},
			}
		}
	}
	return StageResult{Outcome: StageNoMatch}
}

func toSet(entries []string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func lowerAll(entries []string) []string {
	result := make([]string, 0, len(entries))
	for _, entry := range entries {
		normalized := strings.ToLower(strings.TrimSpace(entry))
		if normalized != "" {
			result = append(result, normalized)
		}
	}
	return result
}
