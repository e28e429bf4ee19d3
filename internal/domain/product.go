package domain

// Verdict is the compliance status of a single ingredient or a whole product
type Verdict string

const (
	VerdictClean     Verdict = "halal"
	VerdictForbidden Verdict = "haram"
	VerdictAmbiguous Verdict = "doubtful"
)

// Valid reports whether v is one of the known verdicts
func (v Verdict) Valid() bool {
	switch v {
	case VerdictClean, VerdictForbidden, VerdictAmbiguous:
		return true
	}
	return false
}

// Product is a catalog entry keyed by barcode. Products are read-only once
// loaded; nothing in the service mutates them.
type Product struct {
	Barcode              string   `json:"barcode"`
	Name                 string   `json:"name"`
	NameEn               string   `json:"nameEn,omitempty"`
	Manufacturer         string   `json:"manufacturer"`
	Ingredients          []string `json:"ingredients"`
	Status               Verdict  `json:"halalStatus,omitempty"`
	ForbiddenIngredients []string `json:"haramIngredients"`
	Boycott              bool     `json:"boycott"`
	BoycottReason        string   `json:"boycottReason,omitempty"`
}

// TaxonomyRules is the raw rule data the ingredient taxonomy is built from
type TaxonomyRules struct {
	ExactTerms     []string `yaml:"exact_terms" json:"exactTerms"`
	ForbiddenCodes []string `yaml:"forbidden_codes" json:"forbiddenCodes"`
	AmbiguousCodes []string `yaml:"ambiguous_codes" json:"ambiguousCodes"`
	Fragments      []string `yaml:"fragments" json:"fragments"`
}

// ClassificationResult partitions an ingredient list into forbidden and
// ambiguous entries. Clean ingredients appear in neither list.
type ClassificationResult struct {
	Forbidden []string `json:"forbidden"`
	Ambiguous []string `json:"ambiguous"`
}

// Verdict summarizes the classification: forbidden wins over ambiguous
func (r ClassificationResult) Verdict() Verdict {
	switch {
	case len(r.Forbidden) > 0:
		return VerdictForbidden
	case len(r.Ambiguous) > 0:
		return VerdictAmbiguous
	default:
		return VerdictClean
	}
}

// LocalFindings is the classifier evidence attached to a scan outcome
type LocalFindings struct {
	Forbidden []string `json:"forbidden"`
	Ambiguous []string `json:"ambiguous"`
	Verdict   Verdict  `json:"verdict"`
}

// NewLocalFindings wraps a classification result with its summary verdict
func NewLocalFindings(r ClassificationResult) *LocalFindings {
	return &LocalFindings{
		Forbidden: r.Forbidden,
		Ambiguous: r.Ambiguous,
		Verdict:   r.Verdict(),
	}
}
