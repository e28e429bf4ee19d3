package domain

// Supported response languages
const (
	LanguageEnglish = "en"
	LanguageRussian = "ru"
	LanguageArabic  = "ar"
)

// LanguageNames maps a language tag to the name used in advisor prompts
var LanguageNames = map[string]string{
	LanguageEnglish: "English",
	LanguageRussian: "Russian",
	LanguageArabic:  "Arabic",
}

// IsSupportedLanguage reports whether tag is one of en, ru, ar
func IsSupportedLanguage(tag string) bool {
	_, ok := LanguageNames[tag]
	return ok
}

// Origin tells which resolution paths contributed to a scan outcome
type Origin string

const (
	OriginCatalog           Origin = "catalog"
	OriginAdvisor           Origin = "advisor"
	OriginCatalogAndAdvisor Origin = "catalog+advisor"
)

// ScanRequest is the input of a single scan. At least one of Barcode, Text
// or Image must be set.
type ScanRequest struct {
	Barcode    string
	Text       string
	Image      []byte
	MimeType   string
	Credential string
	Language   string
	Model      string
	// Enrich asks for an advisor narrative even when the catalog has the product
	Enrich bool
}

// NarrativeOnly reports whether the request carries free text or an image
// but no barcode
func (r *ScanRequest) NarrativeOnly() bool {
	return r.Barcode == "" && (r.Text != "" || len(r.Image) > 0)
}

// ScanOutcome is the externally visible result of a scan
type ScanOutcome struct {
	Product       *Product       `json:"product"`
	Origin        Origin         `json:"origin"`
	Narrative     *string        `json:"narrative"`
	LocalFindings *LocalFindings `json:"localFindings"`
	Note          string         `json:"note,omitempty"`
	NoResults     bool           `json:"noResults"`
}

// AdvisorRequest is everything the advisor needs for one assessment
type AdvisorRequest struct {
	Prompt     string
	Image      []byte
	MimeType   string
	Language   string
	Credential string
	Model      string
}
