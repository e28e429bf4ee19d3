package domain

import (
	"math"
	"strings"
	"time"
)

// HealthProfile describes the person a health analysis is written for. It is
// supplied with each request; nothing is stored.
type HealthProfile struct {
	Name            string   `json:"name"`
	HeightCm        float64  `json:"height"`
	WeightKg        float64  `json:"weight"`
	DateOfBirth     string   `json:"dateOfBirth"`
	ChronicDiseases []string `json:"chronicDiseases"`
	Allergies       []string `json:"allergies"`
}

// Age returns the age in whole years at now. DateOfBirth may be a date
// (2006-01-02) or an RFC 3339 timestamp.
func (p HealthProfile) Age(now time.Time) (int, bool) {
	dob := strings.TrimSpace(p.DateOfBirth)
	if dob == "" {
		return 0, false
	}

	born, err := time.Parse("2006-01-02", dob)
	if err != nil {
		born, err = time.Parse(time.RFC3339, dob)
		if err != nil {
			return 0, false
		}
	}
	if born.After(now) {
		return 0, false
	}

	years := now.Sub(born).Hours() / (365.25 * 24)
	return int(math.Floor(years)), true
}

// BMI returns weight / height² with height in metres
func (p HealthProfile) BMI() (float64, bool) {
	if p.HeightCm <= 0 || p.WeightKg <= 0 {
		return 0, false
	}
	metres := p.HeightCm / 100
	return p.WeightKg / (metres * metres), true
}

// HealthRequest asks for a personalized health analysis of one product
type HealthRequest struct {
	Barcode    string
	Text       string
	Image      []byte
	MimeType   string
	Profile    HealthProfile
	Credential string
	Language   string
	Model      string
}

// HealthOutcome is the result of a health analysis. Analysis is nil when the
// advisor failed; Note then says why.
type HealthOutcome struct {
	Product        *Product `json:"product"`
	Analysis       *string  `json:"analysis"`
	AllergyMatches []string `json:"allergyMatches"`
	Note           string   `json:"note,omitempty"`
}
