package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/halalscan/backend/internal/domain"
)

func TestBuildHealthPrompt(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	t.Run("full profile and catalog product", func(t *testing.T) {
		prompt := BuildHealthPrompt(HealthPromptInput{
			Barcode: "4600000000002",
			Profile: domain.HealthProfile{
				Name:            "Amina",
				HeightCm:        165,
				WeightKg:        60,
				DateOfBirth:     "1990-10-16",
				ChronicDiseases: []string{"diabetes", " hypertension "},
				Allergies:       []string{"wheat"},
			},
			Product:  &domain.Product{Name: "Crackers", Manufacturer: "Bakery", Ingredients: []string{"Wheat flour", "Salt"}},
			Language: domain.LanguageEnglish,
			Now:      now,
		})

		assert.Contains(t, prompt, "- Name: Amina")
		assert.Contains(t, prompt, "- Age: 35 years")
		assert.Contains(t, prompt, "- Height: 165 cm")
		assert.Contains(t, prompt, "- Weight: 60 kg")
		assert.Contains(t, prompt, "- BMI: 22.0")
		assert.Contains(t, prompt, "- Chronic diseases: diabetes, hypertension")
		assert.Contains(t, prompt, "- Allergies: wheat")
		assert.Contains(t, prompt, "Barcode: 4600000000002")
		assert.Contains(t, prompt, "Product: Crackers, Manufacturer: Bakery")
		assert.Contains(t, prompt, "Ingredients: Wheat flour, Salt")
		assert.Contains(t, prompt, "Please provide in English language:")
		assert.NotContains(t, prompt, "photo")
	})

	t.Run("empty profile falls back to unknowns", func(t *testing.T) {
		prompt := BuildHealthPrompt(HealthPromptInput{
			Text:     "Chocolate bar with hazelnuts",
			HasImage: true,
			Language: "xx",
			Now:      now,
		})

		assert.Contains(t, prompt, "- Name: User")
		assert.Contains(t, prompt, "- Age: unknown")
		assert.Contains(t, prompt, "- Height: unknown cm")
		assert.Contains(t, prompt, "- BMI: unknown")
		assert.Contains(t, prompt, "- Chronic diseases: None reported")
		assert.Contains(t, prompt, "- Allergies: None reported")
		assert.Contains(t, prompt, "Chocolate bar with hazelnuts")
		assert.Contains(t, prompt, "A photo of the product is attached")
		assert.Contains(t, prompt, "Please provide in Russian language:")
	})

	t.Run("deterministic", func(t *testing.T) {
		in := HealthPromptInput{Text: "Bread", Profile: domain.HealthProfile{Name: "Omar"}, Now: now}
		assert.Equal(t, BuildHealthPrompt(in), BuildHealthPrompt(in))
	})
}

func TestHealthProfile_Age(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		dob     string
		wantAge int
		wantOK  bool
	}{
		{name: "date", dob: "2000-01-01", wantAge: 26, wantOK: true},
		{name: "day before birthday", dob: "1990-10-16", wantAge: 35, wantOK: true},
		{name: "timestamp", dob: "2010-05-01T00:00:00Z", wantAge: 16, wantOK: true},
		{name: "empty", dob: ""},
		{name: "garbage", dob: "yesterday"},
		{name: "future", dob: "2030-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			age, ok := domain.HealthProfile{DateOfBirth: tt.dob}.Age(now)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantAge, age)
		})
	}
}

func TestHealthProfile_BMI(t *testing.T) {
	bmi, ok := domain.HealthProfile{HeightCm: 180, WeightKg: 81}.BMI()
	assert.True(t, ok)
	assert.InDelta(t, 25.0, bmi, 0.01)

	_, ok = domain.HealthProfile{WeightKg: 81}.BMI()
	assert.False(t, ok)
}
