package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/halalscan/backend/internal/domain"
)

// HealthPromptInput is what the health prompt is built from
type HealthPromptInput struct {
	Barcode  string
	Profile  domain.HealthProfile
	Product  *domain.Product
	Text     string
	HasImage bool
	Language string
	Now      time.Time
}

const healthInstructions = `Please provide in %s:

1. **Nutritional Analysis**: Estimate calories, sugar, fat, protein and sodium content.

2. **Allergy Alert**: Check whether ANY ingredient matches the user's allergies. This is critical, be thorough.

3. **Disease Considerations**: Give specific warnings based on the user's chronic diseases:
   - Diabetes: sugar and carbohydrate content
   - Hypertension: sodium content
   - Heart disease: saturated fat and cholesterol
   - Kidney disease: protein and potassium
   - Any other listed condition: the relevant nutritional warnings

4. **Personalized Recommendation**: One clear verdict:
   - "Healthy for you": safe and recommended
   - "Use with caution": limit consumption, explain why
   - "Not recommended": potentially harmful, explain why

5. **Tip**: One actionable health tip related to this product.

Be specific, accurate and compassionate. Address the user by name.`

// BuildHealthPrompt renders the nutritionist prompt for one person and product.
// The output depends only on the input; Now fixes the age calculation.
func BuildHealthPrompt(in HealthPromptInput) string {
	var b strings.Builder

	b.WriteString("You are a professional nutritionist AI assistant. Analyze this food product for a specific person and provide personalized health advice.\n\n")

	p := in.Profile
	b.WriteString("User health profile:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orDefault(p.Name, "User"))
	if age, ok := p.Age(in.Now); ok {
		fmt.Fprintf(&b, "- Age: %d years\n", age)
	} else {
		b.WriteString("- Age: unknown\n")
	}
	fmt.Fprintf(&b, "- Height: %s cm\n", formatMeasure(p.HeightCm))
	fmt.Fprintf(&b, "- Weight: %s kg\n", formatMeasure(p.WeightKg))
	if bmi, ok := p.BMI(); ok {
		fmt.Fprintf(&b, "- BMI: %.1f\n", bmi)
	} else {
		b.WriteString("- BMI: unknown\n")
	}
	fmt.Fprintf(&b, "- Chronic diseases: %s\n", joinOrNone(p.ChronicDiseases))
	fmt.Fprintf(&b, "- Allergies: %s\n", joinOrNone(p.Allergies))

	b.WriteString("\nProduct information:\n")
	if in.Barcode != "" {
		fmt.Fprintf(&b, "Barcode: %s\n", in.Barcode)
	}
	if prod := in.Product; prod != nil {
		fmt.Fprintf(&b, "Product: %s, Manufacturer: %s\n", prod.Name, prod.Manufacturer)
		if len(prod.Ingredients) > 0 {
			fmt.Fprintf(&b, "Ingredients: %s\n", strings.Join(prod.Ingredients, ", "))
		}
	}
	if in.Text != "" {
		fmt.Fprintf(&b, "%s\n", in.Text)
	}
	if in.HasImage {
		b.WriteString("A photo of the product is attached. Read the name and ingredient list from it.\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, healthInstructions, languageName(in.Language))

	return b.String()
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func formatMeasure(v float64) string {
	if v <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%g", v)
}

func joinOrNone(items []string) string {
	var kept []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return "None reported"
	}
	return strings.Join(kept, ", ")
}
