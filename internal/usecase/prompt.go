package usecase

import (
	"fmt"
	"strings"

	"github.com/halalscan/backend/internal/domain"
)

// PromptInput is everything known locally about a product before the advisor runs
type PromptInput struct {
	Barcode  string
	Product  *domain.Product
	Findings *domain.LocalFindings
	Text     string
	HasImage bool
	Language string
}

const analysisInstructions = `Provide a detailed analysis in %s covering:

1. **Halal Status**: Is this product halal, haram, or doubtful? Explain why.
   - List each suspicious ingredient and explain its origin (animal or plant).
   - For E-numbers, explain what they are and whether they are typically animal-derived.

2. **Boycott Status**: Check whether the manufacturer or its parent company is on consumer boycott lists.
   - If boycotted, explain the specific connection.
   - If not, state this clearly.

3. **Final Verdict**: A clear recommendation.

Be accurate. If you are unsure about an ingredient, call it "doubtful" and explain why instead of guessing.`

// BuildPrompt renders the advisor prompt. The output depends only on the input.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("You are an expert Islamic food analyst. Analyze this product for Muslim consumers.\n\n")

	if in.Barcode != "" {
		fmt.Fprintf(&b, "Barcode: %s\n", in.Barcode)
	}

	if p := in.Product; p != nil {
		fmt.Fprintf(&b, "Known product: %s, Manufacturer: %s", p.Name, p.Manufacturer)
		if len(p.Ingredients) > 0 {
			fmt.Fprintf(&b, ", Ingredients: %s", strings.Join(p.Ingredients, ", "))
		}
		b.WriteString("\n")
		if p.Boycott {
			b.WriteString("Catalog boycott flag: yes")
			if p.BoycottReason != "" {
				fmt.Fprintf(&b, " (%s)", p.BoycottReason)
			}
			b.WriteString("\n")
		}
	}

	if f := in.Findings; f != nil {
		if len(f.Forbidden) > 0 {
			fmt.Fprintf(&b, "\nLocal database flagged these HARAM ingredients: %s\n", strings.Join(f.Forbidden, ", "))
		}
		if len(f.Ambiguous) > 0 {
			fmt.Fprintf(&b, "Local database flagged these DOUBTFUL ingredients: %s\n", strings.Join(f.Ambiguous, ", "))
		}
	}

	if in.Text != "" {
		fmt.Fprintf(&b, "\nUser description of the product:\n%s\n", in.Text)
	}

	if in.HasImage {
		b.WriteString("\nA photo of the product packaging is attached. Read the name, manufacturer and ingredient list from it.\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, analysisInstructions, languageName(in.Language))

	return b.String()
}

func languageName(tag string) string {
	if name, ok := domain.LanguageNames[tag]; ok {
		return name + " language"
	}
	return domain.LanguageNames[domain.LanguageRussian] + " language"
}
