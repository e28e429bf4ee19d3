package usecase

import (
	"regexp"
	"strings"
	"unicode"
)

// Compiled patterns for label cleanup
var (
	// Matches a leading "Ingredients:" style heading in English or Russian
	labelHeadingPattern = regexp.MustCompile(`(?i)^\s*(ingredients|ingredient list|состав)\s*[:\-]\s*`)

	// Matches percentages like "20%" or "2,5 %"
	percentagePattern = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)

	// Multiple spaces cleanup
	labelSpacePattern = regexp.MustCompile(`\s+`)
)

// ParseIngredientLabel splits a printed ingredient label into individual
// ingredients. Separators inside parentheses and decimal commas are kept, so
// "emulsifier (E471, E322)" stays one ingredient.
func ParseIngredientLabel(label string) []string {
	label = labelHeadingPattern.ReplaceAllString(label, "")
	if strings.TrimSpace(label) == "" {
		return []string{}
	}

	parts := splitTopLevel(label)
	ingredients := make([]string, 0, len(parts))

	for _, part := range parts {
		cleaned := percentagePattern.ReplaceAllString(part, " ")
		cleaned = labelSpacePattern.ReplaceAllString(cleaned, " ")
		cleaned = strings.Trim(cleaned, " \t\r\n.,;:-*")
		if cleaned != "" {
			ingredients = append(ingredients, cleaned)
		}
	}

	return ingredients
}

// splitTopLevel splits on commas and semicolons outside any bracket pair
func splitTopLevel(s string) []string {
	runes := []rune(s)
	var parts []string
	var current strings.Builder
	depth := 0

	for i, r := range runes {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case ';', '\n':
			if depth == 0 {
				parts = append(parts, current.String())
				current.Reset()
				continue
			}
		case ',':
			if depth == 0 && !isDecimalComma(runes, i) {
				parts = append(parts, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteRune(r)
	}

	return append(parts, current.String())
}

func isDecimalComma(runes []rune, i int) bool {
	return i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}
