package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/halalscan/backend/internal/domain"
)

// Record is one entry of the published products.json file
type Record struct {
	Barcode          string   `json:"barcode"`
	Name             string   `json:"name"`
	NameEn           string   `json:"nameEn"`
	Manufacturer     string   `json:"manufacturer"`
	Ingredients      []string `json:"ingredients"`
	HalalStatus      string   `json:"halalStatus"`
	HaramIngredients []string `json:"haramIngredients"`
	Boycott          bool     `json:"boycott"`
	BoycottStatus    bool     `json:"boycottStatus"` // legacy name of Boycott
	BoycottReason    string   `json:"boycottReason"`
}

// DecodeCatalog parses a products.json document into products
func DecodeCatalog(data []byte) ([]domain.Product, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to decode catalog: %v", domain.ErrCatalogUnavailable, err)
	}
	return MapRecords(records), nil
}

// MapRecords converts records to products. Records without a barcode are
// skipped and the first record wins on duplicate barcodes.
func MapRecords(records []Record) []domain.Product {
	products := make([]domain.Product, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for _, r := range records {
		product, ok := MapToProduct(r)
		if !ok {
			continue
		}
		if _, dup := seen[product.Barcode]; dup {
			continue
		}
		seen[product.Barcode] = struct{}{}
		products = append(products, product)
	}

	return products
}

// MapToProduct converts a single record. It reports false when the record has
// no usable barcode.
func MapToProduct(r Record) (domain.Product, bool) {
	barcode := strings.TrimSpace(r.Barcode)
	if barcode == "" {
		return domain.Product{}, false
	}

	return domain.Product{
		Barcode:              barcode,
		Name:                 strings.TrimSpace(r.Name),
		NameEn:               strings.TrimSpace(r.NameEn),
		Manufacturer:         strings.TrimSpace(r.Manufacturer),
		Ingredients:          cleanList(r.Ingredients),
		Status:               mapStatus(r.HalalStatus),
		ForbiddenIngredients: cleanList(r.HaramIngredients),
		Boycott:              r.Boycott || r.BoycottStatus,
		BoycottReason:        strings.TrimSpace(r.BoycottReason),
	}, true
}

// mapStatus returns an empty verdict for anything it does not recognize
func mapStatus(raw string) domain.Verdict {
	v := domain.Verdict(strings.ToLower(strings.TrimSpace(raw)))
	if !v.Valid() {
		return ""
	}
	return v
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
