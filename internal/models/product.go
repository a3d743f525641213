package models

import (
	"strings"
	"time"
)

// Product flag names, shared by the HTTP layer, the store and the sync payloads.
const (
	FlagInShopping = "inShopping"
	FlagInPantry   = "inPantry"
	FlagInStock    = "inStock"
	FlagInSeason   = "inSeason"
	FlagCompleted  = "completed"
)

// DefaultCategory is used when a product arrives without a known category.
const DefaultCategory = "cat_other"

// Product is the single catalog entity. Shopping and pantry lists are
// filters over these flags, never separate collections.
// Convention: Go PascalCase -> JSON camelCase (interchange + remote documents)
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	InShopping  bool   `json:"inShopping"`
	InPantry    bool   `json:"inPantry"`
	InStock     bool   `json:"inStock"`
	InSeason    bool   `json:"inSeason"`
	Completed   bool   `json:"completed"`
	RecipeCount int    `json:"recipeCount"`
	DateAdded   string `json:"dateAdded"`
	Timestamp   string `json:"timestamp"`
}

// NormalizedName is the key used for duplicate detection.
func (p Product) NormalizedName() string { return NormalizeName(p.Name) }

// Flag returns the value of a named boolean flag.
func (p Product) Flag(name string) (bool, bool) {
	switch name {
	case FlagInShopping:
		return p.InShopping, true
	case FlagInPantry:
		return p.InPantry, true
	case FlagInStock:
		return p.InStock, true
	case FlagInSeason:
		return p.InSeason, true
	case FlagCompleted:
		return p.Completed, true
	}
	return false, false
}

// ModifiedAt parses Timestamp, falling back to DateAdded. Zero when neither parses.
func (p Product) ModifiedAt() time.Time {
	for _, s := range []string{p.Timestamp, p.DateAdded} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NormalizeName lowercases and trims a product name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsFlag reports whether name is one of the product flags.
func IsFlag(name string) bool {
	_, ok := Product{}.Flag(name)
	return ok
}

// Now returns the timestamp format used on products.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
