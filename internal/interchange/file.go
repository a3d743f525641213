// Package interchange reads and writes the catalog export file used for
// manual device-to-device transfer, and imports product lists from CSV.
package interchange

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/xelth-com/pantrysync/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FormatVersion is written into every export file.
const FormatVersion = "2.0"

// ValidationError names the fields or columns that made an input unusable.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid import: " + e.Reason
	}
	return fmt.Sprintf("invalid import: %s: %s", e.Reason, strings.Join(e.Fields, ", "))
}

// File is the export document.
type File struct {
	Timestamp  string     `json:"timestamp"`
	Device     string     `json:"device"`
	Version    string     `json:"version"`
	Data       *Data      `json:"data"`
	Statistics Statistics `json:"statistics"`
}

// Data carries the catalog and the feature records passed through untouched.
type Data struct {
	AllProducts    *[]models.Product   `json:"allProducts"`
	StandardItems  jsoniter.RawMessage `json:"standardItems,omitempty"`
	Categories     []models.Category   `json:"categories,omitempty"`
	Recipes        jsoniter.RawMessage `json:"recipes,omitempty"`
	MealPlan       jsoniter.RawMessage `json:"mealPlan,omitempty"`
	CustomSettings jsoniter.RawMessage `json:"customSettings,omitempty"`
}

// Statistics summarizes an export for the person receiving the file.
type Statistics struct {
	TotalProducts int `json:"totalProducts"`
	ShoppingItems int `json:"shoppingItems"`
	PantryItems   int `json:"pantryItems"`
	Completed     int `json:"completed"`
	Categories    int `json:"categories"`
}

// StatisticsOf counts products by view.
func StatisticsOf(products []models.Product, categories int) Statistics {
	st := Statistics{TotalProducts: len(products), Categories: categories}
	for _, p := range products {
		if p.InShopping {
			st.ShoppingItems++
		}
		if p.InPantry {
			st.PantryItems++
		}
		if p.Completed {
			st.Completed++
		}
	}
	return st
}

// Encode renders f as indented JSON.
func Encode(f *File) ([]byte, error) {
	out, err := json.MarshalIndent(f, "", "  ")
	return out, errors.Wrap(err, "encode export file")
}

// Decode parses and validates an export file. The product list is required;
// the feature records are optional.
func Decode(raw []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, &ValidationError{Reason: "file is not valid JSON (" + err.Error() + ")"}
	}
	if f.Data == nil {
		return nil, &ValidationError{Fields: []string{"data"}, Reason: "missing field"}
	}
	if f.Data.AllProducts == nil {
		return nil, &ValidationError{Fields: []string{"data.allProducts"}, Reason: "missing field"}
	}

	var bad []string
	for i, p := range *f.Data.AllProducts {
		if strings.TrimSpace(p.ID) == "" {
			bad = append(bad, fmt.Sprintf("data.allProducts[%d].id", i))
		}
		if strings.TrimSpace(p.Name) == "" {
			bad = append(bad, fmt.Sprintf("data.allProducts[%d].name", i))
		}
	}
	if len(bad) > 0 {
		return nil, &ValidationError{Fields: bad, Reason: "products without identity"}
	}
	return &f, nil
}

// Products returns the decoded product list.
func (f *File) Products() []models.Product {
	if f.Data == nil || f.Data.AllProducts == nil {
		return nil
	}
	return *f.Data.AllProducts
}
