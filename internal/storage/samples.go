package storage

import "github.com/xelth-com/pantrysync/internal/models"

// SampleProducts is the first-run catalog.
func SampleProducts() []models.Product {
	const added = "2024-01-01T00:00:00Z"
	sample := func(id, name, category string, pantry, stock bool) models.Product {
		return models.Product{
			ID:        id,
			Name:      name,
			Category:  category,
			InPantry:  pantry,
			InStock:   stock,
			DateAdded: added,
			Timestamp: added,
		}
	}
	return []models.Product{
		sample("sample-milk", "Milk", "cat_dairy", true, true),
		sample("sample-bread", "Bread", "cat_bakery", true, false),
		sample("sample-eggs", "Eggs", "cat_dairy", true, true),
		sample("sample-bananas", "Bananas", "cat_fruit", false, false),
		sample("sample-rice", "Rice", "cat_pantry", true, true),
		sample("sample-tomatoes", "Tomatoes", "cat_vegetables", false, false),
	}
}
