package models

// Category is a simple key-value lookup referenced by Product.Category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// DefaultCategories is the built-in set offered on first run.
func DefaultCategories() []Category {
	return []Category{
		{ID: "cat_fruit", Name: "Fruit", Icon: "🍎"},
		{ID: "cat_vegetables", Name: "Vegetables", Icon: "🥕"},
		{ID: "cat_dairy", Name: "Dairy", Icon: "🥛"},
		{ID: "cat_bakery", Name: "Bakery", Icon: "🍞"},
		{ID: "cat_meat", Name: "Meat & Fish", Icon: "🥩"},
		{ID: "cat_pantry", Name: "Pantry", Icon: "🥫"},
		{ID: "cat_frozen", Name: "Frozen", Icon: "🧊"},
		{ID: "cat_household", Name: "Household", Icon: "🧽"},
		{ID: DefaultCategory, Name: "Other", Icon: "📦"},
	}
}
