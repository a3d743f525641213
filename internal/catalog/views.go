package catalog

import (
	"fmt"
	"sort"

	"github.com/xelth-com/pantrysync/internal/models"
)

// Views derives the shopping and pantry lists from the store on every call.
type Views struct {
	store *Store
}

// NewViews binds the filtered views to a store.
func NewViews(store *Store) *Views {
	return &Views{store: store}
}

// ShoppingStats summarizes the current shopping view.
type ShoppingStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Remaining int `json:"remaining"`
}

// CategoryGroup is one category section of a rendered list.
type CategoryGroup struct {
	Category string           `json:"category"`
	Items    []models.Product `json:"items"`
}

// ShoppingItems returns every product with inShopping set.
func (v *Views) ShoppingItems() []models.Product {
	return v.Filter(func(p models.Product) bool { return p.InShopping })
}

// PantryItems returns every product with inPantry set.
func (v *Views) PantryItems() []models.Product {
	return v.Filter(func(p models.Product) bool { return p.InPantry })
}

// Filter returns the products matching keep, in store order.
func (v *Views) Filter(keep func(models.Product) bool) []models.Product {
	var out []models.Product
	for _, p := range v.store.All() {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// ShoppingStats counts completed and remaining shopping items.
func (v *Views) ShoppingStats() ShoppingStats {
	var st ShoppingStats
	for _, p := range v.ShoppingItems() {
		st.Total++
		if p.Completed {
			st.Completed++
		}
	}
	st.Remaining = st.Total - st.Completed
	return st
}

// GroupByCategory splits items into category sections sorted by category key,
// keeping item order inside each section.
func GroupByCategory(items []models.Product) []CategoryGroup {
	idx := make(map[string]int)
	var groups []CategoryGroup
	for _, p := range items {
		i, ok := idx[p.Category]
		if !ok {
			i = len(groups)
			idx[p.Category] = i
			groups = append(groups, CategoryGroup{Category: p.Category})
		}
		groups[i].Items = append(groups[i].Items, p)
	}
	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Category < groups[b].Category })
	return groups
}

// CheckInvariants verifies id uniqueness, name uniqueness and that completed
// implies inShopping. It returns one error per violation.
func CheckInvariants(products []models.Product) []error {
	var errs []error
	ids := make(map[string]bool, len(products))
	names := make(map[string]string, len(products))
	for _, p := range products {
		if ids[p.ID] {
			errs = append(errs, fmt.Errorf("duplicate id %q", p.ID))
		}
		ids[p.ID] = true

		if other, ok := names[p.NormalizedName()]; ok {
			errs = append(errs, fmt.Errorf("duplicate name %q (ids %s, %s)", p.Name, other, p.ID))
		} else {
			names[p.NormalizedName()] = p.ID
		}

		if p.Completed && !p.InShopping {
			errs = append(errs, fmt.Errorf("product %q completed but not in shopping", p.ID))
		}
	}
	return errs
}
