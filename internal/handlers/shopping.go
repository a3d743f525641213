package handlers

import (
	"net/http"
	"strings"

	"github.com/xelth-com/pantrysync/internal/catalog"
)

func (r *Router) listShopping(w http.ResponseWriter, req *http.Request) {
	items := r.views.ShoppingItems()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"stats":  r.views.ShoppingStats(),
		"groups": catalog.GroupByCategory(items),
	})
}

func (r *Router) listPantry(w http.ResponseWriter, req *http.Request) {
	items := r.views.PantryItems()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"groups": catalog.GroupByCategory(items),
	})
}

// addToShopping reuses a product by name or creates it, then lists it.
func (r *Router) addToShopping(w http.ResponseWriter, req *http.Request) {
	var body productRequest
	if err := decodeBody(w, req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	respondJSON(w, http.StatusOK, r.store.AddToShopping(body.Name, body.Category))
}

func (r *Router) clearCompleted(w http.ResponseWriter, req *http.Request) {
	ids := r.store.ClearCompleted()
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"cleared": ids})
}
