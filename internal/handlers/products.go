package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/models"
)

type productRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

type productUpdate struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
}

type flagRequest struct {
	Value *bool `json:"value"`
}

// listProducts returns the whole catalog, optionally grouped by category.
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	products := r.store.All()
	if req.URL.Query().Get("group") == "category" {
		respondJSON(w, http.StatusOK, catalog.GroupByCategory(products))
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	p, ok := r.store.Get(mux.Vars(req)["id"])
	if !ok {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// createProduct adds a product; an existing product with the same name is
// returned with 200 instead of 201.
func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	var body productRequest
	if err := decodeBody(w, req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	p, created := r.store.Add(body.Name, body.Category)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, p)
}

func (r *Router) updateProduct(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	var body productUpdate
	if err := decodeBody(w, req, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, ok := r.store.Get(id); !ok {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	ok := true
	r.store.Batch(func(tx *catalog.Tx) {
		if body.Name != nil {
			ok = tx.Rename(id, *body.Name)
		}
		if ok && body.Category != nil {
			ok = tx.SetCategory(id, *body.Category)
		}
	})
	if !ok {
		respondError(w, http.StatusConflict, "update rejected, name empty or already used")
		return
	}
	p, _ := r.store.Get(id)
	respondJSON(w, http.StatusOK, p)
}

func (r *Router) deleteProduct(w http.ResponseWriter, req *http.Request) {
	if !r.store.Remove(mux.Vars(req)["id"]) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) setFlag(w http.ResponseWriter, req *http.Request) {
	vars := mux.Vars(req)
	id, flag := vars["id"], vars["flag"]
	if !models.IsFlag(flag) {
		respondError(w, http.StatusBadRequest, "unknown flag "+flag)
		return
	}
	var body flagRequest
	if err := decodeBody(w, req, &body); err != nil || body.Value == nil {
		respondError(w, http.StatusBadRequest, "body must be {\"value\": true|false}")
		return
	}
	if _, ok := r.store.Get(id); !ok {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if !r.store.SetFlag(id, flag, *body.Value) {
		respondError(w, http.StatusConflict, "flag change rejected, completed items must be on the shopping list")
		return
	}
	p, _ := r.store.Get(id)
	respondJSON(w, http.StatusOK, p)
}
