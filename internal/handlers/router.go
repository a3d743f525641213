package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xelth-com/pantrysync/internal/accounting"
	"github.com/xelth-com/pantrysync/internal/buildinfo"
	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/interchange"
	"github.com/xelth-com/pantrysync/internal/middleware"
	tripsync "github.com/xelth-com/pantrysync/internal/sync"
	"github.com/xelth-com/pantrysync/internal/websocket"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Deps are the components the HTTP surface exposes.
type Deps struct {
	Store       *catalog.Store
	Engine      *tripsync.Engine
	Interchange *interchange.Service
	Accounting  *accounting.Tracker
	Hub         *websocket.Hub
	JWTSecret   string
	DeviceID    string
	Logger      *zap.Logger
}

// Router wraps the mux router and the catalog components
type Router struct {
	*mux.Router
	store    *catalog.Store
	views    *catalog.Views
	engine   *tripsync.Engine
	ix       *interchange.Service
	acct     *accounting.Tracker
	hub      *websocket.Hub
	deviceID string
	log      *zap.Logger
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(d Deps) *Router {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := &Router{
		Router:   mux.NewRouter(),
		store:    d.Store,
		views:    catalog.NewViews(d.Store),
		engine:   d.Engine,
		ix:       d.Interchange,
		acct:     d.Accounting,
		hub:      d.Hub,
		deviceID: d.DeviceID,
		log:      d.Logger.Named("http"),
	}
	auth := middleware.Auth(d.JWTSecret)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	r.HandleFunc("/api/status", r.getStatus).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(auth)

	// Catalog
	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products", r.createProduct).Methods("POST")
	api.HandleFunc("/products/{id}", r.getProduct).Methods("GET")
	api.HandleFunc("/products/{id}", r.updateProduct).Methods("PATCH")
	api.HandleFunc("/products/{id}", r.deleteProduct).Methods("DELETE")
	api.HandleFunc("/products/{id}/flags/{flag}", r.setFlag).Methods("PUT")

	// Views
	api.HandleFunc("/shopping", r.listShopping).Methods("GET")
	api.HandleFunc("/shopping", r.addToShopping).Methods("POST")
	api.HandleFunc("/shopping/clear-completed", r.clearCompleted).Methods("POST")
	api.HandleFunc("/pantry", r.listPantry).Methods("GET")

	// Trip cycle
	api.HandleFunc("/trip/status", r.tripStatus).Methods("GET")
	api.HandleFunc("/trip/prepare", r.tripAction(tripsync.OpPrepareTrip)).Methods("POST")
	api.HandleFunc("/trip/download", r.tripAction(tripsync.OpDownloadList)).Methods("POST")
	api.HandleFunc("/trip/done", r.tripAction(tripsync.OpShoppingDone)).Methods("POST")
	api.HandleFunc("/trip/refresh", r.tripAction(tripsync.OpRefresh)).Methods("POST")

	// Interchange
	api.HandleFunc("/export", r.exportJSON).Methods("GET")
	api.HandleFunc("/export/csv", r.exportCSV).Methods("GET")
	api.HandleFunc("/import", r.importJSON).Methods("POST")
	api.HandleFunc("/import/csv", r.importCSV).Methods("POST")

	// Call accounting
	api.HandleFunc("/accounting", r.accountingStats).Methods("GET")
	api.HandleFunc("/accounting/reset", r.accountingReset).Methods("POST")
	api.HandleFunc("/accounting/simulate", r.accountingSimulate).Methods("PUT")

	if r.hub != nil {
		r.Handle("/ws", auth(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			websocket.ServeWs(r.hub, w, req)
		})))
	}

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"device": r.deviceID,
	})
}

// getStatus returns build info and catalog size
func (r *Router) getStatus(w http.ResponseWriter, req *http.Request) {
	status := map[string]interface{}{
		"status":   "running",
		"device":   r.deviceID,
		"build":    buildinfo.Get(),
		"products": r.store.Len(),
	}
	if r.engine != nil {
		status["trip"] = r.engine.Status()
	}
	respondJSON(w, http.StatusOK, status)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func decodeBody(w http.ResponseWriter, req *http.Request, v interface{}) error {
	defer req.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(v)
}

const maxBodyBytes = 8 << 20
