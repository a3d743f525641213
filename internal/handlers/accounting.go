package handlers

import (
	"net/http"
)

func (r *Router) accountingStats(w http.ResponseWriter, req *http.Request) {
	if r.acct == nil {
		respondError(w, http.StatusServiceUnavailable, "call accounting not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stats": r.acct.Stats(),
		"calls": r.acct.Calls(),
	})
}

func (r *Router) accountingReset(w http.ResponseWriter, req *http.Request) {
	if r.acct == nil {
		respondError(w, http.StatusServiceUnavailable, "call accounting not configured")
		return
	}
	r.acct.Reset()
	respondJSON(w, http.StatusOK, r.acct.Stats())
}

func (r *Router) accountingSimulate(w http.ResponseWriter, req *http.Request) {
	if r.acct == nil {
		respondError(w, http.StatusServiceUnavailable, "call accounting not configured")
		return
	}
	var body flagRequest
	if err := decodeBody(w, req, &body); err != nil || body.Value == nil {
		respondError(w, http.StatusBadRequest, "body must be {\"value\": true|false}")
		return
	}
	r.acct.SetSimulate(*body.Value)
	respondJSON(w, http.StatusOK, r.acct.Stats())
}
