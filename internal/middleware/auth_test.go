package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xelth-com/pantrysync/internal/utils"
)

const testSecret = "middleware-secret"

func echoUID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UIDFromContext(r.Context())))
	})
}

func TestAuth(t *testing.T) {
	good, _ := utils.GenerateToken("family-1", "d", testSecret, time.Hour)
	foreign, _ := utils.GenerateToken("family-1", "d", "other-secret", time.Hour)

	tests := []struct {
		name   string
		header string
		query  string
		status int
		body   string
	}{
		{"valid bearer", "Bearer " + good, "", http.StatusOK, "family-1"},
		{"valid query token", "", good, http.StatusOK, "family-1"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + good, "", http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + foreign, "", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/api/products"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Auth(testSecret)(echoUID()).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status %d, want %d", rec.Code, tt.status)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Fatalf("uid %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}
}
