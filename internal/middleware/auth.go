package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/xelth-com/pantrysync/internal/utils"
)

type contextKey string

const UIDContextKey contextKey = "uid"

// Auth verifies the bearer token and puts the account uid into the request
// context. The websocket endpoint also accepts the token as ?token=.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ValidateToken(tokenString, secret)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			uid := utils.UIDFromClaims(claims)
			if uid == "" {
				http.Error(w, "Invalid token: missing uid", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UIDContextKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UIDFromContext returns the authenticated uid, or "".
func UIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UIDContextKey).(string)
	return uid
}

func bearerToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, true
	}
	return "", false
}
