package middleware

import (
	"net/http"
	"strings"
)

// Keys separates the two callers this API has: operators (trigger passes,
// manage units) and ingest gateways (post heartbeats on behalf of units).
type Keys struct {
	Operator []string
	Ingest   []string
}

func readAuth(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	return ""
}

func hasKey(given string, set []string) bool {
	if given == "" {
		return false
	}
	for _, k := range set {
		if k == given {
			return true
		}
	}
	return false
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireOperator only permits requests presenting an operator key.
// With no operator keys configured it allows everything (local dev).
func RequireOperator(keys Keys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys.Operator) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasKey(readAuth(r), keys.Operator) {
				next.ServeHTTP(w, r)
				return
			}
			deny(w, http.StatusForbidden, "forbidden")
		})
	}
}

// RequireIngest permits ingest or operator keys — operators may post test
// heartbeats. With no keys configured at all it allows everything (local dev).
func RequireIngest(keys Keys) func(http.Handler) http.Handler {
	enabled := len(keys.Ingest) > 0 || len(keys.Operator) > 0
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := readAuth(r)
			if hasKey(key, keys.Ingest) || hasKey(key, keys.Operator) {
				next.ServeHTTP(w, r)
				return
			}
			deny(w, http.StatusUnauthorized, "unauthorized")
		})
	}
}
