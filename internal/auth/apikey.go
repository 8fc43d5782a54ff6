package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// APIKeyMiddleware guards the API with a single statically configured key.
// An empty configured key disables authentication.
type APIKeyMiddleware struct {
	key        string
	headerName string
}

func NewAPIKeyMiddleware(key, headerName string) *APIKeyMiddleware {
	if headerName == "" {
		headerName = "X-API-Key"
	}
	return &APIKeyMiddleware{key: key, headerName: headerName}
}

func (m *APIKeyMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.key == "" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(m.headerName)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.key)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid API key"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
