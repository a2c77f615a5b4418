package httpx

import (
	"encoding/json"
	"net/http"
)

// NoCache marks a response as uncacheable. Token material must never
// land in a shared cache, so every JSON response carries these headers.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// WriteJSON encodes v as the response body with the given status.
// Encoding errors are ignored: the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
