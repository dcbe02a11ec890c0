package handlers

import (
	"encoding/json"
	"net/http"
)

// respondWithJSON writes v as a JSON body with the given status
func respondWithJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(v)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	_ = respondWithJSON(w, statusCode, map[string]string{"error": message})
}
