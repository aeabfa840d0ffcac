package handlers

import (
	"encoding/json"
	"net/http"

	"media-indexer/internal/logging"
)

// writeJSON writes v with the given status code. Encoding errors are logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeJSONStatus(w http.ResponseWriter, statusCode int, status string) {
	writeJSON(w, statusCode, map[string]string{"status": status})
}
