package handlers

import (
	"encoding/json"
	"net/http"

	"mp4-creator/internal/logging"
	"mp4-creator/internal/pipeline"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int, hints ...string) {
	// Delivery headers may already be set on a writer that never sent a byte.
	w.Header().Del("Content-Disposition")
	w.Header().Del("Content-Length")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	writeJSON(w, ErrorResponse{Error: message, Hints: hints})
}

// writeFailure reports a pipeline failure. Only the message and hints reach
// the client; the wrapped cause stays in the logs.
func writeFailure(w http.ResponseWriter, f *pipeline.Failure) {
	writeJSONError(w, f.Message, f.Status(), f.Hints...)
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}
