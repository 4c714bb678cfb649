package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mp4-creator/internal/pipeline"
)

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"Simple map", map[string]string{"status": "ok"}, `{"status":"ok"}`},
		{"String slice", []string{"a", "b"}, `["a","b"]`},
		{"Null", nil, `null`},
		{"Error without hints", ErrorResponse{Error: "bad"}, `{"error":"bad"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.input)

			body := w.Body.String()
			body = body[:len(body)-1] // Trim newline

			if body != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, body)
			}
		})
	}
}

func TestWriteJSONHandlesInvalidTypes(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	writeJSON(w, make(chan int))

	if w.Body.Len() != 0 {
		t.Errorf("Expected nothing written for an unencodable value, got %q", w.Body.String())
	}
}

func TestWriteFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		failure *pipeline.Failure
		status  int
	}{
		{"validation", pipeline.Validation("Order lists 1 names but 2 videos were uploaded", "Name every uploaded file once"), http.StatusBadRequest},
		{"too large", pipeline.PayloadTooLarge("Upload exceeds the 2.0 GB request limit", nil), http.StatusRequestEntityTooLarge},
		{"internal", pipeline.Internal(errors.New("disk full at /tmp/secret")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			w.Header().Set("Content-Disposition", `attachment; filename="merged.mp4"`)
			w.Header().Set("Content-Length", "1234")

			writeFailure(w, tt.failure)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			if w.Header().Get("Content-Disposition") != "" || w.Header().Get("Content-Length") != "" {
				t.Error("Expected delivery headers to be removed")
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Error != tt.failure.Message {
				t.Errorf("Expected message %q, got %q", tt.failure.Message, resp.Error)
			}
			if len(resp.Hints) != len(tt.failure.Hints) {
				t.Errorf("Expected %d hints, got %v", len(tt.failure.Hints), resp.Hints)
			}
		})
	}
}

func TestWriteJSONStatus(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	writeJSONStatus(w, "ready")

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %q", ct)
	}
	if body := w.Body.String(); body != "{\"status\":\"ready\"}\n" {
		t.Errorf("Unexpected body %q", body)
	}
}
