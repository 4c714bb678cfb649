package handlers

import (
	"errors"
	"net/http"

	"github.com/dustin/go-humanize"

	"mp4-creator/internal/logging"
	"mp4-creator/internal/mediatypes"
	"mp4-creator/internal/pipeline"
)

// ErrorResponse is the JSON body of every failed merge that has not started
// streaming.
type ErrorResponse struct {
	Error string   `json:"error"`
	Hints []string `json:"hints,omitempty"`
}

// Merge runs the merge pipeline for one multipart upload and streams
// merged.mp4 back. Failures before the first byte of the video are reported as
// JSON; after that the connection is simply closed.
func (h *Handlers) Merge(w http.ResponseWriter, r *http.Request) {
	err := h.coordinator.Run(r.Context(), w, h.uploads.Receive(w, r))
	if err == nil {
		return
	}

	var f *pipeline.Failure
	if !errors.As(err, &f) {
		f = pipeline.AsFailure(err)
	}
	if f.Committed {
		logging.Debug("Merge ended after the response was committed: %v", f)
		return
	}
	writeFailure(w, f)
}

// LimitsResponse describes what the merge endpoint accepts.
type LimitsResponse struct {
	Extensions          []string `json:"extensions"`
	MinFiles            int      `json:"minFiles"`
	MaxFiles            int      `json:"maxFiles"`
	MaxFileSize         int64    `json:"maxFileSize"`
	MaxFileSizeHuman    string   `json:"maxFileSizeHuman"`
	MaxRequestSize      int64    `json:"maxRequestSize"`
	MaxRequestSizeHuman string   `json:"maxRequestSizeHuman"`
	MaxConcurrent       int      `json:"maxConcurrent"`
}

// GetLimits returns the upload limits so the UI can validate before sending.
func (h *Handlers) GetLimits(w http.ResponseWriter, _ *http.Request) {
	limits := h.uploads.Limits()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, LimitsResponse{
		Extensions:          mediatypes.Extensions(),
		MinFiles:            pipeline.MinInputs,
		MaxFiles:            limits.MaxFiles,
		MaxFileSize:         limits.MaxFileSize,
		MaxFileSizeHuman:    humanize.Bytes(uint64(limits.MaxFileSize)),
		MaxRequestSize:      limits.MaxRequestSize,
		MaxRequestSizeHuman: humanize.Bytes(uint64(limits.MaxRequestSize)),
		MaxConcurrent:       h.coordinator.Capacity(),
	})
}
