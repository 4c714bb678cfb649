package handlers

import (
	"net/http"

	"mp4-creator/internal/startup"
)

// VersionResponse is the build information plus whether this instance can
// merge right now.
type VersionResponse struct {
	startup.BuildInfo
	EngineAvailable bool   `json:"engineAvailable"`
	Output          string `json:"output"`
}

// GetVersion handles GET /version.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	resp := VersionResponse{
		BuildInfo: startup.GetBuildInfo(),
		Output:    "video/mp4",
	}
	if h.engine != nil {
		resp.EngineAvailable = h.engine.Available()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}
