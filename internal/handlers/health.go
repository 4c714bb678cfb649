package handlers

import (
	"net/http"
	"runtime"
	"time"

	"mp4-creator/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	EngineAvailable  bool `json:"engineAvailable"`
	EngineProcesses  int  `json:"engineProcesses"`
	ActiveWorkspaces int  `json:"activeWorkspaces"`
	RunningMerges    int  `json:"runningMerges"`
	MergeCapacity    int  `json:"mergeCapacity"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. Without a usable
// engine every merge would fail, so the service reports itself degraded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	available := h.engine.Available()

	response := HealthResponse{
		Status:           statusHealthy,
		Ready:            available,
		Version:          startup.Version,
		Uptime:           time.Since(h.startTime).Round(time.Second).String(),
		EngineAvailable:  available,
		EngineProcesses:  h.engine.Running(),
		ActiveWorkspaces: h.workspaces.Active(),
		RunningMerges:    h.coordinator.Running(),
		MergeCapacity:    h.coordinator.Capacity(),
		GoVersion:        runtime.Version(),
		NumCPU:           runtime.NumCPU(),
		NumGoroutine:     runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	if !available {
		response.Status = statusDegraded
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSONStatus(w, "alive")
}

// ReadinessCheck returns 200 only when the engine is available
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if !h.engine.Available() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{"status": "not_ready", "reason": "engine unavailable"})
		return
	}
	writeJSONStatus(w, "ready")
}
