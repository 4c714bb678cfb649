package handlers

import (
	"time"

	"mp4-creator/internal/pipeline"
	"mp4-creator/internal/upload"
	"mp4-creator/internal/workspace"
)

// Engine reports whether the media engine can be used and how many of its
// processes are currently running. *transcoder.FFmpeg satisfies it.
type Engine interface {
	Available() bool
	Running() int
}

// Handlers serves the merge API and the operational endpoints around it.
type Handlers struct {
	coordinator *pipeline.Coordinator
	uploads     *upload.Reader
	engine      Engine
	workspaces  *workspace.Manager
	startTime   time.Time
}

// New creates the HTTP handlers. The start time used for uptime reporting is
// taken at construction.
func New(coord *pipeline.Coordinator, uploads *upload.Reader, engine Engine, workspaces *workspace.Manager) *Handlers {
	return &Handlers{
		coordinator: coord,
		uploads:     uploads,
		engine:      engine,
		workspaces:  workspaces,
		startTime:   time.Now(),
	}
}
