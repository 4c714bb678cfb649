// Package handlers provides the HTTP handlers of the merge service.
//
// It includes handlers for:
//   - POST /api/merge, which runs the merge pipeline and streams merged.mp4
//   - GET /api/limits, describing accepted formats and upload limits
//   - Health, liveness and readiness probes
//   - Version information and Prometheus metrics
//
// A failed merge that has not started streaming is reported as
//
//	{"error": "At least 2 videos are required, got 1", "hints": ["..."]}
//
// with the status code chosen by pipeline.Failure.Status.
package handlers
