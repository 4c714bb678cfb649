// Package metrics provides Prometheus instrumentation for mp4-creator.
//
// All metrics are prefixed with "mp4_creator_" and registered on the default
// registry through promauto. They are served on a dedicated listener
// (METRICS_PORT) so scraping never competes with uploads on the main port.
//
// # Metric Categories
//
//   - HTTP: request counts, latency, in-flight gauge (middleware.Metrics)
//   - Merge pipeline: outcomes, end-to-end and per-stage durations, inputs per merge
//   - Engine: ffmpeg invocations by mode and status, running processes, availability
//   - Workspace: active workspaces, cleanup results, orphan sweep results
//   - Delivery: bytes written and termination signal per delivery
//   - Upload: stored bytes and rejection reasons
//
// InitializeMetrics pre-populates every known label combination.
package metrics
