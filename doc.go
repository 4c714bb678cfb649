// Command mp4-creator is an HTTP service that merges uploaded videos into a
// single MP4.
//
// A client POSTs two or more videos to /api/merge as multipart/form-data,
// optionally with the order they should appear in. Each video is normalized
// with ffmpeg to a common H.264/AAC profile, one at a time, and the results
// are joined with the concat demuxer and streamed back as merged.mp4. Every
// request works in its own temporary directory which is removed exactly once
// when the request ends, whatever the outcome.
//
// # Commands
//
//	mp4-creator [serve]   start the server (default)
//	mp4-creator sweep     remove workspaces left behind by a crashed run
//	mp4-creator probe     check that ffmpeg and ffprobe can be executed
//	mp4-creator version   print build information
//
// All commands accept --config pointing at a TOML file; environment variables
// override it. See package startup for the keys.
//
// # HTTP Server
//
// The main server (default port 8080) serves the merge API, health probes and
// the static UI from STATIC_DIR. Prometheus metrics are served on a separate
// listener (default port 9090) when METRICS_ENABLED is true.
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server stops accepting requests and waits up to
// 30 seconds for in-flight merges, then kills any engine processes still
// running and removes the workspaces that were not cleaned up.
package main
