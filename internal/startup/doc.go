// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] starts from [Default], overlays an optional TOML file (the
// --config flag or CONFIG_FILE), then environment variables. Unknown keys in
// the file are an error.
//
//	[server]
//	port = "8080"
//	metrics_port = "9090"
//	metrics_enabled = true
//	static_dir = "./public"
//	api_token_hash = ""          # bcrypt hash, see cmd/hashtoken
//
//	[workspace]
//	temp_dir = "/var/tmp"        # default: os.TempDir()
//	prefix = "mp4-creator-"
//	cleanup_grace = "30s"
//
//	[engine]
//	ffmpeg_path = "ffmpeg"
//	ffprobe_path = "ffprobe"
//	max_concurrent = 4           # default: min(NumCPU, 4)
//
//	[limits]
//	max_files = 20
//	max_file_size = "500MB"
//	max_request_size = "2GB"
//
//	[logging]
//	level = "info"
//	static_files = false
//	health_checks = true
//
// The matching environment variables are PORT, METRICS_PORT,
// METRICS_ENABLED, STATIC_DIR, API_TOKEN_HASH, TEMP_DIR, WORKSPACE_PREFIX,
// CLEANUP_GRACE, FFMPEG_PATH, FFPROBE_PATH, MAX_CONCURRENT_MERGES, MAX_FILES,
// MAX_FILE_SIZE, MAX_REQUEST_SIZE, LOG_LEVEL (or DEBUG=true),
// LOG_STATIC_FILES and LOG_HEALTH_CHECKS.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//
//	go build -ldflags "-X mp4-creator/internal/startup.Version=1.2.0 -X mp4-creator/internal/startup.Commit=$(git rev-parse --short HEAD)"
//
// # Lifecycle Logging
//
//   - [LogEngineInit]: FFmpeg availability
//   - [LogWorkspaceInit]: workspace root and orphan sweep result
//   - [LogHTTPRoutes]: registered HTTP routes (debug level)
//   - [LogServerStarted]: server endpoints and startup duration
//   - [LogShutdownInitiated], [LogShutdownComplete]: graceful shutdown
package startup
