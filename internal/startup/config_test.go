package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mp4-creator/internal/logging"
)

var configEnv = []string{
	"CONFIG_FILE", "PORT", "METRICS_PORT", "METRICS_ENABLED", "STATIC_DIR", "API_TOKEN_HASH",
	"TEMP_DIR", "WORKSPACE_PREFIX", "CLEANUP_GRACE", "FFMPEG_PATH", "FFPROBE_PATH",
	"MAX_CONCURRENT_MERGES", "MAX_FILES", "MAX_FILE_SIZE", "MAX_REQUEST_SIZE",
	"LOG_LEVEL", "DEBUG", "LOG_STATIC_FILES", "LOG_HEALTH_CHECKS",
}

// clearEnv blanks every variable Resolve reads; blank means unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnv {
		t.Setenv(key, "")
	}
	level := logging.GetLevel()
	t.Cleanup(func() { logging.SetLevel(level) })
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mp4-creator.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestResolveDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Resolve("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.True(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, "./public", cfg.Server.StaticDir)
	assert.Empty(t, cfg.Server.APITokenHash)

	assert.True(t, filepath.IsAbs(cfg.Workspace.TempDir))
	assert.Equal(t, "mp4-creator-", cfg.Workspace.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Workspace.Grace)

	assert.Equal(t, "ffmpeg", cfg.Engine.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.Engine.FFprobePath)
	assert.GreaterOrEqual(t, cfg.Engine.MaxConcurrent, 1)
	assert.LessOrEqual(t, cfg.Engine.MaxConcurrent, 4)

	assert.Equal(t, 20, cfg.Limits.MaxFiles)
	assert.Equal(t, int64(500_000_000), cfg.Limits.MaxFileSizeBytes)
	assert.Equal(t, int64(2_000_000_000), cfg.Limits.MaxRequestSizeBytes)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.StaticFiles)
	assert.True(t, cfg.Logging.HealthChecks)
	assert.Empty(t, cfg.File)
}

func TestResolveConfigFile(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()

	path := writeConfig(t, `
[server]
port = "3000"
metrics_enabled = false

[workspace]
temp_dir = "`+filepath.ToSlash(tempDir)+`"
prefix = "merge-"
cleanup_grace = "5s"

[engine]
ffmpeg_path = "/opt/ffmpeg/bin/ffmpeg"
max_concurrent = 2

[limits]
max_files = 5
max_file_size = "100MiB"
max_request_size = "1GB"

[logging]
level = "warn"
`)

	cfg, err := Resolve(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort, "unset keys keep defaults")
	assert.False(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, tempDir, cfg.Workspace.TempDir)
	assert.Equal(t, "merge-", cfg.Workspace.Prefix)
	assert.Equal(t, 5*time.Second, cfg.Workspace.Grace)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cfg.Engine.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.Engine.FFprobePath)
	assert.Equal(t, 2, cfg.Engine.MaxConcurrent)
	assert.Equal(t, 5, cfg.Limits.MaxFiles)
	assert.Equal(t, int64(100*1024*1024), cfg.Limits.MaxFileSizeBytes)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, logging.LevelWarn, logging.GetLevel())
}

func TestResolveEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server]\nport = \"3000\"\n[limits]\nmax_files = 5\n")

	t.Setenv("PORT", "4000")
	t.Setenv("MAX_FILES", "8")
	t.Setenv("FFPROBE_PATH", "/usr/local/bin/ffprobe")
	t.Setenv("MAX_FILE_SIZE", "1GB")
	t.Setenv("MAX_REQUEST_SIZE", "3GB")

	cfg, err := Resolve(path)
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Limits.MaxFiles)
	assert.Equal(t, "/usr/local/bin/ffprobe", cfg.Engine.FFprobePath)
	assert.Equal(t, int64(1_000_000_000), cfg.Limits.MaxFileSizeBytes)
}

func TestResolveConfigFileFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server]\nstatic_dir = \"/srv/ui\"\n")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/ui", cfg.Server.StaticDir)
}

func TestResolveDebugEnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEBUG", "true")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, logging.IsDebugEnabled())
}

func TestResolveInvalidGraceFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CLEANUP_GRACE", "soon")

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Workspace.Grace)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
		want string
	}{
		{name: "missing file", file: "-missing-", want: "not found"},
		{name: "unknown key", file: "[server]\nprot = \"1\"\n", want: "unknown keys"},
		{name: "malformed toml", file: "[server\n", want: "parse config"},
		{name: "bad size", env: map[string]string{"MAX_FILE_SIZE": "lots"}, want: "invalid max file size"},
		{name: "zero size", env: map[string]string{"MAX_FILE_SIZE": "0"}, want: "invalid max file size"},
		{name: "request smaller than file", env: map[string]string{"MAX_FILE_SIZE": "2GB", "MAX_REQUEST_SIZE": "1GB"}, want: "smaller than max file size"},
		{name: "too few files", env: map[string]string{"MAX_FILES": "1"}, want: "max files"},
		{name: "no concurrency", env: map[string]string{"MAX_CONCURRENT_MERGES": "0"}, want: "at least 1"},
		{name: "bad prefix", env: map[string]string{"WORKSPACE_PREFIX": "a/b"}, want: "invalid workspace prefix"},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "chatty"}, want: "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			switch tt.file {
			case "":
			case "-missing-":
				path = filepath.Join(t.TempDir(), "nope.toml")
			default:
				path = writeConfig(t, tt.file)
			}

			_, err := Resolve(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigCreatesTempDir(t *testing.T) {
	clearEnv(t)
	root := filepath.Join(t.TempDir(), "work", "root")
	t.Setenv("TEMP_DIR", root)
	t.Setenv("STATIC_DIR", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Workspace.TempDir)
	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadConfigTempDirIsFile(t *testing.T) {
	clearEnv(t)
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	t.Setenv("TEMP_DIR", file)

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace root")
}
