package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/pelletier/go-toml/v2"

	"mp4-creator/internal/logging"
	"mp4-creator/internal/workers"
	"mp4-creator/internal/workspace"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// ServerSettings configures the HTTP listeners.
type ServerSettings struct {
	Port           string `toml:"port"`
	MetricsPort    string `toml:"metrics_port"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
	StaticDir      string `toml:"static_dir"`
	// APITokenHash is a bcrypt hash; empty disables token auth.
	APITokenHash string `toml:"api_token_hash"`
}

// WorkspaceSettings configures per-request workspaces.
type WorkspaceSettings struct {
	TempDir      string        `toml:"temp_dir"`
	Prefix       string        `toml:"prefix"`
	CleanupGrace string        `toml:"cleanup_grace"`
	Grace        time.Duration `toml:"-"`
}

// EngineSettings configures ffmpeg.
type EngineSettings struct {
	FFmpegPath    string `toml:"ffmpeg_path"`
	FFprobePath   string `toml:"ffprobe_path"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// LimitSettings bounds uploads. Sizes accept humanized values like "500MB".
type LimitSettings struct {
	MaxFiles       int    `toml:"max_files"`
	MaxFileSize    string `toml:"max_file_size"`
	MaxRequestSize string `toml:"max_request_size"`

	MaxFileSizeBytes    int64 `toml:"-"`
	MaxRequestSizeBytes int64 `toml:"-"`
}

// LoggingSettings configures log verbosity.
type LoggingSettings struct {
	Level        string `toml:"level"`
	StaticFiles  bool   `toml:"static_files"`
	HealthChecks bool   `toml:"health_checks"`
}

// Config holds all application configuration
type Config struct {
	Server    ServerSettings    `toml:"server"`
	Workspace WorkspaceSettings `toml:"workspace"`
	Engine    EngineSettings    `toml:"engine"`
	Limits    LimitSettings     `toml:"limits"`
	Logging   LoggingSettings   `toml:"logging"`

	// File is the config file that was read, if any.
	File string `toml:"-"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerSettings{
			Port:           "8080",
			MetricsPort:    "9090",
			MetricsEnabled: true,
			StaticDir:      "./public",
		},
		Workspace: WorkspaceSettings{
			Prefix:       workspace.DefaultPrefix,
			CleanupGrace: workspace.DefaultCleanupGrace.String(),
		},
		Engine: EngineSettings{
			FFmpegPath:    "ffmpeg",
			FFprobePath:   "ffprobe",
			MaxConcurrent: workers.ForCPU(4),
		},
		Limits: LimitSettings{
			MaxFiles:       20,
			MaxFileSize:    "500MB",
			MaxRequestSize: "2GB",
		},
		Logging: LoggingSettings{
			Level:        "info",
			HealthChecks: true,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the TOML file at
// path (or CONFIG_FILE when path is empty), then environment variables.
func LoadConfig(path string) (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := Resolve(path)
	if err != nil {
		return nil, err
	}

	logConfig(cfg)

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := ensureDirectory(cfg.Workspace.TempDir, "workspace"); err != nil {
		return nil, fmt.Errorf("workspace root error: %w", err)
	}
	logging.Debug("  Testing workspace root write access...")
	if err := testWriteAccess(cfg.Workspace.TempDir); err != nil {
		return nil, fmt.Errorf("workspace root is not writable: %w", err)
	}
	logging.Info("  [OK] Workspace root is writable: %s", cfg.Workspace.TempDir)

	if info, err := os.Stat(cfg.Server.StaticDir); err != nil || !info.IsDir() {
		logging.Warn("  Static directory %s not found, UI will not be served", cfg.Server.StaticDir)
	} else {
		logging.Info("  [OK] Static directory: %s", cfg.Server.StaticDir)
	}

	return cfg, nil
}

// Resolve layers the config file and environment over the defaults and
// validates the result. It does no logging or filesystem setup.
func Resolve(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
		cfg.File = path
	}

	cfg.applyEnv()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.MetricsPort = getEnv("METRICS_PORT", c.Server.MetricsPort)
	c.Server.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.Server.MetricsEnabled)
	c.Server.StaticDir = getEnv("STATIC_DIR", c.Server.StaticDir)
	c.Server.APITokenHash = getEnv("API_TOKEN_HASH", c.Server.APITokenHash)

	c.Workspace.TempDir = getEnv("TEMP_DIR", c.Workspace.TempDir)
	c.Workspace.Prefix = getEnv("WORKSPACE_PREFIX", c.Workspace.Prefix)
	c.Workspace.CleanupGrace = getEnv("CLEANUP_GRACE", c.Workspace.CleanupGrace)

	c.Engine.FFmpegPath = getEnv("FFMPEG_PATH", c.Engine.FFmpegPath)
	c.Engine.FFprobePath = getEnv("FFPROBE_PATH", c.Engine.FFprobePath)
	c.Engine.MaxConcurrent = getEnvInt("MAX_CONCURRENT_MERGES", c.Engine.MaxConcurrent)

	c.Limits.MaxFiles = getEnvInt("MAX_FILES", c.Limits.MaxFiles)
	c.Limits.MaxFileSize = getEnv("MAX_FILE_SIZE", c.Limits.MaxFileSize)
	c.Limits.MaxRequestSize = getEnv("MAX_REQUEST_SIZE", c.Limits.MaxRequestSize)

	if debug, _ := strconv.ParseBool(os.Getenv("DEBUG")); debug {
		c.Logging.Level = "debug"
	} else {
		c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	}
	c.Logging.StaticFiles = getEnvBool("LOG_STATIC_FILES", c.Logging.StaticFiles)
	c.Logging.HealthChecks = getEnvBool("LOG_HEALTH_CHECKS", c.Logging.HealthChecks)
}

func (c *Config) normalize() error {
	var err error

	if c.Workspace.TempDir == "" {
		c.Workspace.TempDir = os.TempDir()
	}
	if c.Workspace.TempDir, err = filepath.Abs(c.Workspace.TempDir); err != nil {
		return fmt.Errorf("failed to resolve temp directory path: %w", err)
	}
	if c.Workspace.Prefix == "" || strings.ContainsAny(c.Workspace.Prefix, `/\`) {
		return fmt.Errorf("invalid workspace prefix %q", c.Workspace.Prefix)
	}
	if c.Workspace.Grace, err = time.ParseDuration(c.Workspace.CleanupGrace); err != nil || c.Workspace.Grace <= 0 {
		logging.Warn("  Invalid CLEANUP_GRACE %q, using default: %v", c.Workspace.CleanupGrace, workspace.DefaultCleanupGrace)
		c.Workspace.Grace = workspace.DefaultCleanupGrace
		c.Workspace.CleanupGrace = workspace.DefaultCleanupGrace.String()
	}

	if c.Engine.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent merges must be at least 1, got %d", c.Engine.MaxConcurrent)
	}
	if c.Limits.MaxFiles < 2 {
		return fmt.Errorf("max files must be at least 2, got %d", c.Limits.MaxFiles)
	}

	if c.Limits.MaxFileSizeBytes, err = parseSize("max file size", c.Limits.MaxFileSize); err != nil {
		return err
	}
	if c.Limits.MaxRequestSizeBytes, err = parseSize("max request size", c.Limits.MaxRequestSize); err != nil {
		return err
	}
	if c.Limits.MaxRequestSizeBytes < c.Limits.MaxFileSizeBytes {
		return fmt.Errorf("max request size (%s) is smaller than max file size (%s)", c.Limits.MaxRequestSize, c.Limits.MaxFileSize)
	}

	level, ok := logging.ParseLevel(c.Logging.Level)
	if !ok {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	logging.SetLevel(level)
	c.Logging.Level = level.String()

	return nil
}

func parseSize(name, value string) (int64, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return int64(n), nil
}

func logConfig(c *Config) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if c.File != "" {
		logging.Info("  CONFIG_FILE:           %s", c.File)
	}
	logging.Info("  PORT:                  %s", c.Server.Port)
	logging.Info("  METRICS_PORT:          %s", c.Server.MetricsPort)
	logging.Info("  METRICS_ENABLED:       %v", c.Server.MetricsEnabled)
	logging.Info("  STATIC_DIR:            %s", c.Server.StaticDir)
	logging.Info("  API_TOKEN_HASH:        %s", setString(c.Server.APITokenHash != ""))
	logging.Info("  TEMP_DIR:              %s", c.Workspace.TempDir)
	logging.Info("  WORKSPACE_PREFIX:      %s", c.Workspace.Prefix)
	logging.Info("  CLEANUP_GRACE:         %v", c.Workspace.Grace)
	logging.Info("  FFMPEG_PATH:           %s", c.Engine.FFmpegPath)
	logging.Info("  FFPROBE_PATH:          %s", c.Engine.FFprobePath)
	logging.Info("  MAX_CONCURRENT_MERGES: %d", c.Engine.MaxConcurrent)
	logging.Info("  MAX_FILES:             %d", c.Limits.MaxFiles)
	logging.Info("  MAX_FILE_SIZE:         %s", humanize.Bytes(uint64(c.Limits.MaxFileSizeBytes)))
	logging.Info("  MAX_REQUEST_SIZE:      %s", humanize.Bytes(uint64(c.Limits.MaxRequestSizeBytes)))
	logging.Info("  LOG_STATIC_FILES:      %v", c.Logging.StaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", c.Logging.HealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())
}

func setString(set bool) string {
	if set {
		return "set (token auth ENABLED)"
	}
	return "not set (token auth DISABLED)"
}

// LogEngineInit logs the result of the startup engine probe.
func LogEngineInit(err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("ENGINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")

	if err != nil {
		logging.Warn("  FFmpeg check failed: %v", err)
		logging.Warn("  Merge requests will be rejected until ffmpeg is installed")
		return
	}
	logging.Info("  [OK] FFmpeg and FFprobe are available")
}

// LogWorkspaceInit logs the startup orphan sweep.
func LogWorkspaceInit(root string, swept int, err error) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("WORKSPACE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Workspace root: %s", root)

	if err != nil {
		logging.Warn("  Orphan sweep failed: %v", err)
		return
	}
	if swept > 0 {
		logging.Info("  [OK] Removed %d orphaned workspace(s)", swept)
	} else {
		logging.Info("  [OK] No orphaned workspaces")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes dynamically
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}

			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// StartedInfo holds what the server startup log reports
type StartedInfo struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(info StartedInfo) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", info.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", info.Port)
	logging.Info("    Merge API:     http://0.0.0.0:%s/api/merge", info.Port)
	if info.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", info.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
                _  _                            _
  _ __  _ __   | || |    ___ _ __ ___  __ _| |_ ___  _ __
 | '  \| '_ \  |__  _|  / __| '__/ _ \/ _' | __/ _ \| '__|
 | | | | |_) |    |_|  | (__| | |  __/ (_| | || (_) | |
 |_|_|_| .__/           \___|_|  \___|\__,_|\__\___/|_|
       |_|
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".mp4-creator-write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
