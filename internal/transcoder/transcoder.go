package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mp4-creator/internal/logging"
	"mp4-creator/internal/metrics"
)

// Invocation modes, used as metric labels and to pick the binary.
const (
	ModeTranscode = "transcode"
	ModeConcat    = "concat"
	ModeProbe     = "probe"
)

// Invocation is one run of the external engine.
type Invocation struct {
	Mode string
	Args []string
}

// Runner executes engine invocations. Run returns the process stdout; a
// non-zero exit is reported as *EngineError.
type Runner interface {
	Run(ctx context.Context, inv Invocation) ([]byte, error)
}

// EngineError describes an engine process that could not start or exited
// non-zero. Stderr is for operator logs only.
type EngineError struct {
	Mode     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *EngineError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s exited with code %d", e.Mode, e.ExitCode)
	}
	return fmt.Sprintf("%s failed: %v", e.Mode, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// FFmpeg runs ffmpeg and ffprobe as child processes and keeps track of the
// ones still running so they can be killed on shutdown.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string

	available atomic.Bool

	processes map[uint64]*exec.Cmd
	nextID    uint64
	processMu sync.Mutex
}

// NewFFmpeg creates a runner for the given binaries. Empty paths default to
// "ffmpeg" and "ffprobe" resolved through PATH.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		processes:   make(map[uint64]*exec.Cmd),
	}
}

// Probe checks that both binaries exist and that ffmpeg runs. The result is
// remembered and reported by Available.
func (f *FFmpeg) Probe(ctx context.Context) error {
	err := f.probe(ctx)
	f.available.Store(err == nil)
	metrics.SetEngineAvailable(err == nil)
	return err
}

func (f *FFmpeg) probe(ctx context.Context) error {
	ffmpegPath, err := exec.LookPath(f.ffmpegPath)
	if err != nil {
		return fmt.Errorf("ffmpeg not found (%s): %w", f.ffmpegPath, err)
	}
	logging.Debug("  FFmpeg path: %s", ffmpegPath)

	ffprobePath, err := exec.LookPath(f.ffprobePath)
	if err != nil {
		return fmt.Errorf("ffprobe not found (%s): %w", f.ffprobePath, err)
	}
	logging.Debug("  FFprobe path: %s", ffprobePath)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, ffmpegPath, "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(lines[0]))
	}

	return nil
}

// Available reports whether the last Probe succeeded.
func (f *FFmpeg) Available() bool {
	return f.available.Load()
}

// Run executes inv and waits for it to exit. Output files are never trusted
// unless this returns nil.
func (f *FFmpeg) Run(ctx context.Context, inv Invocation) ([]byte, error) {
	binary := f.ffmpegPath
	if inv.Mode == ModeProbe {
		binary = f.ffprobePath
	}

	cmd := exec.CommandContext(ctx, binary, inv.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	logging.Debug("Running %s: %s %s", inv.Mode, binary, strings.Join(inv.Args, " "))

	if err := cmd.Start(); err != nil {
		metrics.EngineInvocationsTotal.WithLabelValues(inv.Mode, "error").Inc()
		return nil, &EngineError{Mode: inv.Mode, ExitCode: -1, Err: err}
	}

	id := f.track(cmd)
	defer f.untrack(id)

	err := cmd.Wait()
	metrics.EngineInvocationDuration.WithLabelValues(inv.Mode).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.EngineInvocationsTotal.WithLabelValues(inv.Mode, "error").Inc()
		engineErr := &EngineError{Mode: inv.Mode, ExitCode: -1, Stderr: stderr.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			engineErr.ExitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), engineErr
	}

	metrics.EngineInvocationsTotal.WithLabelValues(inv.Mode, "success").Inc()
	return stdout.Bytes(), nil
}

func (f *FFmpeg) track(cmd *exec.Cmd) uint64 {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	f.nextID++
	f.processes[f.nextID] = cmd
	metrics.EngineProcessesRunning.Inc()
	return f.nextID
}

func (f *FFmpeg) untrack(id uint64) {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	if _, ok := f.processes[id]; ok {
		delete(f.processes, id)
		metrics.EngineProcessesRunning.Dec()
	}
}

// Running returns the number of engine processes currently tracked.
func (f *FFmpeg) Running() int {
	f.processMu.Lock()
	defer f.processMu.Unlock()
	return len(f.processes)
}

// Cleanup kills all running engine processes. Called on shutdown.
func (f *FFmpeg) Cleanup() {
	f.processMu.Lock()
	defer f.processMu.Unlock()

	for id, cmd := range f.processes {
		if cmd.Process != nil {
			logging.Info("Killing engine process %d (pid %d)", id, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill engine process %d: %v", id, err)
			}
		}
	}
}
