// Package enginetest provides an in-process stand-in for ffmpeg/ffprobe so the
// transcode and concat stages can be tested without the real binaries.
package enginetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"mp4-creator/internal/transcoder"
)

// Engine is a transcoder.Runner that simulates the engine on plain files:
// transcoding wraps the input bytes in "[...]" and concatenation joins the
// manifest entries in order, so tests can read the merged file and check
// which inputs landed where.
type Engine struct {
	// FailTranscodeAt makes the Nth transcode invocation (1-based) exit 1.
	FailTranscodeAt int
	// FailConcat makes the concat invocation exit 1.
	FailConcat bool
	// Silent lists input paths reported as having no audio stream.
	Silent map[string]bool
	// OnRun, when set, is called before each invocation is simulated.
	OnRun func(inv transcoder.Invocation)

	mu          sync.Mutex
	invocations []transcoder.Invocation
	transcodes  int
}

var _ transcoder.Runner = (*Engine)(nil)

// Run simulates one invocation.
func (e *Engine) Run(_ context.Context, inv transcoder.Invocation) ([]byte, error) {
	e.mu.Lock()
	e.invocations = append(e.invocations, inv)
	if inv.Mode == transcoder.ModeTranscode {
		e.transcodes++
	}
	n := e.transcodes
	e.mu.Unlock()

	if e.OnRun != nil {
		e.OnRun(inv)
	}

	switch inv.Mode {
	case transcoder.ModeProbe:
		input := inv.Args[len(inv.Args)-1]
		if e.Silent[input] {
			return nil, nil
		}
		return []byte("1\n"), nil

	case transcoder.ModeTranscode:
		if e.FailTranscodeAt > 0 && n == e.FailTranscodeAt {
			return nil, exitError(inv.Mode, "Invalid data found when processing input")
		}
		input, output := argAfter(inv.Args, "-i"), inv.Args[len(inv.Args)-1]
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, exitError(inv.Mode, err.Error())
		}
		return nil, os.WriteFile(output, append(append([]byte("["), data...), ']'), 0o600)

	case transcoder.ModeConcat:
		if e.FailConcat {
			return nil, exitError(inv.Mode, "Unsafe file name")
		}
		manifest, output := argAfter(inv.Args, "-i"), inv.Args[len(inv.Args)-1]
		paths, err := transcoder.ReadManifest(manifest)
		if err != nil {
			return nil, exitError(inv.Mode, err.Error())
		}
		var merged bytes.Buffer
		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, exitError(inv.Mode, err.Error())
			}
			merged.Write(data)
		}
		return nil, os.WriteFile(output, merged.Bytes(), 0o600)
	}

	return nil, fmt.Errorf("enginetest: unknown mode %q", inv.Mode)
}

// Invocations returns a copy of every invocation seen so far.
func (e *Engine) Invocations() []transcoder.Invocation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]transcoder.Invocation(nil), e.invocations...)
}

// Count returns how many invocations of the given mode were made.
func (e *Engine) Count(mode string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, inv := range e.invocations {
		if inv.Mode == mode {
			n++
		}
	}
	return n
}

func argAfter(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func exitError(mode, stderr string) error {
	return &transcoder.EngineError{Mode: mode, ExitCode: 1, Stderr: stderr, Err: errors.New("exit status 1")}
}
