package transcoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mp4-creator/internal/logging"
)

// Workspace-relative names of the files the stages produce.
const (
	ManifestName = "concat.txt"
	MergedName   = "merged.mp4"
)

// Stage names a pipeline step that invokes the engine.
type Stage string

const (
	StageTranscode Stage = "transcode"
	StageConcat    Stage = "concat"
)

// Source is one input to normalize.
type Source struct {
	// Name is the client-declared name, used only in errors and logs.
	Name string
	// Path is the server-assigned location of the uploaded bytes.
	Path string
}

// StageError reports a failed engine invocation. Index is the 1-based input
// position for transcode failures and 0 for concatenation.
type StageError struct {
	Stage  Stage
	Index  int
	Input  string
	Stderr string
	Err    error
}

func (e *StageError) Error() string {
	if e.Stage == StageTranscode {
		return fmt.Sprintf("transcode of input %d (%s) failed: %v", e.Index, e.Input, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Transcoder runs the normalization and concatenation stages through a Runner.
type Transcoder struct {
	runner  Runner
	profile Profile
	log     logging.Logger
}

// New creates a Transcoder using the given runner and profile.
func New(runner Runner, profile Profile) *Transcoder {
	return &Transcoder{runner: runner, profile: profile}
}

// WithLogger returns a copy of t that tags its log lines with l.
func (t *Transcoder) WithLogger(l logging.Logger) *Transcoder {
	c := *t
	c.log = l
	return &c
}

// Profile returns the normalization profile.
func (t *Transcoder) Profile() Profile {
	return t.profile
}

// NormalizedName is the output file name for the input at 1-based index i.
func NormalizedName(i int) string {
	return fmt.Sprintf("normalized_%03d.mp4", i)
}

// Normalize re-encodes every source into dir, one at a time and in order.
// The first failure stops the stage; later sources are never started.
func (t *Transcoder) Normalize(ctx context.Context, sources []Source, dir string) ([]string, error) {
	outputs := make([]string, 0, len(sources))

	for i, src := range sources {
		index := i + 1
		output := filepath.Join(dir, NormalizedName(index))

		hasAudio, err := t.hasAudio(ctx, src.Path)
		if err != nil {
			return nil, t.stageFailure(StageTranscode, index, src.Name, err)
		}

		t.log.Info("Normalizing input %d/%d (%s, audio=%v)", index, len(sources), src.Name, hasAudio)

		inv := Invocation{Mode: ModeTranscode, Args: t.profile.TranscodeArgs(src.Path, output, hasAudio)}
		if _, err := t.runner.Run(ctx, inv); err != nil {
			return nil, t.stageFailure(StageTranscode, index, src.Name, err)
		}

		outputs = append(outputs, output)
	}

	return outputs, nil
}

func (t *Transcoder) hasAudio(ctx context.Context, path string) (bool, error) {
	out, err := t.runner.Run(ctx, Invocation{Mode: ModeProbe, Args: AudioProbeArgs(path)})
	if err != nil {
		return false, err
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

// Concatenate writes the manifest for outputs and joins them into
// dir/merged.mp4 with stream copy.
func (t *Transcoder) Concatenate(ctx context.Context, outputs []string, dir string) (string, error) {
	if len(outputs) == 0 {
		return "", &StageError{Stage: StageConcat, Err: errors.New("no normalized outputs")}
	}

	manifest := filepath.Join(dir, ManifestName)
	if err := WriteManifest(manifest, outputs); err != nil {
		return "", &StageError{Stage: StageConcat, Err: err}
	}

	merged := filepath.Join(dir, MergedName)
	t.log.Info("Concatenating %d normalized outputs", len(outputs))

	if _, err := t.runner.Run(ctx, Invocation{Mode: ModeConcat, Args: ConcatArgs(manifest, merged)}); err != nil {
		return "", t.stageFailure(StageConcat, 0, "", err)
	}

	return merged, nil
}

func (t *Transcoder) stageFailure(stage Stage, index int, input string, err error) *StageError {
	stageErr := &StageError{Stage: stage, Index: index, Input: input, Err: err}

	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		stageErr.Stderr = engineErr.Stderr
	}

	t.log.Error("%v", stageErr)
	if stageErr.Stderr != "" {
		t.log.Error("Engine stderr: %s", tail(stageErr.Stderr, 2048))
	}
	return stageErr
}

// WriteManifest writes a concat-demuxer list: one `file '<path>'` line per
// output, in order, with absolute paths and single quotes escaped.
func WriteManifest(path string, outputs []string) error {
	var b strings.Builder
	for _, out := range outputs {
		abs, err := filepath.Abs(out)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", out, err)
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest parses a manifest written by WriteManifest back into paths.
func ReadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "file '") || !strings.HasSuffix(line, "'") {
			return nil, fmt.Errorf("malformed manifest line %q", line)
		}
		quoted := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
		paths = append(paths, strings.ReplaceAll(quoted, `'\''`, "'"))
	}
	return paths, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
