package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"mp4-creator/internal/streaming"
	"mp4-creator/internal/transcoder"
	"mp4-creator/internal/workspace"
)

// Kind classifies a merge failure.
type Kind int

const (
	KindInternal Kind = iota
	KindEngineUnavailable
	KindValidation
	KindPayloadTooLarge
	KindTranscode
	KindConcatenation
	KindDelivery
	KindCanceled
)

// String returns the kind as used in the merges_total outcome label.
func (k Kind) String() string {
	switch k {
	case KindEngineUnavailable:
		return "engine_unavailable"
	case KindValidation:
		return "validation"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindTranscode:
		return "transcode"
	case KindConcatenation:
		return "concatenation"
	case KindDelivery:
		return "delivery"
	case KindCanceled:
		return "canceled"
	default:
		return "internal"
	}
}

// Failure is the only error shape that leaves the pipeline. Message and Hints
// are safe to show to the client; Err carries the cause for logs.
type Failure struct {
	Kind    Kind
	Message string
	Hints   []string
	Err     error

	// Committed is set when part of the response was already written, so no
	// error body can follow.
	Committed bool
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Status maps the failure to an HTTP status code.
func (f *Failure) Status() int {
	switch f.Kind {
	case KindEngineUnavailable:
		return http.StatusServiceUnavailable
	case KindValidation:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Validation returns a client input failure.
func Validation(message string, hints ...string) *Failure {
	return &Failure{Kind: KindValidation, Message: message, Hints: hints}
}

// PayloadTooLarge returns a size-limit failure.
func PayloadTooLarge(message string, err error, hints ...string) *Failure {
	return &Failure{Kind: KindPayloadTooLarge, Message: message, Hints: hints, Err: err}
}

// Internal returns a server-side failure with a generic message.
func Internal(err error) *Failure {
	return &Failure{Kind: KindInternal, Message: "Internal error while merging videos", Err: err}
}

func engineUnavailable() *Failure {
	return &Failure{
		Kind:    KindEngineUnavailable,
		Message: "Video processing is unavailable: ffmpeg was not found on the server",
		Hints: []string{
			"Install ffmpeg (including ffprobe) on the server",
			"Or set FFMPEG_PATH and FFPROBE_PATH to the binaries and restart",
		},
	}
}

func canceled(err error) *Failure {
	return &Failure{Kind: KindCanceled, Message: "Request canceled by client", Err: err, Committed: true}
}

// AsFailure converts any error produced while merging into a *Failure.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	var stageErr *transcoder.StageError
	if errors.As(err, &stageErr) {
		if stageErr.Stage == transcoder.StageTranscode {
			return &Failure{
				Kind:    KindTranscode,
				Message: fmt.Sprintf("Could not process video %d (%s)", stageErr.Index, stageErr.Input),
				Hints:   []string{"Check that the file is a playable, non-corrupted video"},
				Err:     err,
			}
		}
		return &Failure{
			Kind:    KindConcatenation,
			Message: "Could not merge the processed videos",
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, streaming.ErrNotStarted):
		return &Failure{Kind: KindDelivery, Message: "Could not read the merged video", Err: err}
	case errors.Is(err, streaming.ErrClientGone), errors.Is(err, context.Canceled):
		return canceled(err)
	case errors.Is(err, streaming.ErrAborted), errors.Is(err, streaming.ErrWriteTimeout):
		return &Failure{Kind: KindDelivery, Message: "Transfer of the merged video was interrupted", Err: err, Committed: true}
	case errors.Is(err, workspace.ErrCreate):
		return &Failure{Kind: KindInternal, Message: "Could not prepare a working directory", Err: err}
	}

	return Internal(err)
}
