package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"mp4-creator/internal/logging"
	"mp4-creator/internal/mediatypes"
	"mp4-creator/internal/metrics"
	"mp4-creator/internal/pipeline"
)

// Multipart field names.
const (
	FieldVideos = "videos"
	FieldOrder  = "order"
)

// maxOrderSize bounds a single order field.
const maxOrderSize = 64 * 1024

// Limits bounds what a single merge request may upload.
type Limits struct {
	MaxFiles       int
	MaxFileSize    int64
	MaxRequestSize int64
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxFiles:       20,
		MaxFileSize:    500 * 1000 * 1000,
		MaxRequestSize: 2 * 1000 * 1000 * 1000,
	}
}

// Reader streams multipart uploads into a workspace.
type Reader struct {
	limits Limits
}

// NewReader creates a Reader enforcing limits. Zero fields fall back to
// DefaultLimits.
func NewReader(limits Limits) *Reader {
	def := DefaultLimits()
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = def.MaxFiles
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = def.MaxFileSize
	}
	if limits.MaxRequestSize <= 0 {
		limits.MaxRequestSize = def.MaxRequestSize
	}
	return &Reader{limits: limits}
}

// Limits returns the enforced limits.
func (u *Reader) Limits() Limits {
	return u.limits
}

// Receive returns a pipeline.ReceiveFunc that reads the multipart body of r.
// Every "videos" part is written to upload_<uuid><ext> inside the workspace;
// client file names are kept only as declared names.
func (u *Reader) Receive(w http.ResponseWriter, r *http.Request) pipeline.ReceiveFunc {
	return func(ctx context.Context, dir string) (pipeline.Submission, error) {
		if r.ContentLength > u.limits.MaxRequestSize {
			return pipeline.Submission{}, u.requestTooLarge(nil)
		}
		r.Body = http.MaxBytesReader(w, r.Body, u.limits.MaxRequestSize)

		mr, err := r.MultipartReader()
		if err != nil {
			return pipeline.Submission{}, reject("malformed", pipeline.Validation(
				"Expected a multipart/form-data upload",
				fmt.Sprintf("Send videos as %q file fields", FieldVideos),
			))
		}
		return u.read(ctx, mr, dir)
	}
}

func (u *Reader) read(ctx context.Context, mr *multipart.Reader, dir string) (pipeline.Submission, error) {
	var sub pipeline.Submission
	var orderFields []string
	var total int64

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sub, u.readFailure(ctx, err)
		}

		switch part.FormName() {
		case FieldVideos:
			in, err := u.storeVideo(ctx, part, dir, len(sub.Inputs))
			part.Close()
			if err != nil {
				return sub, err
			}
			total += in.Size
			sub.Inputs = append(sub.Inputs, in)

		case FieldOrder:
			value, err := io.ReadAll(io.LimitReader(part, maxOrderSize+1))
			part.Close()
			if err != nil {
				return sub, u.readFailure(ctx, err)
			}
			if len(value) > maxOrderSize {
				return sub, reject("malformed", pipeline.Validation("Order field is too large"))
			}
			orderFields = append(orderFields, string(value))

		default:
			_, err := io.Copy(io.Discard, part)
			part.Close()
			if err != nil {
				return sub, u.readFailure(ctx, err)
			}
		}
	}

	order, err := ParseOrder(orderFields)
	if err != nil {
		return sub, reject("malformed", err)
	}
	sub.Order = order

	logging.Debug("Received %d videos (%s) into %s", len(sub.Inputs), humanize.Bytes(uint64(total)), dir)
	return sub, nil
}

func (u *Reader) storeVideo(ctx context.Context, part *multipart.Part, dir string, received int) (pipeline.Input, error) {
	name := part.FileName()
	if name == "" {
		return pipeline.Input{}, reject("malformed", pipeline.Validation(
			fmt.Sprintf("Field %q must contain files", FieldVideos),
		))
	}

	if received >= u.limits.MaxFiles {
		return pipeline.Input{}, reject("too_many_files", pipeline.Validation(
			fmt.Sprintf("Too many videos: at most %d are allowed", u.limits.MaxFiles),
		))
	}

	ext := mediatypes.Ext(name)
	contentType := part.Header.Get("Content-Type")
	if !mediatypes.IsVideo(name) || !mediatypes.IsVideoMimeType(contentType) {
		return pipeline.Input{}, reject("unsupported_type", pipeline.Validation(
			fmt.Sprintf("Unsupported file type: %s", name),
			"Accepted formats: "+strings.Join(mediatypes.Extensions(), ", "),
		))
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediatypes.GetMimeType(ext)
	}

	stored := filepath.Join(dir, "upload_"+uuid.NewString()+ext)
	f, err := os.OpenFile(stored, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return pipeline.Input{}, pipeline.Internal(fmt.Errorf("failed to create upload file: %w", err))
	}

	n, copyErr := io.Copy(f, io.LimitReader(part, u.limits.MaxFileSize+1))
	closeErr := f.Close()
	metrics.UploadedBytesTotal.Add(float64(n))

	switch {
	case copyErr != nil:
		return pipeline.Input{}, u.readFailure(ctx, copyErr)
	case n > u.limits.MaxFileSize:
		return pipeline.Input{}, reject("file_too_large", pipeline.PayloadTooLarge(
			fmt.Sprintf("%s exceeds the %s per-file limit", name, humanize.Bytes(uint64(u.limits.MaxFileSize))),
			nil,
		))
	case closeErr != nil:
		return pipeline.Input{}, pipeline.Internal(fmt.Errorf("failed to write upload file: %w", closeErr))
	}

	logging.Debug("Stored upload %d (%s, %s) as %s", received+1, name, humanize.Bytes(uint64(n)), filepath.Base(stored))

	return pipeline.Input{
		DeclaredName: name,
		StoredPath:   stored,
		Size:         n,
		MediaType:    contentType,
	}, nil
}

// readFailure classifies an error reading the request body.
func (u *Reader) readFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return u.requestTooLarge(err)
	}
	return reject("malformed", &pipeline.Failure{
		Kind:    pipeline.KindValidation,
		Message: "Upload could not be read",
		Err:     err,
	})
}

func (u *Reader) requestTooLarge(err error) error {
	return reject("request_too_large", pipeline.PayloadTooLarge(
		fmt.Sprintf("Upload exceeds the %s request limit", humanize.Bytes(uint64(u.limits.MaxRequestSize))),
		err,
		"Merge fewer or smaller videos",
	))
}

func reject(reason string, err error) error {
	metrics.UploadRejectionsTotal.WithLabelValues(reason).Inc()
	return err
}

// ParseOrder turns the submitted order fields into declared names. A single
// field holding a JSON array is decoded; otherwise each field is one name.
// Blank fields are ignored and no fields means arrival order.
func ParseOrder(fields []string) ([]string, error) {
	if len(fields) == 1 {
		value := strings.TrimSpace(fields[0])
		if strings.HasPrefix(value, "[") {
			var names []string
			if err := json.Unmarshal([]byte(value), &names); err != nil {
				return nil, pipeline.Validation(
					"Order must be a JSON array of file names",
					`Example: ["intro.mp4","main.mov"]`,
				)
			}
			return names, nil
		}
	}

	var names []string
	for _, f := range fields {
		if f == "" {
			continue
		}
		names = append(names, f)
	}
	return names, nil
}
