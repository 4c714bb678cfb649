package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"mp4-creator/internal/filesystem"
	"mp4-creator/internal/logging"
	"mp4-creator/internal/metrics"
)

// Sentinel errors for delivery outcomes.
var (
	// ErrWriteTimeout indicates that a chunk could not be written before the
	// per-chunk deadline. This typically occurs when a client stops reading.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream
	// completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrAborted indicates a read failure after bytes were already sent. The
	// transfer is cut short and nothing more can be written.
	ErrAborted = errors.New("delivery aborted")

	// ErrNotStarted indicates the result could not be read before anything
	// was sent. Delivery headers have been withdrawn, so the caller may still
	// write an error response.
	ErrNotStarted = errors.New("delivery not started")
)

// Name the merged result is offered under.
const AttachmentName = "merged.mp4"

// Config configures a Delivery.
type Config struct {
	// WriteTimeout bounds each chunk write (0 = no deadline)
	WriteTimeout time.Duration
	// ChunkSize is the read/write buffer size
	ChunkSize int
	// OnProgress is called roughly once per MiB written
	OnProgress func(bytesWritten int64, duration time.Duration)
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024, // 64KB chunks
	}
}

// Opener opens the file to deliver and reports its size.
type Opener func(path string) (io.ReadCloser, int64, error)

func openFile(path string) (io.ReadCloser, int64, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Delivery streams a finished merge result to an HTTP client.
type Delivery struct {
	config Config
	open   Opener
}

// New creates a Delivery reading from the local filesystem.
func New(config Config) *Delivery {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultConfig().ChunkSize
	}
	return &Delivery{config: config, open: openFile}
}

// WithOpener replaces how result files are opened.
func (d *Delivery) WithOpener(open Opener) *Delivery {
	d.open = open
	return d
}

var deliveryHeaders = []string{"Content-Type", "Content-Disposition", "Content-Length", "X-Content-Type-Options"}

// Serve streams the file at path to w as an attachment named merged.mp4 and
// returns the number of bytes written.
//
// When ctx is canceled the file is closed immediately and ErrClientGone is
// returned. A read failure before any byte was sent returns an error wrapping
// ErrNotStarted with the delivery headers removed; after that it returns
// ErrAborted.
func (d *Delivery) Serve(ctx context.Context, w http.ResponseWriter, path string) (int64, error) {
	if ctx.Err() != nil {
		d.record("client_gone", 0)
		return 0, ErrClientGone
	}

	reader, size, err := d.open(path)
	if err != nil {
		d.record("read_error", 0)
		return 0, fmt.Errorf("%w: %w", ErrNotStarted, err)
	}

	var closeOnce sync.Once
	closeReader := func() {
		closeOnce.Do(func() {
			if err := reader.Close(); err != nil {
				logging.Debug("close delivery reader: %v", err)
			}
		})
	}
	defer closeReader()
	stop := context.AfterFunc(ctx, closeReader)
	defer stop()

	h := w.Header()
	h.Set("Content-Type", "video/mp4")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", AttachmentName))
	h.Set("Content-Length", fmt.Sprintf("%d", size))
	h.Set("X-Content-Type-Options", "nosniff")

	rc := http.NewResponseController(w)
	buf := make([]byte, d.config.ChunkSize)
	start := time.Now()
	var written int64
	nextProgress := int64(1 << 20)

	for {
		n, readErr := reader.Read(buf)
		if ctx.Err() != nil {
			d.record("client_gone", written)
			return written, ErrClientGone
		}

		if n > 0 {
			d.setDeadline(rc, time.Now().Add(d.config.WriteTimeout))
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, d.writeFailure(ctx, written, writeErr)
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return written, d.writeFailure(ctx, written, err)
			}

			if d.config.OnProgress != nil && written >= nextProgress {
				d.config.OnProgress(written, time.Since(start))
				nextProgress = written + 1<<20
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			d.record("read_error", written)
			if written == 0 {
				for _, k := range deliveryHeaders {
					h.Del(k)
				}
				return 0, fmt.Errorf("%w: %w", ErrNotStarted, readErr)
			}
			return written, fmt.Errorf("%w after %d bytes: %w", ErrAborted, written, readErr)
		}
	}

	d.setDeadline(rc, time.Time{})
	d.record("complete", written)
	logging.Debug("Delivery completed: %d bytes in %v", written, time.Since(start))
	return written, nil
}

func (d *Delivery) setDeadline(rc *http.ResponseController, deadline time.Time) {
	if d.config.WriteTimeout <= 0 {
		return
	}
	if err := rc.SetWriteDeadline(deadline); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Debug("set write deadline: %v", err)
	}
}

func (d *Delivery) writeFailure(ctx context.Context, written int64, err error) error {
	if ctx.Err() != nil {
		d.record("client_gone", written)
		return ErrClientGone
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		d.record("write_timeout", written)
		return ErrWriteTimeout
	}
	d.record("client_gone", written)
	return fmt.Errorf("%w: %w", ErrClientGone, err)
}

func (d *Delivery) record(outcome string, written int64) {
	metrics.DeliveriesTotal.WithLabelValues(outcome).Inc()
	if written > 0 {
		metrics.DeliveredBytesTotal.Add(float64(written))
	}
}
