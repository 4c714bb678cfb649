package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"mp4-creator/internal/logging"
	"mp4-creator/internal/metrics"
)

// RetryConfig configures retry behavior for transient filesystem errors
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for transient error retries
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStaleError checks if an error is an NFS stale file handle error
func isStaleError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// isRemoveRetryable reports errors a removal can recover from: stale NFS
// handles, files still held open by a process that is being killed, and a
// directory that gained an entry while it was being emptied.
func isRemoveRetryable(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == syscall.ESTALE || errno == syscall.EBUSY || errno == syscall.ENOTEMPTY
}

// withRetry runs fn until it succeeds, fails with a non-retryable error, or
// MaxRetries retries have been spent.
func withRetry(op, path string, config RetryConfig, retryable func(error) bool, fn func() error) error {
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
				metrics.FilesystemRetriesTotal.WithLabelValues(op, "success").Inc()
			}
			return nil
		}

		lastErr = err
		if !retryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			metrics.FilesystemRetriesTotal.WithLabelValues(op, "attempt").Inc()
			logging.Debug("%s failed for %s (%v), retrying in %v (attempt %d/%d)",
				op, path, err, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)

			// Exponential backoff with cap
			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetriesTotal.WithLabelValues(op, "failure").Inc()
	return lastErr
}

// RemoveAllWithRetry performs os.RemoveAll, retrying transient errors.
func RemoveAllWithRetry(path string, config RetryConfig) error {
	return withRetry("remove", path, config, isRemoveRetryable, func() error {
		return os.RemoveAll(path)
	})
}

// OpenWithRetry performs os.Open with retry logic for NFS stale file handle errors
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	var file *os.File
	err := withRetry("open", path, config, isStaleError, func() error {
		var err error
		file, err = os.Open(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}
