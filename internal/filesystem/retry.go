package filesystem

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"

	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// options builds retry-go options that retry only stale NFS handles.
func (c RetryConfig) options(ctx context.Context, op, path string) []retry.Option {
	return []retry.Option{
		retry.Attempts(uint(c.MaxRetries) + 1),
		retry.Delay(c.InitialBackoff),
		retry.MaxDelay(c.MaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(isNFSStaleError),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			metrics.FilesystemStaleErrors.WithLabelValues(op).Inc()
			metrics.FilesystemRetryAttempts.WithLabelValues(op).Inc()
			logging.Debug("NFS %s stale file handle for %s, retrying (attempt %d/%d)", op, path, n+1, c.MaxRetries)
		}),
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	// ESTALE is errno 116 on Linux
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}

	return false
}

func withRetry[T any](ctx context.Context, op, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	attempts := 0
	v, err := retry.DoWithData(func() (T, error) {
		attempts++
		return fn()
	}, config.options(ctx, op, path)...)

	if err != nil && isNFSStaleError(err) {
		metrics.FilesystemStaleErrors.WithLabelValues(op).Inc()
		metrics.FilesystemRetryFailures.WithLabelValues(op).Inc()
		logging.Warn("NFS %s failed after %d retries for %s: %v", op, attempts-1, path, err)
	} else if err == nil && attempts > 1 {
		logging.Info("NFS %s succeeded on retry %d for %s", op, attempts-1, path)
	}
	return v, err
}

// StatWithRetry performs os.Stat, retrying NFS stale file handle errors
func StatWithRetry(ctx context.Context, path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry(ctx, "stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry performs os.Open, retrying NFS stale file handle errors
func OpenWithRetry(ctx context.Context, path string, config RetryConfig) (*os.File, error) {
	return withRetry(ctx, "open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}
