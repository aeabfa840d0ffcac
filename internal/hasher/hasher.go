// Package hasher computes content fingerprints for indexed files.
package hasher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"time"

	"media-indexer/internal/filesystem"
	"media-indexer/internal/metrics"
)

// Hasher produces a stable lowercase hex fingerprint of a file's bytes.
type Hasher interface {
	Hash(ctx context.Context, path string) (string, error)
}

// SHA256 hashes file contents with SHA-256. The zero value is ready to use.
type SHA256 struct {
	Retry filesystem.RetryConfig
}

// New returns a SHA-256 hasher with the default NFS retry policy.
func New() *SHA256 {
	return &SHA256{Retry: filesystem.DefaultRetryConfig()}
}

// Hash streams the file through SHA-256. The read is abandoned when ctx is
// cancelled.
func (s *SHA256) Hash(ctx context.Context, path string) (string, error) {
	start := time.Now()
	defer func() { metrics.ScanHashDuration.Observe(time.Since(start).Seconds()) }()

	f, err := filesystem.OpenWithRetry(ctx, path, s.Retry)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, &ctxReader{ctx: ctx, r: f}); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return encode(h), nil
}

// Bytes returns the fingerprint of b, matching Hash for a file with the same
// content.
func Bytes(b []byte) string {
	h := sha256.New()
	h.Write(b)
	return encode(h)
}

func encode(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
