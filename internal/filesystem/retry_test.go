package filesystem

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "ESTALE error", err: syscall.ESTALE, want: true},
		{name: "wrapped ESTALE", err: &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, want: true},
		{name: "ENOENT error", err: syscall.ENOENT, want: false},
		{name: "generic error", err: os.ErrNotExist, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetry_RecoversFromStaleHandle(t *testing.T) {
	calls := 0
	got, err := withRetry(context.Background(), "stat", "/nfs/x", fastRetryConfig(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, &os.PathError{Op: "stat", Path: "/nfs/x", Err: syscall.ESTALE}
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("withRetry() error = %v, want nil", err)
	}
	if got != 42 {
		t.Errorf("withRetry() = %d, want 42", got)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), "open", "/nfs/x", fastRetryConfig(), func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 4 {
		t.Errorf("fn called %d times, want 4 (1 + 3 retries)", calls)
	}
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), "open", "/x", fastRetryConfig(), func() (int, error) {
		calls++
		return 0, syscall.EACCES
	})

	if !errors.Is(err, syscall.EACCES) {
		t.Errorf("withRetry() error = %v, want EACCES", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestStatWithRetry_Success(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	info, err := StatWithRetry(context.Background(), testFile, fastRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v, want nil", err)
	}
	if info.Size() != 4 {
		t.Errorf("FileInfo.Size() = %d, want 4", info.Size())
	}
}

func TestStatWithRetry_NotExist(t *testing.T) {
	nonExistent := filepath.Join(t.TempDir(), "nonexistent.txt")

	start := time.Now()
	info, err := StatWithRetry(context.Background(), nonExistent, DefaultRetryConfig())
	elapsed := time.Since(start)

	if !os.IsNotExist(err) {
		t.Errorf("StatWithRetry() error = %v, want os.IsNotExist", err)
	}
	if info != nil {
		t.Error("StatWithRetry() returned non-nil FileInfo for non-existent file")
	}
	if elapsed > 40*time.Millisecond {
		t.Errorf("StatWithRetry took %v, should not retry non-NFS errors", elapsed)
	}
}

func TestOpenWithRetry_Success(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "test.txt")
	content := []byte("test content")
	if err := os.WriteFile(testFile, content, 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	file, err := OpenWithRetry(context.Background(), testFile, fastRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v, want nil", err)
	}
	defer file.Close()

	buf := make([]byte, len(content))
	n, err := file.Read(buf)
	if err != nil {
		t.Errorf("file.Read() error = %v", err)
	}
	if n != len(content) || !bytes.Equal(buf, content) {
		t.Errorf("file.Read() content = %q, want %q", string(buf[:n]), string(content))
	}
}

func TestOpenWithRetry_NotExist(t *testing.T) {
	nonExistent := filepath.Join(t.TempDir(), "nonexistent.txt")

	file, err := OpenWithRetry(context.Background(), nonExistent, fastRetryConfig())
	if file != nil {
		file.Close()
		t.Error("OpenWithRetry() returned non-nil file for non-existent file")
	}
	if !os.IsNotExist(err) {
		t.Errorf("OpenWithRetry() error = %v, want os.IsNotExist", err)
	}
}

func BenchmarkStatWithRetry_Success(b *testing.B) {
	testFile := filepath.Join(b.TempDir(), "bench.txt")
	if err := os.WriteFile(testFile, []byte("x"), 0o644); err != nil {
		b.Fatalf("Failed to create test file: %v", err)
	}
	ctx := context.Background()
	config := DefaultRetryConfig()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = StatWithRetry(ctx, testFile, config)
	}
}

func BenchmarkNativeOsStat(b *testing.B) {
	testFile := filepath.Join(b.TempDir(), "bench.txt")
	if err := os.WriteFile(testFile, []byte("x"), 0o644); err != nil {
		b.Fatalf("Failed to create test file: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = os.Stat(testFile)
	}
}
