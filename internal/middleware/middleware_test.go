package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"media-indexer/internal/logging"
	"media-indexer/internal/metrics"
)

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	if rw == nil {
		t.Fatal("Expected responseWriter to be created")
	}

	if rw.statusCode != http.StatusOK {
		t.Errorf("Expected default status code 200, got %d", rw.statusCode)
	}

	if rw.bytesWritten != 0 {
		t.Errorf("Expected bytesWritten to be 0, got %d", rw.bytesWritten)
	}

	if rw.wroteHeader {
		t.Error("Expected wroteHeader to be false initially")
	}
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", rw.statusCode)
	}

	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after WriteHeader")
	}

	// Write header again - should be ignored
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Error("Status code should not change after first WriteHeader")
	}
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	data := []byte("test data")
	n, err := rw.Write(data)

	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if n != len(data) {
		t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
	}

	if rw.bytesWritten != int64(len(data)) {
		t.Errorf("Expected bytesWritten to be %d, got %d", len(data), rw.bytesWritten)
	}

	if !rw.wroteHeader {
		t.Error("Expected wroteHeader to be true after Write")
	}
}


func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	original := logging.GetLevel()
	logging.SetLevel(logging.LevelInfo)
	t.Cleanup(func() {
		logging.SetOutput(os.Stderr)
		logging.SetLevel(original)
	})
	return &buf
}

func TestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		config        LoggingConfig
		expectLogging bool
	}{
		{
			name:          "Logs regular requests",
			path:          "/status",
			config:        DefaultLoggingConfig(),
			expectLogging: true,
		},
		{
			name:          "Skips metrics scrapes",
			path:          "/metrics",
			config:        DefaultLoggingConfig(),
			expectLogging: false,
		},
		{
			name:          "Logs health checks when enabled",
			path:          "/healthz",
			config:        LoggingConfig{LogHealthChecks: true},
			expectLogging: true,
		},
		{
			name:          "Skips health checks when disabled",
			path:          "/readyz",
			config:        LoggingConfig{LogHealthChecks: false},
			expectLogging: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)

			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})

			req := httptest.NewRequest("GET", tt.path, http.NoBody)
			w := httptest.NewRecorder()
			Logger(tt.config)(handler).ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}

			logged := strings.Contains(buf.String(), "http request")
			if logged != tt.expectLogging {
				t.Errorf("logged = %v, want %v (output %q)", logged, tt.expectLogging, buf.String())
			}
		})
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	buf := captureLogs(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	req := httptest.NewRequest("POST", "/api/scan", http.NoBody)
	Logger(DefaultLoggingConfig())(handler).ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "status=409") {
		t.Errorf("expected status in log output, got %q", buf.String())
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/status", "/status"},
		{"/a\nfake entry", "/a fake entry"},
		{"/a\r\nb", "/a  b"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tkept", "tab\tkept"},
		{"nul\x00byte", "nulbyte"},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.input); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "10.0.0.1:5000", nil, "10.0.0.1"},
		{"forwarded chain", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.2"}, "1.2.3.4"},
		{"single forwarded", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": " 5.6.7.8 "}, "5.6.7.8"},
		{"real ip", "10.0.0.1:5000", map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()
	for _, path := range []string{"/metrics", "/healthz", "/readyz"} {
		found := false
		for _, skip := range config.SkipPaths {
			if skip == path {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s in SkipPaths", path)
		}
	}
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics(DefaultMetricsConfig()))
	router.HandleFunc("/api/jobs/{name}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)

	counter := metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/jobs/{name}", "202")
	before := testutil.ToFloat64(counter)

	for _, name := range []string{"scan", "thumbnails"} {
		req := httptest.NewRequest("POST", "/api/jobs/"+name, http.NoBody)
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("expected 2 requests recorded under the route template, got %v", got)
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := Metrics(DefaultMetricsConfig())(handler)

	counter := metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "200")
	before := testutil.ToFloat64(counter)

	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/metrics", http.NoBody))
	if got := testutil.ToFloat64(counter) - before; got != 0 {
		t.Errorf("expected /metrics to be skipped, recorded %v", got)
	}

	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/elsewhere", http.NoBody))
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("expected unrouted request recorded as unmatched, got %v", got)
	}
}
