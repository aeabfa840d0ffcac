package startup

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "Returns default when env var empty",
			key:          "TEST_MEDIA_INDEXER_UNSET",
			defaultValue: "default",
			want:         "default",
		},
		{
			name:         "Returns env value when set",
			key:          "TEST_MEDIA_INDEXER_SET",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "unset keeps default true", envValue: "", defaultValue: true, want: true},
		{name: "unset keeps default false", envValue: "", defaultValue: false, want: false},
		{name: "true", envValue: "true", defaultValue: false, want: true},
		{name: "false", envValue: "false", defaultValue: true, want: false},
		{name: "one", envValue: "1", defaultValue: false, want: true},
		{name: "invalid falls back", envValue: "maybe", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MEDIA_INDEXER_BOOL", tt.envValue)
			if got := getEnvBool("TEST_MEDIA_INDEXER_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetRoutes(t *testing.T) {
	router := mux.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	router.HandleFunc("/metrics", noop).Methods(http.MethodGet)
	router.HandleFunc("/api/scan", noop).Methods(http.MethodPost).Name("scan")

	routes, err := GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("Expected 2 routes, got %d", len(routes))
	}
	if routes[0].Path != "/api/scan" || routes[0].Method != http.MethodPost || routes[0].Name != "scan" {
		t.Errorf("Unexpected first route %+v", routes[0])
	}
}

func TestEnsureDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/db"
	if err := EnsureDirectory(dir, "database"); err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}
	if err := testWriteAccess(dir); err != nil {
		t.Errorf("Expected writable directory: %v", err)
	}
}
