package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"media-indexer/internal/logging"
	"media-indexer/internal/workers"
)

// ErrInvalidRoot is returned when the directory to index is unusable.
var ErrInvalidRoot = errors.New("invalid media root")

// DatabaseFile is the SQLite file name inside DatabaseDir.
const DatabaseFile = "media-index.db"

// Thumbnail store kinds.
const (
	StoreLocal = "local"
	StoreS3    = "s3"
)

// WorkerCount is a configured parallelism level. It accepts a number or
// "auto", which maps to workers.Auto.
type WorkerCount int

// ParseWorkerCount parses a worker setting. Values below 1 become 1.
func ParseWorkerCount(s string) (WorkerCount, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return WorkerCount(workers.Auto), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid worker count %q: want a number or \"auto\"", s)
	}
	return WorkerCount(n).normalize(), nil
}

func (w WorkerCount) normalize() WorkerCount {
	if w == WorkerCount(workers.Auto) || w >= 1 {
		return w
	}
	return 1
}

// UnmarshalTOML accepts integers and strings.
func (w *WorkerCount) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case int64:
		*w = WorkerCount(t).normalize()
		return nil
	case string:
		parsed, err := ParseWorkerCount(t)
		if err != nil {
			return err
		}
		*w = parsed
		return nil
	default:
		return fmt.Errorf("invalid worker count %v", v)
	}
}

// UnmarshalYAML accepts integers and strings.
func (w *WorkerCount) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseWorkerCount(node.Value)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// String renders the count as it would be configured.
func (w WorkerCount) String() string {
	if w == WorkerCount(workers.Auto) {
		return "auto"
	}
	return strconv.Itoa(int(w))
}

// Duration is a time.Duration read from Go duration strings such as "90m".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// S3Config locates the thumbnail bucket when ThumbnailStore is "s3".
type S3Config struct {
	Bucket   string `toml:"bucket" yaml:"bucket"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
	Region   string `toml:"region" yaml:"region"`
	Endpoint string `toml:"endpoint" yaml:"endpoint"`

	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
}

// Config holds all application configuration.
type Config struct {
	MediaDir string `toml:"media_dir" yaml:"media_dir"`

	DatabaseDriver string `toml:"database_driver" yaml:"database_driver"`
	DatabaseDir    string `toml:"database_dir" yaml:"database_dir"`
	DatabaseDSN    string `toml:"database_dsn" yaml:"database_dsn"`

	ThumbnailStore string   `toml:"thumbnail_store" yaml:"thumbnail_store"`
	ThumbnailDir   string   `toml:"thumbnail_dir" yaml:"thumbnail_dir"`
	S3             S3Config `toml:"s3" yaml:"s3"`
	VIPSEnabled    bool     `toml:"vips_enabled" yaml:"vips_enabled"`

	IndexWorkers     WorkerCount `toml:"index_workers" yaml:"index_workers"`
	ThumbnailWorkers WorkerCount `toml:"thumbnail_workers" yaml:"thumbnail_workers"`

	IndexInterval     Duration `toml:"index_interval" yaml:"index_interval"`
	ThumbnailInterval Duration `toml:"thumbnail_interval" yaml:"thumbnail_interval"`
	ListenAddr        string   `toml:"listen_addr" yaml:"listen_addr"`

	IgnorePatterns           []string `toml:"ignore_patterns" yaml:"ignore_patterns"`
	PathLabelsIncludeDeleted bool     `toml:"path_labels_include_deleted" yaml:"path_labels_include_deleted"`

	LockFile  string `toml:"lock_file" yaml:"lock_file"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
	Debug     bool   `toml:"debug" yaml:"debug"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		MediaDir:                 "/media",
		DatabaseDriver:           "sqlite",
		DatabaseDir:              "/database",
		ThumbnailStore:           StoreLocal,
		ThumbnailDir:             "/cache/thumbnails",
		IndexWorkers:             1,
		ThumbnailWorkers:         1,
		IndexInterval:            Duration(time.Hour),
		ThumbnailInterval:        Duration(6 * time.Hour),
		ListenAddr:               ":9090",
		PathLabelsIncludeDeleted: true,
	}
}

// DatabasePath is the SQLite file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DatabaseDir, DatabaseFile)
}

// LockPath is the run lock location.
func (c *Config) LockPath() string {
	if c.LockFile != "" {
		return c.LockFile
	}
	return filepath.Join(c.DatabaseDir, ".media-indexer.lock")
}

// LoadConfig builds the configuration from defaults, then the optional file
// at path (.toml, .yaml or .yml), then environment variables. Command line
// overrides are applied by the caller before Validate.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	logging.Configure(cfg.LogLevel, cfg.LogFormat, cfg.Debug)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.MediaDir = getEnv("MEDIA_DIR", c.MediaDir)
	c.DatabaseDriver = getEnv("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseDir = getEnv("DATABASE_DIR", c.DatabaseDir)
	c.DatabaseDSN = getEnv("DATABASE_DSN", c.DatabaseDSN)
	c.ThumbnailStore = getEnv("THUMBNAIL_STORE", c.ThumbnailStore)
	c.ThumbnailDir = getEnv("THUMBNAIL_DIR", c.ThumbnailDir)
	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.Prefix = getEnv("S3_PREFIX", c.S3.Prefix)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("S3_SECRET_KEY", c.S3.SecretKey)
	c.VIPSEnabled = getEnvBool("VIPS_ENABLED", c.VIPSEnabled)
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.PathLabelsIncludeDeleted = getEnvBool("PATH_LABELS_INCLUDE_DELETED", c.PathLabelsIncludeDeleted)
	c.LockFile = getEnv("LOCK_FILE", c.LockFile)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Debug = getEnvBool("DEBUG", c.Debug)

	if v := os.Getenv("IGNORE_PATTERNS"); v != "" {
		c.IgnorePatterns = splitList(v)
	}

	for key, target := range map[string]*WorkerCount{
		"INDEX_WORKERS":     &c.IndexWorkers,
		"THUMBNAIL_WORKERS": &c.ThumbnailWorkers,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := ParseWorkerCount(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*target = n
		}
	}

	for key, target := range map[string]*Duration{
		"INDEX_INTERVAL":     &c.IndexInterval,
		"THUMBNAIL_INTERVAL": &c.ThumbnailInterval,
	} {
		if v := os.Getenv(key); v != "" {
			if err := target.UnmarshalText([]byte(v)); err != nil {
				logging.Warn("Invalid %s %q, using %v", key, v, time.Duration(*target))
			}
		}
	}
	return nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.DatabaseDriver)
	}

	switch c.ThumbnailStore {
	case StoreLocal:
		if c.ThumbnailDir == "" {
			return errors.New("THUMBNAIL_DIR is required for the local thumbnail store")
		}
	case StoreS3:
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for the s3 thumbnail store")
		}
	default:
		return fmt.Errorf("unknown thumbnail store %q", c.ThumbnailStore)
	}

	if c.IndexInterval <= 0 || c.ThumbnailInterval <= 0 {
		return errors.New("intervals must be positive")
	}

	c.IndexWorkers = c.IndexWorkers.normalize()
	c.ThumbnailWorkers = c.ThumbnailWorkers.normalize()
	return nil
}

// Log prints the effective configuration. Secrets are not printed.
func (c *Config) Log() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  MEDIA_DIR:                    %s", c.MediaDir)
	logging.Info("  DATABASE_DRIVER:              %s", c.DatabaseDriver)
	if c.DatabaseDriver == "sqlite" {
		logging.Info("  DATABASE_DIR:                 %s", c.DatabaseDir)
	}
	logging.Info("  THUMBNAIL_STORE:              %s", c.ThumbnailStore)
	if c.ThumbnailStore == StoreS3 {
		logging.Info("  S3_BUCKET:                    %s", c.S3.Bucket)
	} else {
		logging.Info("  THUMBNAIL_DIR:                %s", c.ThumbnailDir)
	}
	logging.Info("  INDEX_WORKERS:                %s", c.IndexWorkers)
	logging.Info("  THUMBNAIL_WORKERS:            %s", c.ThumbnailWorkers)
	logging.Info("  INDEX_INTERVAL:               %v", time.Duration(c.IndexInterval))
	logging.Info("  THUMBNAIL_INTERVAL:           %v", time.Duration(c.ThumbnailInterval))
	logging.Info("  LISTEN_ADDR:                  %s", c.ListenAddr)
	logging.Info("  IGNORE_PATTERNS:              %d", len(c.IgnorePatterns))
	logging.Info("  PATH_LABELS_INCLUDE_DELETED:  %v", c.PathLabelsIncludeDeleted)
	logging.Info("  VIPS_ENABLED:                 %v", c.VIPSEnabled)
	logging.Info("  LOG_LEVEL:                    %s", logging.GetLevel())
}

// ValidateRoot checks that root is an existing directory and returns its
// absolute path with symlinks resolved.
func ValidateRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidRoot)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	// The walk does not follow a symlinked root, so resolve it here.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRoot, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidRoot, abs)
	}
	return resolved, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
