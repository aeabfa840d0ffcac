// Package startup loads configuration and provides startup and shutdown
// logging.
//
// # Configuration
//
// [LoadConfig] layers settings in this order, later sources winning:
//
//  1. built-in defaults ([DefaultConfig])
//  2. an optional config file, TOML (.toml) or YAML (.yaml, .yml)
//  3. environment variables
//  4. command line flags, applied by the caller
//
// Environment variables:
//
//   - MEDIA_DIR: root directory to index in serve mode (default: /media)
//   - DATABASE_DRIVER: sqlite or postgres (default: sqlite)
//   - DATABASE_DIR: directory holding the SQLite file (default: /database)
//   - DATABASE_DSN: PostgreSQL connection string
//   - THUMBNAIL_STORE: local or s3 (default: local)
//   - THUMBNAIL_DIR: local thumbnail root (default: /cache/thumbnails)
//   - S3_BUCKET, S3_PREFIX, S3_REGION, S3_ENDPOINT: S3 thumbnail store
//   - S3_ACCESS_KEY, S3_SECRET_KEY: static S3 credentials (default: AWS credential chain)
//   - INDEX_WORKERS, THUMBNAIL_WORKERS: a number or "auto" (default: 1)
//   - INDEX_INTERVAL: scan period in serve mode (default: 1h)
//   - THUMBNAIL_INTERVAL: thumbnail period in serve mode (default: 6h)
//   - LISTEN_ADDR: status and metrics listener (default: :9090)
//   - IGNORE_PATTERNS: comma-separated gitignore-style patterns
//   - PATH_LABELS_INCLUDE_DELETED: count soft-deleted files in path labels (default: true)
//   - VIPS_ENABLED: decode images with libvips (default: false)
//   - LOCK_FILE: run lock path (default: DATABASE_DIR/.media-indexer.lock)
//   - LOG_LEVEL, LOG_FORMAT, DEBUG: logging
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
