// Package main provides the media-indexer command.
//
// media-indexer keeps a record store in step with a media directory tree.
// Each scan cycle walks the tree, hashes new or changed files, links every
// path to a content-addressed media item, derives tags from path segments,
// soft-deletes files that disappeared and rebuilds the path label aggregate.
// A second pass renders JPEG thumbnails for image items into a local
// directory or an S3 bucket.
//
// # Commands
//
//	media-indexer scan <root> [--workers N] [--config file]
//	media-indexer thumbnails [--force] [--workers N]
//	media-indexer serve [--config file]
//	media-indexer migrate
//	media-indexer version
//
// scan and thumbnails run one cycle and exit non-zero on failure. serve
// runs both periodically, exposes /healthz, /readyz, /status, /version,
// POST /api/scan, POST /api/thumbnails and /metrics, and shuts down
// gracefully on SIGINT or SIGTERM. A second signal forces exit.
//
// # Configuration
//
// Settings come from built-in defaults, then an optional TOML or YAML file
// passed with --config, then environment variables:
//
//   - MEDIA_DIR: directory tree to index (default /media)
//   - DATABASE_DRIVER: sqlite (default) or postgres
//   - DATABASE_DIR: SQLite directory (default /database)
//   - DATABASE_DSN: PostgreSQL connection string
//   - THUMBNAIL_STORE: local (default) or s3
//   - THUMBNAIL_DIR: local thumbnail directory (default /cache/thumbnails)
//   - S3_BUCKET, S3_PREFIX, S3_REGION, S3_ENDPOINT: S3 thumbnail store
//   - S3_ACCESS_KEY, S3_SECRET_KEY: static S3 credentials
//   - VIPS_ENABLED: decode through libvips
//   - INDEX_WORKERS, THUMBNAIL_WORKERS: a number or "auto"
//   - INDEX_INTERVAL, THUMBNAIL_INTERVAL: serve mode periods (1h, 6h)
//   - LISTEN_ADDR: serve mode listener (default :9090)
//   - IGNORE_PATTERNS: comma separated gitignore-style patterns
//   - PATH_LABELS_INCLUDE_DELETED: count soft-deleted files in path labels
//   - LOCK_FILE: run lock location
//   - LOG_LEVEL, LOG_FORMAT, DEBUG: logging
//   - GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO: Go soft memory limit
package main
