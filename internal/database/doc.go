// Package database implements the record store for the media indexer.
//
// It persists four kinds of records:
//   - file entries: one row per observed path, soft-deleted when a scan no
//     longer sees it
//   - media items: one row per distinct content hash
//   - tags and their associations with media items
//   - path labels: a fully rebuilt per-directory-name count
//
// Two dialects are supported. SQLite (github.com/mattn/go-sqlite3) is the
// default and runs in WAL mode with a busy timeout; PostgreSQL
// (github.com/lib/pq) is selected with DATABASE_DRIVER=postgres. Queries are
// written with '?' placeholders and rebound for PostgreSQL. The schema is
// applied at open time by the migrations subpackage.
package database
