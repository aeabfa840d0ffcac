package migrations

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "migrate.db")+"?_foreign_keys=1")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUp_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	for _, table := range []string{"file_entry", "media_item", "tag", "media_item_tag", "path_label", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s was not created: %v", table, err)
		}
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("first MigrateUp() failed: %v", err)
	}
	if err := MigrateUp(db, SQLite); err != nil {
		t.Errorf("second MigrateUp() failed: %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	db := openTestDB(t)

	status, err := CheckStatus(db, SQLite)
	if err != nil {
		t.Fatalf("CheckStatus() on fresh db failed: %v", err)
	}
	if status.Current() {
		t.Errorf("fresh database reported current: %+v", status)
	}

	if err := MigrateUp(db, SQLite); err != nil {
		t.Fatalf("MigrateUp() failed: %v", err)
	}

	status, err = CheckStatus(db, SQLite)
	if err != nil {
		t.Fatalf("CheckStatus() after migration failed: %v", err)
	}
	if !status.Current() {
		t.Errorf("expected current schema, got %+v", status)
	}
}

func TestLatestVersionPerDialect(t *testing.T) {
	for _, dialect := range []string{SQLite, Postgres} {
		v, err := LatestVersion(dialect)
		if err != nil {
			t.Fatalf("LatestVersion(%s) failed: %v", dialect, err)
		}
		if v < 1 {
			t.Errorf("LatestVersion(%s) = %d, want >= 1", dialect, v)
		}
	}

	sqliteV, _ := LatestVersion(SQLite)
	pgV, _ := LatestVersion(Postgres)
	if sqliteV != pgV {
		t.Errorf("dialects out of step: sqlite=%d postgres=%d", sqliteV, pgV)
	}
}

func TestUnknownDialect(t *testing.T) {
	db := openTestDB(t)
	if err := MigrateUp(db, "oracle"); !errors.Is(err, ErrUnknownDialect) {
		t.Errorf("MigrateUp(oracle) error = %v, want ErrUnknownDialect", err)
	}
}
