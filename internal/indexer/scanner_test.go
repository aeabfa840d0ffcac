package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"media-indexer/internal/database"
	"media-indexer/internal/hasher"
	"media-indexer/internal/mediatypes"
	"media-indexer/internal/startup"
)

var fixedMtime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t testing.TB) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), database.Options{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "index.db"),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeFile(t *testing.T, root, rel, content string, mtime time.Time) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Failed to set mtime on %s: %v", rel, err)
	}
	return path
}

// countingHasher counts Hash calls and can fail for selected paths.
type countingHasher struct {
	inner hasher.Hasher
	calls atomic.Int64
	fail  map[string]bool
}

func newCountingHasher() *countingHasher {
	return &countingHasher{inner: hasher.New(), fail: map[string]bool{}}
}

func (h *countingHasher) Hash(ctx context.Context, path string) (string, error) {
	h.calls.Add(1)
	if h.fail[path] {
		return "", fmt.Errorf("read %s: input/output error", path)
	}
	return h.inner.Hash(ctx, path)
}

func runScan(t *testing.T, s *Scanner, root string) *ScanReport {
	t.Helper()

	report, err := s.Run(context.Background(), root)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return report
}

func mediaTags(t *testing.T, db *database.Database, content string) []string {
	t.Helper()

	ctx := context.Background()
	item, err := db.GetMediaItemByHash(ctx, hasher.Bytes([]byte(content)))
	if err != nil {
		t.Fatalf("GetMediaItemByHash failed: %v", err)
	}
	tags, err := db.TagsForMediaItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("TagsForMediaItem failed: %v", err)
	}
	return tags
}

func pathLabels(t *testing.T, db *database.Database) map[string]int {
	t.Helper()

	labels, err := db.ListPathLabels(context.Background())
	if err != nil {
		t.Fatalf("ListPathLabels failed: %v", err)
	}
	got := make(map[string]int, len(labels))
	for _, l := range labels {
		got[l.Name] = l.ItemCount
	}
	return got
}

func TestRunIndexesTree(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	writeFile(t, root, "funny/lighthearted/video.mp4", "video", fixedMtime)
	writeFile(t, root, "funny/cat.jpg", "cat", fixedMtime)
	writeFile(t, root, "notes.txt", "notes", fixedMtime)

	s := New(db, newCountingHasher(), Options{PathLabelsIncludeDeleted: true})
	report := runScan(t, s, root)

	if report.FilesSeen != 3 || report.FilesCreated != 3 {
		t.Errorf("Expected 3 seen and created, got %d/%d", report.FilesSeen, report.FilesCreated)
	}
	if report.MediaItemsCreated != 3 {
		t.Errorf("Expected 3 media items created, got %d", report.MediaItemsCreated)
	}
	if report.RunID == "" {
		t.Error("Expected a run ID")
	}

	if got := mediaTags(t, db, "video"); !reflect.DeepEqual(got, []string{"funny", "lighthearted"}) {
		t.Errorf("Unexpected tags for video: %v", got)
	}
	if got := mediaTags(t, db, "notes"); len(got) != 0 {
		t.Errorf("Expected no tags for file at root, got %v", got)
	}

	item, err := db.GetMediaItemByHash(context.Background(), hasher.Bytes([]byte("cat")))
	if err != nil {
		t.Fatalf("GetMediaItemByHash failed: %v", err)
	}
	if item.MediaType != mediatypes.TypeImage {
		t.Errorf("Expected image type, got %s", item.MediaType)
	}
	if item.DisplayName != "cat.jpg" {
		t.Errorf("Expected display name cat.jpg, got %q", item.DisplayName)
	}

	want := map[string]int{"funny": 2, "lighthearted": 1}
	if got := pathLabels(t, db); !reflect.DeepEqual(got, want) {
		t.Errorf("Path labels = %v, want %v", got, want)
	}
	if report.PathLabels != 2 {
		t.Errorf("Expected 2 path labels in report, got %d", report.PathLabels)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	writeFile(t, root, "a/b/one.jpg", "one", fixedMtime)
	writeFile(t, root, "a/two.png", "two", fixedMtime)
	writeFile(t, root, "three.mp3", "three", fixedMtime)

	h := newCountingHasher()
	s := New(db, h, Options{PathLabelsIncludeDeleted: true})
	ctx := context.Background()

	runScan(t, s, root)
	hashesAfterFirst := h.calls.Load()
	entriesBefore, err := db.ListFileEntries(ctx)
	if err != nil {
		t.Fatalf("ListFileEntries failed: %v", err)
	}
	labelsBefore := pathLabels(t, db)

	report := runScan(t, s, root)

	if report.FilesCreated != 0 || report.FilesUpdated != 0 || report.MediaItemsCreated != 0 {
		t.Errorf("Expected no creates or updates, got %+v", report)
	}
	if report.FilesUnchanged != 3 {
		t.Errorf("Expected 3 unchanged, got %d", report.FilesUnchanged)
	}
	if report.FilesDeleted != 0 || report.FilesRestored != 0 {
		t.Errorf("Expected no deletions or restores, got %d/%d", report.FilesDeleted, report.FilesRestored)
	}
	if h.calls.Load() != hashesAfterFirst {
		t.Errorf("Unchanged files were re-hashed: %d calls after first run, %d after second", hashesAfterFirst, h.calls.Load())
	}

	entriesAfter, err := db.ListFileEntries(ctx)
	if err != nil {
		t.Fatalf("ListFileEntries failed: %v", err)
	}
	for i := range entriesBefore {
		entriesBefore[i].LastSeen = 0
	}
	for i := range entriesAfter {
		if entriesAfter[i].LastSeen != report.ScanTimestamp {
			t.Errorf("Entry %s not touched", entriesAfter[i].Path)
		}
		entriesAfter[i].LastSeen = 0
	}
	if !reflect.DeepEqual(entriesBefore, entriesAfter) {
		t.Errorf("File entries changed:\nbefore %+v\nafter  %+v", entriesBefore, entriesAfter)
	}
	if got := pathLabels(t, db); !reflect.DeepEqual(got, labelsBefore) {
		t.Errorf("Path labels changed: %v -> %v", labelsBefore, got)
	}
}

func TestRunDeduplicatesContent(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	writeFile(t, root, "cats/kitten.jpg", "same bytes", fixedMtime)
	writeFile(t, root, "pets/copy.jpg", "same bytes", fixedMtime)

	report := runScan(t, New(db, newCountingHasher(), Options{}), root)

	if report.FilesCreated != 2 {
		t.Errorf("Expected 2 file entries, got %d", report.FilesCreated)
	}
	if report.MediaItemsCreated != 1 {
		t.Errorf("Expected 1 media item, got %d", report.MediaItemsCreated)
	}
	if n, _ := db.CountMediaItems(context.Background()); n != 1 {
		t.Errorf("Expected 1 stored media item, got %d", n)
	}
	if got := mediaTags(t, db, "same bytes"); !reflect.DeepEqual(got, []string{"cats", "pets"}) {
		t.Errorf("Expected union of tags, got %v", got)
	}
}

func TestRunSoftDeletesAndRestores(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	ctx := context.Background()
	writeFile(t, root, "album/keep.jpg", "keep", fixedMtime)
	gone := writeFile(t, root, "album/gone.jpg", "gone", fixedMtime)

	s := New(db, newCountingHasher(), Options{})
	runScan(t, s, root)

	if err := os.Remove(gone); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	report := runScan(t, s, root)
	if report.FilesDeleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", report.FilesDeleted)
	}

	entry, err := db.GetFileEntry(ctx, gone)
	if err != nil {
		t.Fatalf("Deleted entry should remain stored: %v", err)
	}
	if !entry.Deleted {
		t.Error("Expected entry to be soft-deleted")
	}
	if _, err := db.GetMediaItemByHash(ctx, hasher.Bytes([]byte("gone"))); err != nil {
		t.Errorf("Media item should survive file deletion: %v", err)
	}

	writeFile(t, root, "album/gone.jpg", "gone", fixedMtime)
	report = runScan(t, s, root)
	if report.FilesRestored != 1 || report.FilesCreated != 0 {
		t.Errorf("Expected 1 restored and 0 created, got %d/%d", report.FilesRestored, report.FilesCreated)
	}
	if report.MediaItemsCreated != 0 {
		t.Errorf("Expected no new media items, got %d", report.MediaItemsCreated)
	}

	restored, err := db.GetFileEntry(ctx, gone)
	if err != nil {
		t.Fatalf("GetFileEntry failed: %v", err)
	}
	if restored.Deleted || restored.ID != entry.ID {
		t.Errorf("Expected same entry restored, got %+v", restored)
	}
}

func TestRunDetectsChangedContent(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	path := writeFile(t, root, "doc/report.pdf", "v1", fixedMtime)

	h := newCountingHasher()
	s := New(db, h, Options{})
	runScan(t, s, root)

	writeFile(t, root, "doc/report.pdf", "version two", fixedMtime.Add(time.Hour))
	report := runScan(t, s, root)

	if report.FilesUpdated != 1 {
		t.Errorf("Expected 1 updated, got %d", report.FilesUpdated)
	}
	if report.MediaItemsCreated != 1 {
		t.Errorf("Expected new media item for new content, got %d", report.MediaItemsCreated)
	}
	if h.calls.Load() != 2 {
		t.Errorf("Expected 2 hash calls, got %d", h.calls.Load())
	}

	entry, err := db.GetFileEntry(context.Background(), path)
	if err != nil {
		t.Fatalf("GetFileEntry failed: %v", err)
	}
	if entry.ContentHash != hasher.Bytes([]byte("version two")) {
		t.Errorf("Hash not updated: %s", entry.ContentHash)
	}
	if entry.ModifiedTime != fixedMtime.Add(time.Hour).Unix() {
		t.Errorf("Mtime not updated: %d", entry.ModifiedTime)
	}
}

func TestRunSkipsUnreadableFiles(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	writeFile(t, root, "ok.jpg", "ok", fixedMtime)
	bad := writeFile(t, root, "bad.jpg", "bad", fixedMtime)

	h := newCountingHasher()
	h.fail[bad] = true
	report := runScan(t, New(db, h, Options{}), root)

	if report.FilesSkipped != 1 || report.FilesCreated != 1 {
		t.Errorf("Expected 1 skipped and 1 created, got %d/%d", report.FilesSkipped, report.FilesCreated)
	}
	if report.ErrorCount != 1 || len(report.Errors) != 1 {
		t.Errorf("Expected one recorded error, got %d %v", report.ErrorCount, report.Errors)
	}
	if _, err := db.GetFileEntry(context.Background(), bad); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected no entry for unreadable file, got %v", err)
	}
}

func TestRunTagCleanup(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	ctx := context.Background()
	writeFile(t, root, "holiday/beach.jpg", "beach", fixedMtime)

	if _, err := db.EnsureTag(ctx, "orphan"); err != nil {
		t.Fatalf("EnsureTag failed: %v", err)
	}
	if _, err := db.UpsertManagedTag(ctx, "favorites"); err != nil {
		t.Fatalf("UpsertManagedTag failed: %v", err)
	}

	report := runScan(t, New(db, newCountingHasher(), Options{}), root)

	if report.TagsRemoved != 1 {
		t.Errorf("Expected 1 tag removed, got %d", report.TagsRemoved)
	}
	if _, err := db.GetTag(ctx, "orphan"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Expected unused unmanaged tag to be removed, got %v", err)
	}
	if _, err := db.GetTag(ctx, "favorites"); err != nil {
		t.Errorf("Managed tag should survive cleanup: %v", err)
	}
	if _, err := db.GetTag(ctx, "holiday"); err != nil {
		t.Errorf("Derived tag in use should survive cleanup: %v", err)
	}
}

func TestRunPathLabelsDeletedPolicy(t *testing.T) {
	tests := []struct {
		name           string
		includeDeleted bool
		want           map[string]int
	}{
		{name: "include deleted", includeDeleted: true, want: map[string]int{"trip": 2}},
		{name: "live only", includeDeleted: false, want: map[string]int{"trip": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			root := t.TempDir()
			writeFile(t, root, "trip/a.jpg", "a", fixedMtime)
			gone := writeFile(t, root, "trip/b.jpg", "b", fixedMtime)

			s := New(db, newCountingHasher(), Options{PathLabelsIncludeDeleted: tt.includeDeleted})
			runScan(t, s, root)
			if err := os.Remove(gone); err != nil {
				t.Fatalf("Failed to remove file: %v", err)
			}
			runScan(t, s, root)

			if got := pathLabels(t, db); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Path labels = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunCancelledSkipsStaleMarking(t *testing.T) {
	db := setupTestDB(t)
	root := t.TempDir()
	gone := writeFile(t, root, "x/gone.jpg", "gone", fixedMtime)

	s := New(db, newCountingHasher(), Options{})
	runScan(t, s, root)
	if err := os.Remove(gone); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Run(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	entry, err := db.GetFileEntry(context.Background(), gone)
	if err != nil {
		t.Fatalf("GetFileEntry failed: %v", err)
	}
	if entry.Deleted {
		t.Error("Cancelled scan must not mark files deleted")
	}
}

func TestRunThroughSymlinkedRoot(t *testing.T) {
	db := setupTestDB(t)
	base := t.TempDir()
	target := filepath.Join(base, "library")
	writeFile(t, target, "album/a.jpg", "a", fixedMtime)
	writeFile(t, target, "album/b.jpg", "b", fixedMtime)
	link := filepath.Join(base, "media")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	s := New(db, newCountingHasher(), Options{PathLabelsIncludeDeleted: true})
	for i := 0; i < 2; i++ {
		report := runScan(t, s, link)
		if report.FilesSeen != 2 {
			t.Errorf("Run %d: expected 2 files seen, got %d", i, report.FilesSeen)
		}
		if report.FilesDeleted != 0 {
			t.Errorf("Run %d: expected no deletions, got %d", i, report.FilesDeleted)
		}
	}

	want, err := filepath.EvalSymlinks(target)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := db.ListFileEntries(context.Background())
	if err != nil {
		t.Fatalf("ListFileEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Deleted {
			t.Errorf("Entry %s marked deleted", e.Path)
		}
		if filepath.Dir(filepath.Dir(e.Path)) != want {
			t.Errorf("Entry %s not under resolved root %s", e.Path, want)
		}
	}
	if got := pathLabels(t, db); !reflect.DeepEqual(got, map[string]int{"album": 2}) {
		t.Errorf("Unexpected path labels: %v", got)
	}
}

func TestRunUnreadableDirSkipsStaleMarking(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	db := setupTestDB(t)
	root := t.TempDir()
	writeFile(t, root, "ok/a.jpg", "a", fixedMtime)
	hidden := writeFile(t, root, "locked/b.jpg", "b", fixedMtime)

	s := New(db, newCountingHasher(), Options{})
	runScan(t, s, root)

	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	report := runScan(t, s, root)
	if !report.StaleMarkingSkipped {
		t.Error("Expected stale marking to be skipped")
	}
	if report.FilesDeleted != 0 {
		t.Errorf("Expected no deletions, got %d", report.FilesDeleted)
	}
	if report.ErrorCount == 0 {
		t.Error("Expected the unreadable directory to be recorded as an error")
	}

	entry, err := db.GetFileEntry(context.Background(), hidden)
	if err != nil {
		t.Fatalf("GetFileEntry failed: %v", err)
	}
	if entry.Deleted {
		t.Error("File under unreadable directory must not be marked deleted")
	}

	// Once readable again, the next cycle marks stale entries as usual.
	if err := os.Chmod(locked, 0o755); err != nil {
		t.Fatalf("Failed to chmod: %v", err)
	}
	if err := os.Remove(hidden); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	report = runScan(t, s, root)
	if report.StaleMarkingSkipped || report.FilesDeleted != 1 {
		t.Errorf("Expected 1 deletion after recovery, got skipped=%v deleted=%d", report.StaleMarkingSkipped, report.FilesDeleted)
	}
}

// failingStore fails file inserts and records whether cleanup ran.
type failingStore struct {
	*database.Database
	staleCalls atomic.Int64
}

func (f *failingStore) InsertFileEntry(context.Context, *database.FileEntry) error {
	return errors.New("connection refused")
}

func (f *failingStore) MarkStaleFiles(ctx context.Context, ts int64) (int64, error) {
	f.staleCalls.Add(1)
	return f.Database.MarkStaleFiles(ctx, ts)
}

func TestRunAbortsOnStorageFailure(t *testing.T) {
	store := &failingStore{Database: setupTestDB(t)}
	root := t.TempDir()
	writeFile(t, root, "a.jpg", "a", fixedMtime)

	report, err := New(store, newCountingHasher(), Options{}).Run(context.Background(), root)
	if err == nil {
		t.Fatal("Expected storage failure to abort the scan")
	}
	if report == nil || report.FilesSeen != 1 {
		t.Errorf("Expected partial report, got %+v", report)
	}
	if store.staleCalls.Load() != 0 {
		t.Error("Stale marking must not run after a storage failure")
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 40; i++ {
		// Each content value appears in four files.
		writeFile(t, root, fmt.Sprintf("dir%d/file%d.jpg", i%5, i), fmt.Sprintf("content-%d", i%10), fixedMtime)
	}

	seqDB := setupTestDB(t)
	parDB := setupTestDB(t)
	seq := runScan(t, New(seqDB, newCountingHasher(), Options{Workers: 1}), root)
	par := runScan(t, New(parDB, newCountingHasher(), Options{Workers: 6}), root)

	if par.FilesCreated != seq.FilesCreated || par.MediaItemsCreated != seq.MediaItemsCreated {
		t.Errorf("Parallel %d/%d differs from sequential %d/%d",
			par.FilesCreated, par.MediaItemsCreated, seq.FilesCreated, seq.MediaItemsCreated)
	}
	if par.MediaItemsCreated != 10 {
		t.Errorf("Expected 10 media items, got %d", par.MediaItemsCreated)
	}
	if n, _ := parDB.CountMediaItems(context.Background()); n != 10 {
		t.Errorf("Expected 10 stored media items, got %d", n)
	}
	if got, want := pathLabels(t, parDB), pathLabels(t, seqDB); !reflect.DeepEqual(got, want) {
		t.Errorf("Path labels differ: %v vs %v", got, want)
	}
}

func TestRunRejectsConcurrentScan(t *testing.T) {
	s := New(setupTestDB(t), newCountingHasher(), Options{})
	s.running.Store(true)

	if _, err := s.Run(context.Background(), t.TempDir()); !errors.Is(err, ErrScanInProgress) {
		t.Errorf("Expected ErrScanInProgress, got %v", err)
	}
}

func TestRunRejectsInvalidRoot(t *testing.T) {
	s := New(setupTestDB(t), newCountingHasher(), Options{})

	_, err := s.Run(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, startup.ErrInvalidRoot) {
		t.Errorf("Expected ErrInvalidRoot, got %v", err)
	}
	if s.IsRunning() {
		t.Error("Scanner should not be running after rejection")
	}
}

func TestScanTimestampsIncrease(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := New(setupTestDB(t), newCountingHasher(), Options{Now: func() time.Time { return now }})
	root := t.TempDir()

	first := runScan(t, s, root)
	second := runScan(t, s, root)
	if first.ScanTimestamp != now.Unix() {
		t.Errorf("Expected first timestamp %d, got %d", now.Unix(), first.ScanTimestamp)
	}
	if second.ScanTimestamp <= first.ScanTimestamp {
		t.Errorf("Expected increasing timestamps, got %d then %d", first.ScanTimestamp, second.ScanTimestamp)
	}
}

func TestReportErrorsCapped(t *testing.T) {
	tl := &tally{}
	for i := 0; i < maxReportedErrors+5; i++ {
		tl.recordError("error %d", i)
	}
	var r ScanReport
	tl.fill(&r)

	if len(r.Errors) != maxReportedErrors {
		t.Errorf("Expected %d errors kept, got %d", maxReportedErrors, len(r.Errors))
	}
	if r.ErrorCount != maxReportedErrors+5 {
		t.Errorf("Expected total %d, got %d", maxReportedErrors+5, r.ErrorCount)
	}
}
