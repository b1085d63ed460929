package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zisync/zisync/internal/model"
	"github.com/zisync/zisync/internal/resolver"
)

func newTestWalker(t *testing.T, root string) (*Walker, *resolver.FileProvider, *resolver.MainProvider, int64) {
	t.Helper()
	dir := t.TempDir()

	fp, err := resolver.OpenFileProvider("tree-1", filepath.Join(dir, "files.db"))
	if err != nil {
		t.Fatalf("OpenFileProvider: %v", err)
	}
	t.Cleanup(func() { fp.Close() })

	mp, err := resolver.OpenMainProvider(filepath.Join(dir, "main.db"))
	if err != nil {
		t.Fatalf("OpenMainProvider: %v", err)
	}
	t.Cleanup(func() { mp.Close() })

	treeID, err := mp.InsertTree(context.Background(), model.Tree{UUID: "tree-1", Root: root, IsEnabled: true})
	if err != nil {
		t.Fatalf("InsertTree: %v", err)
	}

	return &Walker{TreeID: treeID, Root: root, Provider: fp, Main: mp}, fp, mp, treeID
}

func rowByPath(t *testing.T, fp *resolver.FileProvider, path string) model.File {
	t.Helper()
	rows, err := fp.Query(context.Background(), resolver.Where("path", resolver.OpEq, path), "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one row for %s, got %d", path, len(rows))
	}
	return rows[0]
}

func TestScanInsertsNewRegularFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, fp, _, _ := newTestWalker(t, root)

	res, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Inserted != 1 || res.Changed() != 1 {
		t.Fatalf("expected 1 insert, got %+v", res)
	}

	row := rowByPath(t, fp, "/a.txt")
	if row.Type != model.FileTypeReg || row.Status != model.FileStatusNormal {
		t.Fatalf("unexpected row: %+v", row)
	}
	if row.LocalVClock != 1 {
		t.Fatalf("expected local_vclock=1 on first insert, got %d", row.LocalVClock)
	}
	if row.USN == 0 {
		t.Fatalf("expected a non-zero allocated usn")
	}
	if len(row.SHA1) == 0 {
		t.Fatalf("expected sha1 to be computed for a regular file")
	}
}

func TestScanIsIdempotentWhenNothingChanges(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, fp, _, _ := newTestWalker(t, root)

	if _, err := w.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	before := rowByPath(t, fp, "/a.txt")

	res, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if res.Changed() != 0 {
		t.Fatalf("expected no changes on a stable rescan, got %+v", res)
	}
	after := rowByPath(t, fp, "/a.txt")
	if before.USN != after.USN || before.LocalVClock != after.LocalVClock {
		t.Fatalf("rescan must not bump usn/vclock when nothing changed: before=%+v after=%+v", before, after)
	}
}

func TestScanDetectsModification(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, fp, _, _ := newTestWalker(t, root)
	if _, err := w.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	before := rowByPath(t, fp, "/a.txt")

	// Ensure a distinguishable mtime even on coarse filesystem clocks.
	later := time.Now().Add(2 * time.Second)
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	res, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if res.Updated != 1 {
		t.Fatalf("expected 1 update, got %+v", res)
	}
	after := rowByPath(t, fp, "/a.txt")
	if after.LocalVClock != before.LocalVClock+1 {
		t.Fatalf("expected local_vclock to bump by 1, got %d -> %d", before.LocalVClock, after.LocalVClock)
	}
	if after.USN <= before.USN {
		t.Fatalf("expected a fresh usn on modification")
	}
	if after.Length != int64(len("hello world")) {
		t.Fatalf("expected updated length, got %d", after.Length)
	}
}

func TestScanTombstonesDeletedFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, fp, _, _ := newTestWalker(t, root)
	if _, err := w.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	before := rowByPath(t, fp, "/a.txt")

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	res, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if res.Tombstoned != 1 {
		t.Fatalf("expected 1 tombstone, got %+v", res)
	}
	after := rowByPath(t, fp, "/a.txt")
	if !after.IsRemoved() {
		t.Fatalf("expected a removed-status tombstone row")
	}
	if after.LocalVClock != before.LocalVClock+1 {
		t.Fatalf("expected local_vclock to bump on tombstone")
	}

	// A further scan over an already-tombstoned path must be a no-op
	// (spec §4.3: "missing and already removed: skip").
	res2, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("third Scan: %v", err)
	}
	if res2.Changed() != 0 {
		t.Fatalf("expected no further changes once tombstoned, got %+v", res2)
	}
}

func TestScanHonorsIncludeList(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "readme.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "secret.key"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, fp, _, _ := newTestWalker(t, root)
	w.Includes = []string{"docs/**"}

	if _, err := w.Scan(context.Background()); err != nil {
		t.Fatalf("Scan: %v", err)
	}

	rows, err := fp.Query(context.Background(), resolver.Selection{}, "")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	paths := map[string]bool{}
	for _, r := range rows {
		paths[r.Path] = true
	}
	if !paths["/docs/readme.md"] {
		t.Fatalf("expected an included path to be scanned: %+v", paths)
	}
	if paths["/secret.key"] {
		t.Fatalf("expected a non-included path to be skipped: %+v", paths)
	}
}

func TestScanBackupDstRehashFindsNoChangeWhenContentUnchanged(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, fp, _, _ := newTestWalker(t, root)
	w.BackupType = model.BackupDst
	if _, err := w.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan: %v", err)
	}
	before := rowByPath(t, fp, "/a.txt")

	// Stat is unchanged but content silently differs underneath (can't
	// happen via os.WriteFile alone without touching mtime/size, so this
	// just exercises that an unchanged stat skips the update path).
	res, err := w.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan: %v", err)
	}
	if res.Changed() != 0 {
		t.Fatalf("expected no spurious change when stat truly didn't move: %+v", res)
	}
	after := rowByPath(t, fp, "/a.txt")
	if after.USN != before.USN {
		t.Fatalf("expected usn unchanged when content truly didn't move")
	}
}
