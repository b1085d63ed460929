package consistency

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zisync/zisync/internal/classifier"
	"github.com/zisync/zisync/internal/model"
)

func TestCheckProceedsWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	local := &model.File{Type: model.FileTypeReg, Length: fi.Size(), Mtime: fi.ModTime().UnixNano()}

	v := Check(path, local, classifier.Decision{})
	if v != Proceed {
		t.Fatalf("expected Proceed for an unchanged file, got %v", v)
	}
}

func TestCheckDemotesDataTaskWhenContentChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	local := &model.File{Type: model.FileTypeReg, Length: 0, Mtime: time.Now().Add(-time.Hour).UnixNano()}

	d := classifier.Decision{Mask: classifier.Mask(0x41)} // data task
	v := Check(path, local, d)
	if v != Demote {
		t.Fatalf("expected Demote when on-disk content outran the row, got %v", v)
	}
}

func TestCheckAbortsWhenPathDisappeared(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")
	local := &model.File{Type: model.FileTypeReg}

	v := Check(path, local, classifier.Decision{})
	if v != Abort {
		t.Fatalf("expected Abort when the row says present but the path is missing, got %v", v)
	}
}
