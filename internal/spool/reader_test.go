package spool

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeBatchFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0o640); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestDiskReader_BatchPathsOldestFirst(t *testing.T) {
	dir := t.TempDir()
	if err := ensureDirs(dir); err != nil {
		t.Fatalf("ensureDirs() error = %v", err)
	}

	// Lexicographic name order deliberately contradicts age order.
	oldest := writeBatchFile(t, dir, "zzz.batch", 3*time.Hour)
	middle := writeBatchFile(t, dir, "mmm.batch", 2*time.Hour)
	newest := writeBatchFile(t, dir, "aaa.batch", 1*time.Hour)

	r := NewDiskReader(dir)
	paths, err := r.BatchPaths(10)
	if err != nil {
		t.Fatalf("BatchPaths() error = %v", err)
	}
	want := []string{oldest, middle, newest}
	if len(paths) != len(want) {
		t.Fatalf("len(paths) = %d, want %d", len(paths), len(want))
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestDiskReader_BatchPathsHonorsMax(t *testing.T) {
	dir := t.TempDir()
	if err := ensureDirs(dir); err != nil {
		t.Fatalf("ensureDirs() error = %v", err)
	}
	writeBatchFile(t, dir, "a.batch", 2*time.Hour)
	writeBatchFile(t, dir, "b.batch", time.Hour)

	r := NewDiskReader(dir)

	paths, err := r.BatchPaths(1)
	if err != nil {
		t.Fatalf("BatchPaths(1) error = %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("BatchPaths(1) returned %d paths, want 1", len(paths))
	}

	// Requesting more than exist returns only what exists.
	paths, err = r.BatchPaths(50)
	if err != nil {
		t.Fatalf("BatchPaths(50) error = %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("BatchPaths(50) returned %d paths, want 2", len(paths))
	}
}

func TestDiskReader_BatchPathsSkipsStaging(t *testing.T) {
	dir := t.TempDir()
	if err := ensureDirs(dir); err != nil {
		t.Fatalf("ensureDirs() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tmpSubdir, "half-written.batch"), []byte("x"), 0o640); err != nil {
		t.Fatalf("write staged file: %v", err)
	}

	r := NewDiskReader(dir)
	paths, err := r.BatchPaths(10)
	if err != nil {
		t.Fatalf("BatchPaths() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("BatchPaths() returned staged files: %v", paths)
	}
}

func TestDiskReader_Ack(t *testing.T) {
	dir := t.TempDir()
	if err := ensureDirs(dir); err != nil {
		t.Fatalf("ensureDirs() error = %v", err)
	}
	path := writeBatchFile(t, dir, "pending.batch", time.Hour)
	r := NewDiskReader(dir)

	// Failed delivery leaves the file for a future attempt.
	if err := r.Ack(path, false); err != nil {
		t.Fatalf("Ack(false) error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("Ack(false) removed the file")
	}

	// Successful delivery consumes it.
	if err := r.Ack(path, true); err != nil {
		t.Fatalf("Ack(true) error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Ack(true) did not remove the file")
	}

	// Acking an already-gone file is not an error.
	if err := r.Ack(path, true); err != nil {
		t.Errorf("Ack(true) on missing file error = %v", err)
	}
}
