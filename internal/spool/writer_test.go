package spool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sentryflow-systems/sentryflow-agent/internal/event"
)

func newTestWriter(t *testing.T, dir string, maxDisk int64) *DiskWriter {
	t.Helper()
	w, err := NewDiskWriter(dir, maxDisk, NewEnvelopeEncoder("endpoint.event"))
	if err != nil {
		t.Fatalf("NewDiskWriter() error = %v", err)
	}
	return w
}

func publishedFiles(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := listBatches(dir, 0)
	if err != nil {
		t.Fatalf("listBatches() error = %v", err)
	}
	return paths
}

func TestDiskWriter_FlushEmptyBuffer(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, 1<<20)

	n, err := w.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Flush() = %d bytes, want 0", n)
	}
	if got := publishedFiles(t, dir); len(got) != 0 {
		t.Errorf("empty flush created %d files, want 0", len(got))
	}
}

func TestDiskWriter_PublishesAtomically(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, 1<<20)

	w.Write([]byte("one"))
	w.Write([]byte("two"))

	n, err := w.Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n <= 0 {
		t.Errorf("Flush() = %d bytes, want > 0", n)
	}

	paths := publishedFiles(t, dir)
	if len(paths) != 1 {
		t.Fatalf("published %d files, want 1", len(paths))
	}

	// Staging area must hold no leftovers.
	staged, err := os.ReadDir(filepath.Join(dir, tmpSubdir))
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(staged) != 0 {
		t.Errorf("staging dir has %d leftover files, want 0", len(staged))
	}

	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("open published batch: %v", err)
	}
	defer f.Close()
	envs, err := event.DecodeBatch(f)
	if err != nil {
		t.Fatalf("published batch is not independently deserializable: %v", err)
	}
	if len(envs) != 2 || string(envs[0].Payload) != "one" || string(envs[1].Payload) != "two" {
		t.Errorf("decoded batch = %v, want records in write order", envs)
	}
}

func TestDiskWriter_QuotaRejectsBeforeDisk(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, 16) // far below any serialized batch

	w.Write([]byte("this record will never fit inside sixteen bytes"))

	_, err := w.Flush()
	if !errors.Is(err, ErrSpoolFull) {
		t.Fatalf("Flush() error = %v, want ErrSpoolFull", err)
	}

	if got := publishedFiles(t, dir); len(got) != 0 {
		t.Errorf("quota-rejected flush published %d files, want 0", len(got))
	}
	staged, _ := os.ReadDir(filepath.Join(dir, tmpSubdir))
	if len(staged) != 0 {
		t.Errorf("quota-rejected flush staged %d files, want 0", len(staged))
	}
}

func TestDiskWriter_PublishFailureRetainsBatch(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions do not bind root")
	}
	dir := t.TempDir()
	w := newTestWriter(t, dir, 1<<20)
	w.Write([]byte("must survive the failed rename"))

	// A read-only live directory still allows staging under tmp/ but makes
	// the final rename fail, after the batch has been serialized.
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o750) })

	if _, err := w.Flush(); err == nil {
		t.Fatal("Flush() succeeded with a read-only live directory")
	}
	if !w.enc.NeedToOpenFile() {
		t.Fatal("batch was discarded by a flush that failed after serialization")
	}

	// Once the directory is writable again the same batch publishes.
	if err := os.Chmod(dir, 0o750); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	n, err := w.Flush()
	if err != nil {
		t.Fatalf("retry Flush() error = %v", err)
	}
	if n <= 0 {
		t.Errorf("retry Flush() = %d bytes, want > 0", n)
	}

	paths := publishedFiles(t, dir)
	if len(paths) != 1 {
		t.Fatalf("published %d files after retry, want 1", len(paths))
	}
	envs := decodeFile(t, paths[0])
	if len(envs) != 1 || string(envs[0].Payload) != "must survive the failed rename" {
		t.Errorf("recovered batch = %v, want the retained record", envs)
	}
}

func TestDiskWriter_QuotaCountsExistingFiles(t *testing.T) {
	dir := t.TempDir()

	// Pre-existing published data consuming most of the quota.
	blocker := filepath.Join(dir, "existing.batch")
	if err := os.WriteFile(blocker, make([]byte, 1000), 0o640); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	w := newTestWriter(t, dir, 1024)
	w.Write(make([]byte, 512))

	if _, err := w.Flush(); !errors.Is(err, ErrSpoolFull) {
		t.Fatalf("Flush() error = %v, want ErrSpoolFull", err)
	}

	// The batch stays buffered: once space frees up the same data publishes.
	if err := os.Remove(blocker); err != nil {
		t.Fatalf("remove blocker: %v", err)
	}
	n, err := w.Flush()
	if err != nil {
		t.Fatalf("retry Flush() error = %v", err)
	}
	if n <= 0 {
		t.Errorf("retry Flush() = %d bytes, want > 0", n)
	}
	if got := publishedFiles(t, dir); len(got) != 1 {
		t.Errorf("published %d files after retry, want 1", len(got))
	}
}
