package spool

import (
	"fmt"
	"os"

	"github.com/sentryflow-systems/sentryflow-agent/internal/metrics"
)

// DiskWriter turns a finished batch into a durable, quota-respecting file in
// the spool directory. Not safe for concurrent use; the orchestrator drives
// it from its worker.
type DiskWriter struct {
	base        string
	maxDiskSize int64
	enc         BatchEncoder
}

// NewDiskWriter creates the spool directories and returns a writer that
// publishes batches from enc into base.
func NewDiskWriter(base string, maxDiskSize int64, enc BatchEncoder) (*DiskWriter, error) {
	if err := ensureDirs(base); err != nil {
		return nil, err
	}
	return &DiskWriter{base: base, maxDiskSize: maxDiskSize, enc: enc}, nil
}

// Write buffers one record in the encoder. Purely in-memory; never touches
// disk. Returns the number of bytes accepted.
func (w *DiskWriter) Write(p []byte) int {
	return w.enc.Write(p)
}

// Flush publishes the buffered batch as one file in the spool directory.
//
// An empty buffer succeeds trivially with no file created. If publishing
// would push the directory past the disk quota, Flush fails with
// ErrSpoolFull before any bytes reach disk. Any other failure is an I/O
// error. In both failure cases the in-memory batch is retained for a later
// attempt.
func (w *DiskWriter) Flush() (int64, error) {
	if !w.enc.NeedToOpenFile() {
		return 0, nil
	}

	used, err := dirSize(w.base)
	if err != nil {
		metrics.FlushesTotal.WithLabelValues(metrics.ResultIOError).Inc()
		return 0, err
	}
	if used+w.enc.PendingSize() > w.maxDiskSize {
		metrics.FlushesTotal.WithLabelValues(metrics.ResultSpoolFull).Inc()
		return 0, ErrSpoolFull
	}

	staged := stagingPath(w.base)
	f, err := os.OpenFile(staged, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		metrics.FlushesTotal.WithLabelValues(metrics.ResultIOError).Inc()
		return 0, fmt.Errorf("stage batch: %w", err)
	}

	if w.enc.ShouldInitializeBeforeWrite() {
		if err := w.enc.InitializeBatch(f); err != nil {
			w.discardStaged(f, staged)
			return 0, fmt.Errorf("initialize batch: %w", err)
		}
	}

	n, err := w.enc.CompleteBatch(f)
	if err != nil {
		w.discardStaged(f, staged)
		return 0, fmt.Errorf("complete batch: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(staged)
		metrics.FlushesTotal.WithLabelValues(metrics.ResultIOError).Inc()
		return 0, fmt.Errorf("close staged batch: %w", err)
	}

	if _, err := publish(w.base, staged); err != nil {
		_ = os.Remove(staged)
		metrics.FlushesTotal.WithLabelValues(metrics.ResultIOError).Inc()
		return 0, err
	}

	// The batch is durable only now; committing earlier would lose it if
	// the close or rename above failed.
	w.enc.CommitBatch()

	metrics.FlushesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.SpoolBytesWritten.Add(float64(n))
	metrics.BatchBytes.Observe(float64(n))
	return n, nil
}

func (w *DiskWriter) discardStaged(f *os.File, staged string) {
	_ = f.Close()
	_ = os.Remove(staged)
	metrics.FlushesTotal.WithLabelValues(metrics.ResultIOError).Inc()
}
