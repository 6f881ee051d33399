package spool

import (
	"fmt"
	"os"

	"github.com/sentryflow-systems/sentryflow-agent/internal/metrics"
)

// DiskReader enumerates published batch files and deletes them once an
// exporter confirms delivery.
type DiskReader struct {
	base string
}

// NewDiskReader returns a reader over the spool directory at base.
func NewDiskReader(base string) *DiskReader {
	return &DiskReader{base: base}
}

// BatchPaths returns up to max published batch paths, oldest first.
// Requesting more files than exist returns only what exists.
func (r *DiskReader) BatchPaths(max int) ([]string, error) {
	paths, err := listBatches(r.base, max)
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Ack records the exporter's verdict for one batch file. On success the file
// is deleted (consumed); on failure it is left in place for a future export
// attempt. A deletion failure is reported but non-fatal: the file remains
// and will be re-offered, producing a harmless duplicate export.
func (r *DiskReader) Ack(path string, delivered bool) error {
	if !delivered {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		metrics.AckFailures.Inc()
		return fmt.Errorf("ack batch %s: %w", path, err)
	}
	return nil
}
