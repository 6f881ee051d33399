package spool

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// tmpSubdir is the staging area under the base directory. It is never
// enumerated by the reader, so a crash mid-write leaves an orphaned temp
// file rather than a half-written batch visible to exporters.
const tmpSubdir = "tmp"

const batchSuffix = ".batch"

// ensureDirs creates the base and staging directories.
func ensureDirs(base string) error {
	if err := os.MkdirAll(filepath.Join(base, tmpSubdir), 0o750); err != nil {
		return fmt.Errorf("create spool directories: %w", err)
	}
	return nil
}

// dirSize sums the sizes of published batch files in the base directory.
// The staging subdirectory is excluded.
func dirSize(base string) (int64, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return 0, fmt.Errorf("read spool directory: %w", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed between ReadDir and Stat
		}
		total += info.Size()
	}
	return total, nil
}

// listBatches returns up to max published batch paths, oldest first by
// modification time with name as tiebreak. Filename order carries no
// semantic meaning.
func listBatches(base string, max int) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("read spool directory: %w", err)
	}

	type batch struct {
		path string
		mod  time.Time
	}
	var batches []batch
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		batches = append(batches, batch{path: filepath.Join(base, e.Name()), mod: info.ModTime()})
	}

	sort.Slice(batches, func(i, j int) bool {
		if batches[i].mod.Equal(batches[j].mod) {
			return batches[i].path < batches[j].path
		}
		return batches[i].mod.Before(batches[j].mod)
	})

	if max > 0 && len(batches) > max {
		batches = batches[:max]
	}
	paths := make([]string, len(batches))
	for i, b := range batches {
		paths[i] = b.path
	}
	return paths, nil
}

// stagingPath returns a collision-free path in the staging subdirectory.
func stagingPath(base string) string {
	return filepath.Join(base, tmpSubdir, uuid.NewString()+batchSuffix)
}

// publishName returns a collision-free name for a published batch. The
// timestamp prefix keeps directory listings roughly chronological for
// operators; ordering guarantees come from modification time, not the name.
func publishName() string {
	return fmt.Sprintf("%s_%s%s",
		time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8], batchSuffix)
}

// publish atomically moves a fully written staging file into the live
// directory. Rename within one filesystem is atomic, so exporters can never
// observe a partial batch.
func publish(base, staged string) (string, error) {
	dst := filepath.Join(base, publishName())
	if err := os.Rename(staged, dst); err != nil {
		return "", fmt.Errorf("publish batch: %w", err)
	}
	return dst, nil
}
