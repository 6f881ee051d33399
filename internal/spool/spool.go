// Package spool implements the durable on-disk queue of finalized event
// batches awaiting export.
//
// Producers hand the spool opaque serialized records. Records accumulate in
// an in-memory batch until a size threshold or a periodic timer triggers a
// flush, at which point the batch is serialized and published atomically to
// the spool directory. Published files are offered to an exporter and are
// deleted only after the exporter confirms delivery, giving at-least-once
// semantics across crashes.
package spool

import (
	"errors"
	"time"
)

// ErrSpoolFull is returned by a flush that would push the spool directory
// past its disk quota. Nothing is written to disk and the in-memory batch is
// retained; whether to drop incoming records is the caller's decision.
var ErrSpoolFull = errors.New("spool: disk quota exceeded")

// DefaultLeniencyFactor allows the in-memory batch to grow past the flush
// threshold after a failed flush before records are dropped.
const DefaultLeniencyFactor = 1.2

// Config holds the spool's tunables.
type Config struct {
	// Dir is the base spool directory. Batches are staged under Dir/tmp and
	// published into Dir itself.
	Dir string

	// MaxDiskSize caps the total size of published files in bytes. A flush
	// that would exceed it fails with ErrSpoolFull.
	MaxDiskSize int64

	// MaxBatchSize is the accumulated-bytes threshold that triggers a flush.
	MaxBatchSize int64

	// LeniencyFactor multiplies MaxBatchSize to bound over-accumulation
	// while flushes are failing. Defaults to DefaultLeniencyFactor.
	LeniencyFactor float64

	// FlushInterval is the period of the background flush timer.
	FlushInterval time.Duration

	// RecordType is the envelope type identifier attached to every record.
	RecordType string
}

func (c Config) leniencyLimit() int64 {
	f := c.LeniencyFactor
	if f < 1.0 {
		f = DefaultLeniencyFactor
	}
	return int64(float64(c.MaxBatchSize) * f)
}
