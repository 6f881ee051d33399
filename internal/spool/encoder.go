package spool

import (
	"io"

	"github.com/sentryflow-systems/sentryflow-agent/internal/event"
)

// BatchEncoder accumulates individual records into one in-memory batch and
// serializes the batch on demand. Implementations are not safe for
// concurrent use; the orchestrator invokes them only from its worker.
type BatchEncoder interface {
	// ShouldInitializeBeforeWrite reports whether the batch file needs a
	// header before the first record is serialized.
	ShouldInitializeBeforeWrite() bool

	// InitializeBatch writes any required file header.
	InitializeBatch(w io.Writer) error

	// Write appends one record to the in-memory batch and returns the number
	// of bytes accepted.
	Write(p []byte) int

	// NeedToOpenFile reports whether at least one record is buffered. Used
	// to avoid creating empty batch files.
	NeedToOpenFile() bool

	// PendingSize estimates the serialized size of the buffered batch in
	// bytes. The estimate must never be lower than the published size, so
	// quota checks based on it are conservative.
	PendingSize() int64

	// CompleteBatch serializes the buffered records to w and returns the
	// byte count. The buffer is never cleared here: serialization success
	// does not mean the batch is durable yet. Callers commit once the
	// batch file is published, and retry with the same buffer otherwise.
	CompleteBatch(w io.Writer) (int64, error)

	// CommitBatch discards the buffered records after the serialized batch
	// has been durably published.
	CommitBatch()
}

// EnvelopeEncoder is the default BatchEncoder. Each record is wrapped in a
// typed envelope and batches are serialized with the event batch codec.
type EnvelopeEncoder struct {
	recordType string
	envs       []event.Envelope
	pending    int64
}

// perEnvelopeOverhead covers the envelope framing and type identifier in the
// pending-size estimate. gzip can expand incompressible input by roughly
// 5 bytes per 64 KiB stored block plus header and trailer, so the estimate
// also grows with payload size (1 byte per KiB, far above that bound) to
// stay an upper bound on the published size.
const perEnvelopeOverhead = 64

// NewEnvelopeEncoder returns an encoder that tags every record with
// recordType.
func NewEnvelopeEncoder(recordType string) *EnvelopeEncoder {
	return &EnvelopeEncoder{recordType: recordType}
}

// ShouldInitializeBeforeWrite is always false: the batch codec is
// self-contained and needs no file header.
func (e *EnvelopeEncoder) ShouldInitializeBeforeWrite() bool { return false }

// InitializeBatch is a no-op for the envelope-batch encoding.
func (e *EnvelopeEncoder) InitializeBatch(io.Writer) error { return nil }

// Write wraps p in an envelope and appends it to the batch. The record is
// copied; the caller keeps ownership of p.
func (e *EnvelopeEncoder) Write(p []byte) int {
	payload := make([]byte, len(p))
	copy(payload, p)
	e.envs = append(e.envs, event.Envelope{Type: e.recordType, Payload: payload})
	e.pending += int64(len(p)) + perEnvelopeOverhead + int64(len(p)>>10)
	return len(p)
}

func (e *EnvelopeEncoder) NeedToOpenFile() bool { return len(e.envs) > 0 }

func (e *EnvelopeEncoder) PendingSize() int64 { return e.pending }

// CompleteBatch serializes the buffered envelopes to w. The buffer stays
// intact either way; CommitBatch clears it once the batch is published.
func (e *EnvelopeEncoder) CompleteBatch(w io.Writer) (int64, error) {
	return event.EncodeBatch(w, e.envs)
}

// CommitBatch clears the buffer, retaining capacity for the next batch.
func (e *EnvelopeEncoder) CommitBatch() {
	e.envs = e.envs[:0]
	e.pending = 0
}
