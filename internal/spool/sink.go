package spool

import "sync"

// Sink is the contract shared by everything that accepts a stream of
// serialized records: the disk-backed orchestrator and in-memory or test
// sinks alike.
type Sink interface {
	// Write enqueues one opaque record. Fire-and-forget from the caller's
	// perspective.
	Write(p []byte)

	// Flush forces persistence of currently buffered records and blocks
	// until the attempt completes.
	Flush() error

	// Close flushes and releases resources. The sink must not be used after
	// Close returns.
	Close() error
}

// MemorySink buffers records in memory, dropping the oldest once maxRecords
// is exceeded. Used when no spool directory is configured and as a test
// double for producers.
type MemorySink struct {
	mu         sync.Mutex
	records    [][]byte
	maxRecords int
}

// NewMemorySink returns a sink retaining at most maxRecords records.
func NewMemorySink(maxRecords int) *MemorySink {
	if maxRecords <= 0 {
		maxRecords = 1024
	}
	return &MemorySink{maxRecords: maxRecords}
}

func (s *MemorySink) Write(p []byte) {
	rec := make([]byte, len(p))
	copy(rec, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if len(s.records) > s.maxRecords {
		s.records = s.records[len(s.records)-s.maxRecords:]
	}
}

func (s *MemorySink) Flush() error { return nil }

func (s *MemorySink) Close() error { return nil }

// Drain returns the buffered records and empties the sink.
func (s *MemorySink) Drain() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.records
	s.records = nil
	return out
}
