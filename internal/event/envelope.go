// Package event defines the envelope wrapping one serialized security event
// and the wire codec for batches of envelopes.
//
// The spool never inspects a record's payload; the envelope exists so that a
// reader can dispatch on the payload kind without decoding it.
package event

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
)

// Envelope wraps one opaque event record with a type identifier.
type Envelope struct {
	Type    string `cbor:"1,keyasint"`
	Payload []byte `cbor:"2,keyasint"`
}

// countingWriter tracks how many bytes reached the underlying writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// EncodeBatch serializes envelopes as a gzip-compressed CBOR array and
// returns the number of compressed bytes written to w. Envelope order is
// preserved.
func EncodeBatch(w io.Writer, envs []Envelope) (int64, error) {
	cw := &countingWriter{w: w}

	gz := gzip.NewWriter(cw)
	if err := cbor.NewEncoder(gz).Encode(envs); err != nil {
		_ = gz.Close()
		return cw.n, fmt.Errorf("encode batch: %w", err)
	}
	if err := gz.Close(); err != nil {
		return cw.n, fmt.Errorf("finalize batch: %w", err)
	}

	return cw.n, nil
}

// DecodeBatch reads one serialized batch and returns its envelopes in the
// order they were written.
func DecodeBatch(r io.Reader) ([]Envelope, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open batch: %w", err)
	}
	defer gz.Close()

	var envs []Envelope
	if err := cbor.NewDecoder(gz).Decode(&envs); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}

	return envs, nil
}
