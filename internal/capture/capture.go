// Package capture defines the boundary between the kernel-event capture
// layer and the rest of the agent. The real capture layer lives outside this
// repository; it only needs to satisfy Source to feed the spool.
package capture

// Source produces serialized security event records.
type Source interface {
	// Events returns the stream of serialized records. The channel is closed
	// when the source stops.
	Events() <-chan []byte

	// Close stops the source and releases its resources.
	Close() error
}
