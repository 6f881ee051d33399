package capture

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticSource_ProducesValidEvents(t *testing.T) {
	src := NewSyntheticSource("test-host", time.Millisecond)
	defer src.Close()

	for i := 0; i < 5; i++ {
		select {
		case rec, ok := <-src.Events():
			require.True(t, ok, "event channel closed early")

			var decoded map[string]any
			require.NoError(t, json.Unmarshal(rec, &decoded))
			assert.Equal(t, "test-host", decoded["hostname"])
			assert.Contains(t, decoded, "timestamp")
			assert.Contains(t, decoded, "pid")
		case <-time.After(2 * time.Second):
			t.Fatalf("no event produced within 2s (got %d)", i)
		}
	}
}

func TestSyntheticSource_CloseStopsStream(t *testing.T) {
	src := NewSyntheticSource("test-host", time.Millisecond)
	require.NoError(t, src.Close())

	// The channel drains and then closes.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-src.Events():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel not closed after Close()")
		}
	}
}

func TestSyntheticSource_CloseIsIdempotent(t *testing.T) {
	src := NewSyntheticSource("test-host", time.Millisecond)
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
}

// Compile-time check that the synthetic generator satisfies the capture
// contract.
var _ Source = (*SyntheticSource)(nil)
