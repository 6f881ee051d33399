package spool

import (
	"errors"
	"sync"
	"time"

	"github.com/sentryflow-systems/sentryflow-agent/internal/logging"
	"github.com/sentryflow-systems/sentryflow-agent/internal/metrics"
)

// ErrClosed is returned by synchronous operations invoked after Close.
var ErrClosed = errors.New("spool: orchestrator closed")

// commandBuffer bounds how many enqueued operations can be outstanding
// before producers start blocking on the worker.
const commandBuffer = 256

// Orchestrator is the component producers and exporters talk to. All state
// mutation happens on a single worker goroutine consuming a FIFO command
// channel, so writes, flushes, timer firings, and export/ack operations are
// mutually exclusive without locks.
//
// Orchestrator satisfies Sink.
type Orchestrator struct {
	cfg    Config
	writer *DiskWriter
	reader *DiskReader
	log    *logging.Logger

	cmds chan func()
	quit chan struct{}
	done chan struct{}

	tickerStop chan struct{}
	tickerDone chan struct{}

	closeOnce sync.Once
	closeErr  error

	// accumulated counts bytes buffered since the last successful flush.
	// Touched only from the worker goroutine.
	accumulated int64
}

// NewOrchestrator builds the spool pipeline for cfg and starts its worker
// and periodic flush timer.
func NewOrchestrator(cfg Config, log *logging.Logger) (*Orchestrator, error) {
	if log == nil {
		log = logging.Default()
	}
	if cfg.LeniencyFactor < 1.0 {
		cfg.LeniencyFactor = DefaultLeniencyFactor
	}
	if cfg.RecordType == "" {
		cfg.RecordType = "endpoint.event"
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	writer, err := NewDiskWriter(cfg.Dir, cfg.MaxDiskSize, NewEnvelopeEncoder(cfg.RecordType))
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:        cfg,
		writer:     writer,
		reader:     NewDiskReader(cfg.Dir),
		log:        log.With(logging.Component("spool")),
		cmds:       make(chan func(), commandBuffer),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		tickerStop: make(chan struct{}),
		tickerDone: make(chan struct{}),
	}

	go o.run()
	go o.flushLoop()

	return o, nil
}

// run is the serialized execution context: it executes enqueued commands one
// at a time in FIFO order until Close, then drains what is already queued.
func (o *Orchestrator) run() {
	defer close(o.done)
	for {
		select {
		case cmd := <-o.cmds:
			cmd()
		case <-o.quit:
			for {
				select {
				case cmd := <-o.cmds:
					cmd()
				default:
					return
				}
			}
		}
	}
}

// flushLoop enqueues a flush on the worker at every FlushInterval so that
// buffered-but-below-threshold records are not held indefinitely during low
// event-rate periods.
func (o *Orchestrator) flushLoop() {
	defer close(o.tickerDone)

	ticker := time.NewTicker(o.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.tickerStop:
			return
		case <-ticker.C:
			select {
			case o.cmds <- func() { _ = o.flush() }:
			case <-o.tickerStop:
				return
			}
		}
	}
}

// Write enqueues one opaque record. The caller returns immediately without
// blocking on disk I/O: if the command queue is full behind a slow flush the
// record is dropped and counted, never queued synchronously. Records arriving
// while the spool is saturated are likewise dropped silently; per-event
// logging is deliberately avoided to prevent log storms, the dropped-records
// counter is the aggregate signal.
func (o *Orchestrator) Write(p []byte) {
	rec := make([]byte, len(p))
	copy(rec, p)

	select {
	case o.cmds <- func() { o.write(rec) }:
	case <-o.quit:
	default:
		metrics.RecordsDropped.Inc()
	}
}

func (o *Orchestrator) write(rec []byte) {
	// Catch-up flush once the threshold is reached.
	if o.accumulated >= o.cfg.MaxBatchSize {
		_ = o.flush()
	}

	if o.accumulated >= o.cfg.leniencyLimit() {
		metrics.RecordsDropped.Inc()
		return
	}

	n := o.writer.Write(rec)
	o.accumulated += int64(n)
	metrics.RecordsWritten.Inc()
}

// Flush blocks until the worker has executed a flush of the currently
// buffered batch. On success the accumulated counter resets to zero; on
// failure it is unchanged and the same data is retried on the next trigger.
func (o *Orchestrator) Flush() error {
	errc := make(chan error, 1)
	select {
	case o.cmds <- func() { errc <- o.flush() }:
	case <-o.quit:
		return ErrClosed
	}

	select {
	case err := <-errc:
		return err
	case <-o.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	}
}

// flush runs on the worker.
func (o *Orchestrator) flush() error {
	n, err := o.writer.Flush()
	switch {
	case err == nil:
		o.accumulated = 0
		if n > 0 {
			o.updateFilesGauge()
		}
	case errors.Is(err, ErrSpoolFull):
		// Expected under sustained overload; the flush-result counter is
		// the aggregate signal, so no logging here.
	default:
		o.log.Error("spool flush failed", logging.Error(err))
	}
	return err
}

// GetFilesToExport returns up to max published batch paths, oldest first.
// Returned files remain on disk until acknowledged via FilesExported.
func (o *Orchestrator) GetFilesToExport(max int) []string {
	out := make(chan []string, 1)
	select {
	case o.cmds <- func() {
		paths, err := o.reader.BatchPaths(max)
		if err != nil {
			o.log.Error("spool enumeration failed", logging.Error(err))
		}
		out <- paths
	}:
	case <-o.quit:
		return nil
	}

	select {
	case paths := <-out:
		return paths
	case <-o.done:
		select {
		case paths := <-out:
			return paths
		default:
			return nil
		}
	}
}

// NextFileToExport returns the pending batch path if exactly one is pending.
func (o *Orchestrator) NextFileToExport() (string, bool) {
	paths := o.GetFilesToExport(2)
	if len(paths) != 1 {
		return "", false
	}
	return paths[0], true
}

// FilesExported records the exporter's per-file verdicts. Successfully
// delivered files are deleted; failed ones stay and are re-offered later.
// Deletion failures are logged, never propagated as fatal.
func (o *Orchestrator) FilesExported(results map[string]bool) {
	if len(results) == 0 {
		return
	}
	done := make(chan struct{})
	select {
	case o.cmds <- func() {
		defer close(done)
		for path, delivered := range results {
			if err := o.reader.Ack(path, delivered); err != nil {
				o.log.Warn("spool ack failed", logging.Path(path), logging.Error(err))
			}
		}
		o.updateFilesGauge()
	}:
	case <-o.quit:
		return
	}

	select {
	case <-done:
	case <-o.done:
	}
}

func (o *Orchestrator) updateFilesGauge() {
	paths, err := listBatches(o.cfg.Dir, 0)
	if err != nil {
		return
	}
	metrics.SpoolFiles.Set(float64(len(paths)))
}

// Close stops the periodic flush timer without a further firing, flushes any
// buffered records, and shuts the worker down. Safe to call more than once.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		close(o.tickerStop)
		<-o.tickerDone

		o.closeErr = o.Flush()
		if errors.Is(o.closeErr, ErrSpoolFull) {
			o.closeErr = nil // bounded, intentional drop path
		}

		close(o.quit)
		<-o.done
	})
	return o.closeErr
}
