// Package exporter drives the export/ack protocol: it pulls pending batch
// files from the spool, uploads their contents to a collector, and reports
// per-file success or failure back so delivered batches are deleted.
// Delivery is at-least-once; the collector must tolerate duplicates.
package exporter

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sentryflow-systems/sentryflow-agent/internal/logging"
	"github.com/sentryflow-systems/sentryflow-agent/internal/metrics"
)

// Spool is the exporter-facing surface of the spool orchestrator.
type Spool interface {
	GetFilesToExport(max int) []string
	FilesExported(results map[string]bool)
}

// Uploader delivers one serialized batch to a collector.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) error
	Close() error
}

// maxBackoffShift caps the exponential backoff at interval << 5.
const maxBackoffShift = 5

// Exporter periodically exports pending spool files through an Uploader.
type Exporter struct {
	spool      Spool
	uploader   Uploader
	interval   time.Duration
	batchLimit int
	log        *logging.Logger

	failStreak int
	nextTry    time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New returns an exporter pulling up to batchLimit files from spool every
// interval and delivering them through uploader.
func New(spool Spool, uploader Uploader, interval time.Duration, batchLimit int, log *logging.Logger) *Exporter {
	if log == nil {
		log = logging.Default()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batchLimit <= 0 {
		batchLimit = 16
	}
	return &Exporter{
		spool:      spool,
		uploader:   uploader,
		interval:   interval,
		batchLimit: batchLimit,
		log:        log.With(logging.Component("exporter")),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the export loop. It runs until Stop or ctx cancellation.
func (e *Exporter) Start(ctx context.Context) {
	go func() {
		defer close(e.done)

		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		for {
			select {
			case <-e.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.exportOnce(ctx)
			}
		}
	}()
}

// Stop halts the export loop and closes the uploader.
func (e *Exporter) Stop() {
	e.stopOnce.Do(func() {
		close(e.stop)
		<-e.done
		if err := e.uploader.Close(); err != nil {
			e.log.Warn("uploader close failed", logging.Error(err))
		}
	})
}

// exportOnce performs one export round: enumerate, upload, acknowledge.
func (e *Exporter) exportOnce(ctx context.Context) {
	if !e.nextTry.IsZero() && time.Now().Before(e.nextTry) {
		return // backing off after consecutive total failures
	}

	paths := e.spool.GetFilesToExport(e.batchLimit)
	if len(paths) == 0 {
		return
	}

	results := make(map[string]bool, len(paths))
	delivered := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			// The file may have been acked concurrently or the disk is
			// misbehaving; mark failed so it is re-offered if still there.
			e.log.Warn("read batch failed", logging.Path(path), logging.Error(err))
			results[path] = false
			continue
		}

		if err := e.uploader.Upload(ctx, filepath.Base(path), data); err != nil {
			e.log.Warn("batch upload failed", logging.File(filepath.Base(path)), logging.Error(err))
			metrics.FilesExported.WithLabelValues(metrics.StatusFailed).Inc()
			results[path] = false
			continue
		}

		metrics.FilesExported.WithLabelValues(metrics.StatusSuccess).Inc()
		metrics.ExportBytes.Add(float64(len(data)))
		results[path] = true
		delivered++
	}

	e.spool.FilesExported(results)

	if delivered == 0 {
		if e.failStreak < maxBackoffShift {
			e.failStreak++
		}
		e.nextTry = time.Now().Add(e.interval << e.failStreak)
		e.log.Warn("export round delivered nothing, backing off",
			logging.Count(len(paths)))
		return
	}
	e.failStreak = 0
	e.nextTry = time.Time{}
}
