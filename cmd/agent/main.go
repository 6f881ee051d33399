package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sentryflow-systems/sentryflow-agent/internal/capture"
	"github.com/sentryflow-systems/sentryflow-agent/internal/config"
	"github.com/sentryflow-systems/sentryflow-agent/internal/exporter"
	"github.com/sentryflow-systems/sentryflow-agent/internal/logging"
	"github.com/sentryflow-systems/sentryflow-agent/internal/metrics"
	"github.com/sentryflow-systems/sentryflow-agent/internal/spool"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("agent"))
	logging.SetDefault(logger)

	hostname := cfg.Agent.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	slog.Info("Starting SentryFlow agent",
		slog.String("hostname", hostname),
		slog.String("spool_dir", cfg.Spool.Dir),
		slog.Int64("max_disk_size", cfg.Spool.MaxDiskSize),
		slog.Int64("max_batch_size", cfg.Spool.MaxBatchSize),
		slog.String("log_level", cfg.Logging.Level),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Initialize the spool
	orch, err := spool.NewOrchestrator(spool.Config{
		Dir:            cfg.Spool.Dir,
		MaxDiskSize:    cfg.Spool.MaxDiskSize,
		MaxBatchSize:   cfg.Spool.MaxBatchSize,
		LeniencyFactor: cfg.Spool.LeniencyFactor,
		FlushInterval:  cfg.Spool.FlushInterval,
		RecordType:     cfg.Spool.RecordType,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize spool: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the exporter
	var exp *exporter.Exporter
	if cfg.Exporter.Enabled {
		uploader, err := buildUploader(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize exporter: %v", err)
		}
		exp = exporter.New(orch, uploader, cfg.Exporter.Interval, cfg.Exporter.BatchLimit, logger)
		exp.Start(ctx)
		slog.Info("Exporter started",
			slog.String("backend", cfg.Exporter.Backend),
			slog.Duration("interval", cfg.Exporter.Interval),
		)
	} else {
		slog.Info("Exporter disabled - batches will accumulate up to the disk quota")
	}

	// Initialize the capture source
	var src capture.Source
	var pumpWG sync.WaitGroup
	if cfg.Capture.Mode == "synthetic" {
		src = capture.NewSyntheticSource(hostname, cfg.Capture.Rate)
		slog.Info("Synthetic capture source started", slog.Duration("rate", cfg.Capture.Rate))

		pumpWG.Add(1)
		go func() {
			defer pumpWG.Done()
			for rec := range src.Events() {
				orch.Write(rec)
			}
		}()
	} else {
		slog.Info("No capture source configured - expecting an external producer")
	}

	// Metrics endpoint
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			slog.Info("Metrics endpoint listening", slog.String("addr", cfg.Metrics.Addr))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", logging.Error(err))
			}
		}()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("Shutting down", slog.String("signal", sig.String()))

	// Stop producing, flush what is buffered, then stop exporting.
	if src != nil {
		_ = src.Close()
		pumpWG.Wait()
	}
	if err := orch.Close(); err != nil {
		slog.Error("Spool shutdown flush failed", logging.Error(err))
	}
	if exp != nil {
		exp.Stop()
	}
	cancel()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	slog.Info("Agent stopped")
}

func buildUploader(ctx context.Context, cfg *config.Config) (exporter.Uploader, error) {
	switch cfg.Exporter.Backend {
	case "nats":
		return exporter.NewJetStreamUploader(ctx, exporter.JetStreamConfig{
			URL:     cfg.Exporter.NATS.URL,
			Subject: cfg.Exporter.NATS.Subject,
			Stream:  cfg.Exporter.NATS.Stream,
			Name:    cfg.Exporter.NATS.Name,
		})
	default:
		return exporter.NewHTTPUploader(cfg.Exporter.HTTP.URL, cfg.Exporter.HTTP.Token, cfg.Exporter.HTTP.Timeout), nil
	}
}
