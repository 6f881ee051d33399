package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamConfig holds the NATS uploader configuration.
type JetStreamConfig struct {
	// URL is the NATS server URL (e.g., "nats://localhost:4222").
	URL string

	// Subject is the JetStream subject batches are published to.
	Subject string

	// Stream is the stream name created or updated on connect.
	Stream string

	// Name is the client name for connection identification.
	Name string
}

// JetStreamUploader publishes serialized batches to a NATS JetStream stream.
// Safe for collectors shared by many agents: the stream persists batches
// until the collector-side consumer processes them.
type JetStreamUploader struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	cfg    JetStreamConfig
}

// NewJetStreamUploader connects to NATS and ensures the batch stream exists.
func NewJetStreamUploader(ctx context.Context, cfg JetStreamConfig) (*JetStreamUploader, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("jetstream subject is empty")
	}
	if cfg.Stream == "" {
		return nil, fmt.Errorf("jetstream stream name is empty")
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.Subject},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create batch stream: %w", err)
	}

	return &JetStreamUploader{conn: conn, js: js, stream: stream, cfg: cfg}, nil
}

// Upload publishes one batch. The spool file name rides in a header because
// subject tokens cannot carry it safely.
func (u *JetStreamUploader) Upload(ctx context.Context, name string, data []byte) error {
	if u == nil {
		return fmt.Errorf("jetstream uploader not configured")
	}

	msg := &nats.Msg{
		Subject: u.cfg.Subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(batchNameHeader, name)

	if _, err := u.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}
	return nil
}

// Close drains the connection so in-flight publishes complete.
func (u *JetStreamUploader) Close() error {
	if u == nil || u.conn == nil {
		return nil
	}
	if err := u.conn.Drain(); err != nil {
		u.conn.Close()
		return err
	}
	return nil
}
