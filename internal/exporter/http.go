package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// batchNameHeader carries the spool file name so the collector can dedupe
// re-uploaded batches.
const batchNameHeader = "X-Sentryflow-Batch"

// HTTPUploader posts serialized batches to a collector's ingest endpoint.
type HTTPUploader struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPUploader returns an uploader targeting baseURL. token, if non-empty,
// is sent as a bearer token.
func NewHTTPUploader(baseURL, token string, timeout time.Duration) *HTTPUploader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPUploader{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upload delivers one batch. The payload is already gzip-compressed by the
// batch codec, so it is sent as-is with a matching Content-Encoding.
func (u *HTTPUploader) Upload(ctx context.Context, name string, data []byte) error {
	if u == nil {
		return fmt.Errorf("http uploader not configured")
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost,
		u.baseURL+"/api/v1/batches", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/cbor")
	request.Header.Set("Content-Encoding", "gzip")
	request.Header.Set(batchNameHeader, name)
	if u.token != "" {
		request.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		var errBody map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return fmt.Errorf("collector response status %d: %s", resp.StatusCode, errBody["message"])
	}

	return nil
}

// Close releases nothing; the HTTP client holds no persistent resources
// beyond idle connections.
func (u *HTTPUploader) Close() error {
	u.httpClient.CloseIdleConnections()
	return nil
}
