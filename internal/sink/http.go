// Package sink provides ingestion sink adapters for the publisher.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"assetsim/internal/publish"
)

const maxErrorBodySize = 4096 // cap on error bodies read for diagnostics

// HTTPSink posts events as JSON to an HTTP ingestion endpoint.
type HTTPSink struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSink creates a sink for the given endpoint URL.
func NewHTTPSink(endpoint string, timeout time.Duration) *HTTPSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Send delivers one serialized event. Timeouts, throttling (429) and
// server errors are classified transient; other client errors are
// permanent because resending the same payload cannot succeed.
func (s *HTTPSink) Send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &publish.SinkError{Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &publish.SinkError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		// Drain to allow connection reuse.
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail := errorDetail(resp)
	transient := resp.StatusCode == http.StatusRequestTimeout ||
		resp.StatusCode == http.StatusTooManyRequests ||
		resp.StatusCode >= 500
	return &publish.SinkError{Retryable: transient, Detail: detail}
}

// errorDetail extracts a useful message from an error response. JSON
// bodies with an error object are summarized; anything else falls back
// to the HTTP status line.
func errorDetail(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	io.Copy(io.Discard, resp.Body)

	if gjson.ValidBytes(body) {
		code := gjson.GetBytes(body, "error.code").String()
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "message").String()
		}
		if code != "" && msg != "" {
			return fmt.Sprintf("%s: %s (%s)", resp.Status, code, msg)
		}
		if msg != "" {
			return fmt.Sprintf("%s: %s", resp.Status, msg)
		}
	}
	return resp.Status
}
