// Package publish delivers serialized events to an ingestion sink with
// bounded retry and backoff.
package publish

import (
	"context"
	"errors"
	"fmt"
)

// Sink is the external system that receives published events. Adapters
// classify their failures through SinkError; any other error is treated
// as transient (transport-level).
type Sink interface {
	Send(ctx context.Context, payload []byte) error
}

// SinkError is a classified delivery failure.
type SinkError struct {
	Retryable bool
	Detail    string
	Err       error
}

func (e *SinkError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	if e.Detail != "" {
		return fmt.Sprintf("sink: %s failure: %s", kind, e.Detail)
	}
	return fmt.Sprintf("sink: %s failure: %v", kind, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// retryable reports whether a delivery error is worth another attempt.
func retryable(err error) bool {
	var se *SinkError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return true
}
