package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"assetsim/internal/event"
	"assetsim/internal/telemetry"
)

// flakySink fails a configured number of times before succeeding.
type flakySink struct {
	mu        sync.Mutex
	failures  int
	permanent bool
	calls     int
}

func (s *flakySink) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return &SinkError{Retryable: !s.permanent, Detail: "injected"}
	}
	return nil
}

func (s *flakySink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testEvent() *event.Event {
	return event.New("A_1000", "P_2000", "b", time.Now(), telemetry.Reading{Speed: 65}, 0)
}

func newTestPublisher(sink Sink, opts Options) *Publisher {
	return NewPublisher(sink, opts, zap.NewNop())
}

func TestPublish_DeliversFirstAttempt(t *testing.T) {
	sink := &flakySink{}
	p := newTestPublisher(sink, Options{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	out := p.Publish(context.Background(), testEvent())
	if !out.Delivered {
		t.Fatalf("expected delivery, got error %v", out.Err)
	}
	if out.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", out.Attempts)
	}
}

// A sink failing exactly K-1 times with a budget of K must yield one
// Delivered outcome after K attempts.
func TestPublish_RetriesUntilSuccess(t *testing.T) {
	const budget = 3
	sink := &flakySink{failures: budget - 1}
	p := newTestPublisher(sink, Options{MaxAttempts: budget, InitialBackoff: time.Millisecond})

	out := p.Publish(context.Background(), testEvent())
	if !out.Delivered {
		t.Fatalf("expected delivery, got error %v", out.Err)
	}
	if out.Attempts != budget {
		t.Errorf("expected %d attempts, got %d", budget, out.Attempts)
	}
	if sink.callCount() != budget {
		t.Errorf("expected %d sink calls, got %d", budget, sink.callCount())
	}
}

func TestPublish_ExhaustsRetryBudget(t *testing.T) {
	sink := &flakySink{failures: 10}
	p := newTestPublisher(sink, Options{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	out := p.Publish(context.Background(), testEvent())
	if out.Delivered {
		t.Fatal("expected failure")
	}
	if out.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", out.Attempts)
	}
	var se *SinkError
	if !errors.As(out.Err, &se) {
		t.Errorf("expected SinkError, got %v", out.Err)
	}
}

func TestPublish_PermanentErrorFailsImmediately(t *testing.T) {
	sink := &flakySink{failures: 10, permanent: true}
	p := newTestPublisher(sink, Options{MaxAttempts: 5, InitialBackoff: time.Millisecond})

	out := p.Publish(context.Background(), testEvent())
	if out.Delivered {
		t.Fatal("expected failure")
	}
	if out.Attempts != 1 {
		t.Errorf("expected 1 attempt for permanent error, got %d", out.Attempts)
	}
	if sink.callCount() != 1 {
		t.Errorf("expected 1 sink call, got %d", sink.callCount())
	}
}

func TestPublish_ContextCancelDuringBackoff(t *testing.T) {
	sink := &flakySink{failures: 10}
	p := newTestPublisher(sink, Options{MaxAttempts: 3, InitialBackoff: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	out := p.Publish(ctx, testEvent())
	if out.Delivered {
		t.Fatal("expected failure")
	}
	if !errors.Is(out.Err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", out.Err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("backoff did not observe cancellation, took %v", elapsed)
	}
}

func TestPublish_UnclassifiedErrorIsRetried(t *testing.T) {
	calls := 0
	sink := sinkFunc(func(ctx context.Context, payload []byte) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset")
		}
		return nil
	})
	p := newTestPublisher(sink, Options{MaxAttempts: 3, InitialBackoff: time.Millisecond})

	out := p.Publish(context.Background(), testEvent())
	if !out.Delivered || out.Attempts != 2 {
		t.Errorf("expected delivery on attempt 2, got %+v", out)
	}
}

type sinkFunc func(ctx context.Context, payload []byte) error

func (f sinkFunc) Send(ctx context.Context, payload []byte) error { return f(ctx, payload) }

func TestSinkError_Message(t *testing.T) {
	transient := &SinkError{Retryable: true, Detail: "throttled"}
	if got := transient.Error(); got != "sink: transient failure: throttled" {
		t.Errorf("unexpected message %q", got)
	}
	permanent := &SinkError{Retryable: false, Err: errors.New("bad payload")}
	if got := permanent.Error(); got != "sink: permanent failure: bad payload" {
		t.Errorf("unexpected message %q", got)
	}
}
