package sink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"assetsim/internal/publish"
)

func TestHTTPSink_Success(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		received.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s := NewHTTPSink(server.URL, time.Second)
	if err := s.Send(context.Background(), []byte(`{"Id":"e1"}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if received.Load() != 1 {
		t.Errorf("expected 1 request, got %d", received.Load())
	}
}

func TestHTTPSink_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"throttled", http.StatusTooManyRequests, true},
		{"timeout", http.StatusRequestTimeout, true},
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			s := NewHTTPSink(server.URL, time.Second)
			err := s.Send(context.Background(), []byte(`{}`))
			if err == nil {
				t.Fatal("expected error")
			}
			var se *publish.SinkError
			if !errors.As(err, &se) {
				t.Fatalf("expected SinkError, got %v", err)
			}
			if se.Retryable != tt.retryable {
				t.Errorf("status %d: retryable=%v, want %v", tt.status, se.Retryable, tt.retryable)
			}
		})
	}
}

func TestHTTPSink_ExtractsJSONErrorDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"ServerBusy","message":"namespace throttled"}}`))
	}))
	defer server.Close()

	s := NewHTTPSink(server.URL, time.Second)
	err := s.Send(context.Background(), []byte(`{}`))

	var se *publish.SinkError
	if !errors.As(err, &se) {
		t.Fatalf("expected SinkError, got %v", err)
	}
	want := "429 Too Many Requests: ServerBusy (namespace throttled)"
	if se.Detail != want {
		t.Errorf("detail %q, want %q", se.Detail, want)
	}
}

func TestHTTPSink_ConnectionErrorIsTransient(t *testing.T) {
	// Endpoint that is not listening.
	s := NewHTTPSink("http://127.0.0.1:1", 200*time.Millisecond)
	err := s.Send(context.Background(), []byte(`{}`))
	if err == nil {
		t.Fatal("expected error")
	}
	var se *publish.SinkError
	if !errors.As(err, &se) || !se.Retryable {
		t.Errorf("expected transient SinkError, got %v", err)
	}
}

func TestMemorySink_RecordsPayloads(t *testing.T) {
	s := NewMemorySink()
	s.Send(context.Background(), []byte("a"))
	s.Send(context.Background(), []byte("b"))

	got := s.Payloads()
	if len(got) != 2 || string(got[0]) != "a" || string(got[1]) != "b" {
		t.Errorf("unexpected payloads %q", got)
	}
}

func TestMemorySink_FailureInjection(t *testing.T) {
	s := NewMemorySink()
	s.FailWith(func(call int) error {
		if call == 1 {
			return &publish.SinkError{Retryable: true, Detail: "injected"}
		}
		return nil
	})

	if err := s.Send(context.Background(), []byte("x")); err == nil {
		t.Error("expected first call to fail")
	}
	if err := s.Send(context.Background(), []byte("x")); err != nil {
		t.Errorf("expected second call to succeed, got %v", err)
	}
	if s.Calls() != 2 {
		t.Errorf("expected 2 calls, got %d", s.Calls())
	}
	if len(s.Payloads()) != 1 {
		t.Errorf("expected 1 stored payload, got %d", len(s.Payloads()))
	}
}
