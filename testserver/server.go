// Package testserver provides a configurable HTTP ingestion endpoint
// for exercising the simulator without a real sink.
package testserver

import (
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// Server is a configurable ingestion test server. It records every
// accepted event payload and can inject failures on demand.
type Server struct {
	mux      *http.ServeMux
	sequence atomic.Int64

	mu       sync.Mutex
	events   []string
	failNext int
}

// NewServer creates a new test server with all endpoints configured.
func NewServer() *Server {
	s := &Server{
		mux: http.NewServeMux(),
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Events returns a copy of the accepted event payloads in arrival order.
func (s *Server) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

// FailNext makes the next n ingest requests fail with 503.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// registerHandlers sets up all the test endpoints.
func (s *Server) registerHandlers() {
	s.mux.HandleFunc("/ingest", s.handleIngest)
	s.mux.HandleFunc("/ingest/throttle", s.handleThrottle)
	s.mux.HandleFunc("/ingest/fail-rate", s.handleFailRate)
	s.mux.HandleFunc("/ingest/delay/", s.handleDelay)
	s.mux.HandleFunc("/health", s.handleHealth)
}

// handleIngest accepts a JSON event, validates the minimal schema and
// records it. Requests queued by FailNext are rejected with 503.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusInternalServerError)
		return
	}

	if !gjson.ValidBytes(body) {
		writeError(w, http.StatusBadRequest, "InvalidPayload", "body is not valid JSON")
		return
	}
	if !gjson.GetBytes(body, "Id").Exists() || !gjson.GetBytes(body, "AssetId").Exists() {
		writeError(w, http.StatusBadRequest, "SchemaMismatch", "missing Id or AssetId")
		return
	}

	s.mu.Lock()
	if s.failNext > 0 {
		s.failNext--
		s.mu.Unlock()
		writeError(w, http.StatusServiceUnavailable, "ServerBusy", "injected failure")
		return
	}
	s.events = append(s.events, string(body))
	s.mu.Unlock()

	id := s.sequence.Add(1)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, `{"accepted":true,"sequence":%d}`, id)
}

// handleThrottle always responds 429, simulating a throttled namespace.
func (s *Server) handleThrottle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "1")
	writeError(w, http.StatusTooManyRequests, "ServerBusy", "namespace throttled")
}

// handleFailRate fails a percentage of requests with 500 status.
// Example: POST /ingest/fail-rate?rate=10 fails 10% of requests.
func (s *Server) handleFailRate(w http.ResponseWriter, r *http.Request) {
	rateStr := r.URL.Query().Get("rate")
	rate, err := strconv.Atoi(rateStr)
	if err != nil || rate < 0 || rate > 100 {
		rate = 0
	}

	if rand.Intn(100) < rate {
		http.Error(w, "simulated failure", http.StatusInternalServerError)
		return
	}
	s.handleIngest(w, r)
}

// handleDelay waits before accepting, for timeout testing.
// Example: POST /ingest/delay/100 waits 100ms.
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/ingest/delay/")
	ms, err := strconv.Atoi(path)
	if err != nil || ms < 0 {
		http.Error(w, "invalid delay", http.StatusBadRequest)
		return
	}

	time.Sleep(time.Duration(ms) * time.Millisecond)
	s.handleIngest(w, r)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`, code, message)
}
