package sink

import (
	"context"
	"sync"
)

// MemorySink records payloads in memory. Used in tests and dry runs.
type MemorySink struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     func(call int) error
	calls    int
}

// NewMemorySink creates an always-succeeding in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith installs a per-call error injector. The function receives
// the 1-based call number and returns the error for that call, or nil.
func (s *MemorySink) FailWith(fn func(call int) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

func (s *MemorySink) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		if err := s.fail(s.calls); err != nil {
			return err
		}
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.payloads = append(s.payloads, cp)
	return nil
}

// Payloads returns a copy of everything delivered so far.
func (s *MemorySink) Payloads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.payloads))
	copy(out, s.payloads)
	return out
}

// Calls returns the number of Send invocations, including failed ones.
func (s *MemorySink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
