package geocode

import (
	"context"
	"sync"
	"sync/atomic"
)

// spyProvider counts calls and returns a fixed result or error.
type spyProvider struct {
	calls  atomic.Int64
	result *Result
	err    error

	mu   sync.Mutex
	seen []string
}

func (s *spyProvider) Name() string { return "spy" }

func (s *spyProvider) Geocode(_ context.Context, address string) (*Result, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.seen = append(s.seen, address)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return nil, nil
	}
	r := *s.result
	return &r, nil
}
