package outbox

import (
	"context"
	"sync"
)

// InMemorySource is a queue-backed Source for tests and single-process runs.
type InMemorySource struct {
	mu      sync.Mutex
	pending []Entry
}

func NewInMemorySource() *InMemorySource {
	return &InMemorySource{}
}

// Enqueue adds entries to the back of the queue.
func (s *InMemorySource) Enqueue(entries ...Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, entries...)
}

// Pending returns the number of unpublished entries.
func (s *InMemorySource) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *InMemorySource) Claim(ctx context.Context, limit int, fn func(ctx context.Context, entries []Entry) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(limit, len(s.pending))
	if n == 0 {
		return 0, nil
	}
	batch := append([]Entry(nil), s.pending[:n]...)
	if err := fn(ctx, batch); err != nil {
		return 0, err
	}
	s.pending = s.pending[n:]
	return n, nil
}
