package metrics

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 1000

// Store is a bounded, thread-safe window of the most recent metrics.
type Store struct {
	mu       sync.RWMutex
	buf      []Metric
	next     int
	full     bool
	recorded int64
}

// NewStore creates a store holding at most capacity metrics.
// A capacity <= 0 uses DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{buf: make([]Metric, capacity)}
}

// Add appends m, evicting the oldest metric when the window is full.
// An empty ID is filled in. Returns the metric's ID.
func (s *Store) Add(m Metric) string {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf[s.next] = m
	s.next = (s.next + 1) % len(s.buf)
	if s.next == 0 {
		s.full = true
	}
	s.recorded++
	return m.ID
}

// Len returns the number of metrics currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.buf)
	}
	return s.next
}

// Capacity returns the window size.
func (s *Store) Capacity() int {
	return len(s.buf)
}

// Recorded returns how many metrics were ever added, including evicted ones.
func (s *Store) Recorded() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recorded
}

// snapshot returns the held metrics, newest first.
func (s *Store) snapshot() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.buf)
	}
	out := make([]Metric, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[idx])
	}
	return out
}

// Reset drops all held metrics.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.buf)
	s.next = 0
	s.full = false
	s.recorded = 0
}
