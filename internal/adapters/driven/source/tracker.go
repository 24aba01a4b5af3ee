// Package source holds helpers shared by the event source adapters.
package source

import "sync"

type position[T any] struct {
	seq uint64
	pos T
}

// Tracker maps the sequence numbers handed to the pipeline back to
// source positions. Positions of skipped messages ride along with the
// next delivered event so they are acknowledged together.
type Tracker[T any] struct {
	mu      sync.Mutex
	last    uint64
	pending []position[T]
}

// Deliver records pos as the next delivered event and returns its
// sequence number. The first event is 1.
func (t *Tracker[T]) Deliver(pos T) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last++
	t.pending = append(t.pending, position[T]{seq: t.last, pos: pos})
	return t.last
}

// Skip records pos without delivering an event.
func (t *Tracker[T]) Skip(pos T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, position[T]{seq: t.last + 1, pos: pos})
}

// Release removes and returns every position up to and including seq,
// oldest first.
func (t *Tracker[T]) Release(seq uint64) []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for n < len(t.pending) && t.pending[n].seq <= seq {
		n++
	}
	out := make([]T, n)
	for i := range n {
		out[i] = t.pending[i].pos
	}
	t.pending = t.pending[n:]
	return out
}

// Pending returns the number of positions not yet released.
func (t *Tracker[T]) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
