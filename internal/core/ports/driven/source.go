package driven

import (
	"context"

	"github.com/custodia-labs/esload/internal/core/domain"
)

// EventSource yields upstream events in arrival order.
type EventSource interface {
	// Next blocks until an event is available. It returns io.EOF once the
	// source is exhausted and ctx.Err() when ctx is cancelled.
	Next(ctx context.Context) (domain.Event, error)

	// Close releases resources.
	Close() error
}

// Committer is implemented by sources that track consumer progress.
// Events are numbered from 1 in the order Next returned them.
type Committer interface {
	// Commit acknowledges every event up to and including seq.
	Commit(ctx context.Context, seq uint64) error
}
