package driving

import (
	"context"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
)

// Pipeline streams events from a source into the cluster.
type Pipeline interface {
	// Run consumes src until it is exhausted or ctx is cancelled. Every
	// batch outcome and every rejected event is passed to onResult on the
	// calling goroutine. Batch outcomes arrive in send order; a rejected
	// event is reported when it is read and may precede the batch holding
	// earlier events.
	Run(ctx context.Context, src driven.EventSource, onResult func(domain.BulkResult)) (*PipelineStats, error)
}

// PipelineStats summarises one pipeline run.
type PipelineStats struct {
	// Events is the count of events read from the source.
	Events int

	// Rejected is the count of events that produced no action.
	Rejected int

	// Batches is the count of bulk requests issued.
	Batches int

	// Items is the count of bulk actions sent.
	Items int

	// FailedBatches is the count of batches whose result carried an error.
	FailedBatches int
}
