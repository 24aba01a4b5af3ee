package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/core/ports/driving"
	"github.com/custodia-labs/esload/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.Pipeline = (*Pipeline)(nil)

// stageBuffer is the high-water mark between stages.
const stageBuffer = 16

// Pipeline wires transform, batch and send stages over bounded channels.
// Each stage runs on its own goroutine so events keep arrival order; a
// full channel blocks the stage feeding it.
type Pipeline struct {
	transformer *Transformer
	sender      *BulkSender
	limits      domain.BatchLimits
	settings    domain.Settings
}

// NewPipeline creates a pipeline for one upstream system.
func NewPipeline(transformer *Transformer, sender *BulkSender, settings domain.Settings) *Pipeline {
	return &Pipeline{
		transformer: transformer,
		sender:      sender,
		limits:      settings.Batch.WithDefaults(),
		settings:    settings,
	}
}

// readState is written by the reader goroutine and read after it exits.
type readState struct {
	events   int
	rejected int
	lastSeq  uint64
}

// Run consumes src until it is exhausted or ctx is cancelled. Cancelling
// ctx stops intake only: buffered items are still batched and every
// batch already started runs to completion.
//
//nolint:gocognit // Stage fan-in with commit bookkeeping
func (p *Pipeline) Run(
	ctx context.Context,
	src driven.EventSource,
	onResult func(domain.BulkResult),
) (*driving.PipelineStats, error) {
	if onResult == nil {
		onResult = func(domain.BulkResult) {}
	}

	runID := uuid.NewString()
	log := logger.WithFields(logger.Fields{"run": runID, "system": p.settings.System})
	log.Info("Pipeline started (count=%d bytes=%d time=%s)", p.limits.Count, p.limits.Bytes, p.limits.Time)

	items := make(chan domain.Item, stageBuffer)
	batches := make(chan domain.Batch, stageBuffer)
	rejected := make(chan domain.BulkResult, stageBuffer)

	var (
		g     errgroup.Group
		state readState
	)
	g.Go(func() error {
		defer close(items)
		defer close(rejected)
		return p.read(ctx, src, &state, items, rejected)
	})
	g.Go(func() error {
		NewBatcher(p.limits).Run(items, batches)
		return nil
	})

	// In-flight requests outlive intake cancellation.
	sendCtx := context.WithoutCancel(ctx)
	committer, _ := src.(driven.Committer)
	if p.settings.DryRun {
		committer = nil
	}

	stats := &driving.PipelineStats{}
	var (
		errs      *multierror.Error
		committed uint64
	)
	commit := func(seq uint64) {
		if committer == nil || seq <= committed {
			return
		}
		if err := committer.Commit(sendCtx, seq); err != nil {
			log.Warn("Commit through event %d failed: %v", seq, err)
			errs = multierror.Append(errs, fmt.Errorf("commit: %w", err))
			return
		}
		committed = seq
	}

	batchesOut, rejectedOut := batches, rejected
	for batchesOut != nil || rejectedOut != nil {
		select {
		case batch, ok := <-batchesOut:
			if !ok {
				batchesOut = nil
				continue
			}
			result := p.sender.Send(sendCtx, batch)
			stats.Batches++
			stats.Items += batch.ItemCount()
			if result.Error() != nil {
				stats.FailedBatches++
			}
			onResult(result)
			commit(batch.CommitSeq())
		case result, ok := <-rejectedOut:
			if !ok {
				rejectedOut = nil
				continue
			}
			onResult(result)
		}
	}

	if err := g.Wait(); err != nil {
		errs = multierror.Append(errs, err)
	}
	stats.Events = state.events
	stats.Rejected = state.rejected
	commit(state.lastSeq)

	log.Info("Pipeline finished: %d events, %d rejected, %d batches, %d items, %d failed batches",
		stats.Events, stats.Rejected, stats.Batches, stats.Items, stats.FailedBatches)

	if err := errs.ErrorOrNil(); err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}

// read pulls events, transforms them and feeds the batcher. Rejected
// events are reported without stopping the stream.
func (p *Pipeline) read(
	ctx context.Context,
	src driven.EventSource,
	state *readState,
	items chan<- domain.Item,
	rejected chan<- domain.BulkResult,
) error {
	// Id resolution is a suspension point that must not be cut short.
	transformCtx := context.WithoutCancel(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}
		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}

		state.events++
		state.lastSeq++
		seq := state.lastSeq

		out, err := p.transformer.Transform(transformCtx, ev)
		if err != nil {
			state.rejected++
			rejected <- domain.BulkResult{
				Meta:     ev.Meta.Clone(),
				SystemID: p.settings.System,
				EventID:  ev.ID(),
				Err:      err,
			}
			continue
		}
		for i, item := range out {
			item.Seq = seq
			item.Last = i == len(out)-1
			items <- item
		}
	}
}
