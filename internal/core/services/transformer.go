package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driving"
	"github.com/custodia-labs/esload/internal/logger"
)

// Transformer turns upstream events into encoded bulk actions.
type Transformer struct {
	query       driving.QueryService
	requireType bool
}

// NewTransformer creates a transformer. The query service resolves
// delete-by-field records into document ids; it may be nil when no such
// records are expected.
func NewTransformer(query driving.QueryService, requireType bool) *Transformer {
	return &Transformer{
		query:       query,
		requireType: requireType,
	}
}

// Transform validates the event's record and returns its encoded actions
// in emission order. A failed event yields no items at all.
func (t *Transformer) Transform(ctx context.Context, ev domain.Event) ([]domain.Item, error) {
	rec, err := domain.ParseRecord(ev.Payload)
	if err != nil {
		logger.Warn("Rejecting event %s: %v", ev.ID(), err)
		return nil, err
	}
	if err := rec.Validate(t.requireType); err != nil {
		logger.Warn("Rejecting event %s: %v: %s", ev.ID(), err, ev.Payload)
		return nil, fmt.Errorf("%w: %s", err, ev.Payload)
	}

	actions, err := t.Actions(ctx, rec)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(actions))
	for _, a := range actions {
		line, err := a.Encode()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRecord, err)
		}
		items = append(items, domain.Item{Meta: ev.Meta, Line: line})
	}
	return items, nil
}

// Actions maps a validated record to bulk actions.
func (t *Transformer) Actions(ctx context.Context, rec domain.Record) ([]domain.Action, error) {
	if !rec.Delete {
		target := domain.Target{Index: rec.Index, Type: rec.Type, ID: rec.ID[0]}
		a, err := domain.NewUpsert(target, rec.Doc)
		if err != nil {
			return nil, err
		}
		return []domain.Action{a}, nil
	}

	ids := []string(rec.ID)
	if rec.IsDeleteByField() {
		resolved, err := t.resolveIDs(ctx, rec)
		if err != nil {
			return nil, err
		}
		ids = resolved
	}

	actions := make([]domain.Action, 0, len(ids))
	for _, id := range ids {
		actions = append(actions, domain.NewDelete(domain.Target{Index: rec.Index, Type: rec.Type, ID: id}))
	}
	return actions, nil
}

// resolveIDs finds every document whose rec.Field matches one of rec.ID.
// Chunks are queried strictly in order; the first failure aborts the
// record so no partial delete is emitted.
func (t *Transformer) resolveIDs(ctx context.Context, rec domain.Record) ([]string, error) {
	if t.query == nil {
		return nil, fmt.Errorf("%w: no query service configured", domain.ErrIDResolution)
	}

	var ids []string
	for chunk := range chunkIDs(rec.ID, domain.IDResolutionChunk) {
		req := domain.QueryRequest{
			Index: rec.Index,
			Type:  rec.Type,
			Query: map[string]any{
				"terms": map[string]any{rec.Field: chunk},
			},
			Source: []string{domain.IdentityField},
			Scroll: domain.IDResolutionScroll,
		}
		res, err := t.query.Search(ctx, req)
		if err != nil {
			logger.Error("Resolving %s on %s failed: %v", rec.Field, rec.Index, err)
			return nil, fmt.Errorf("%w: %s on %s: %w", domain.ErrIDResolution, rec.Field, rec.Index, err)
		}
		for _, hit := range res.Items {
			ids = append(ids, hit.ID)
		}
	}
	logger.Debug("Resolved %d ids on %s.%s to %d documents", len(rec.ID), rec.Index, rec.Field, len(ids))
	return ids, nil
}

// chunkIDs yields consecutive slices of at most size ids.
func chunkIDs(ids []string, size int) func(func([]string) bool) {
	return func(yield func([]string) bool) {
		for start := 0; start < len(ids); start += size {
			end := min(start+size, len(ids))
			if !yield(ids[start:end]) {
				return
			}
		}
	}
}
