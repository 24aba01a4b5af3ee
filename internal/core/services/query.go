package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/core/ports/driving"
	"github.com/custodia-labs/esload/internal/logger"
)

// Ensure QueryEngine implements the interface.
var _ driving.QueryService = (*QueryEngine)(nil)

// QueryEngine runs searches and follows scroll cursors until the result
// set, the caller's ceiling or the cursor runs out.
type QueryEngine struct {
	client driven.SearchClient
}

// NewQueryEngine creates a query engine over client.
func NewQueryEngine(client driven.SearchClient) *QueryEngine {
	return &QueryEngine{client: client}
}

// Search returns full hits.
func (e *QueryEngine) Search(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult[domain.Hit], error) {
	return RunQuery(ctx, e, req, domain.FullProjection)
}

// SearchRaw returns hits rendered by the built-in projection for mode.
func (e *QueryEngine) SearchRaw(
	ctx context.Context,
	req domain.QueryRequest,
	mode domain.ReturnMode,
) (*domain.QueryResult[json.RawMessage], error) {
	return RunQuery(ctx, e, req, domain.RawProjection(mode))
}

// RunQuery executes req and folds every page through proj. Pages are
// fetched one at a time; the next cursor request is only issued after the
// previous page has been accumulated. Any failure discards the partial
// result.
func RunQuery[T any](
	ctx context.Context,
	e *QueryEngine,
	req domain.QueryRequest,
	proj domain.Projection[T],
) (*domain.QueryResult[T], error) {
	result := &domain.QueryResult[T]{
		Items:   []T{},
		Scrolls: []domain.PageInfo{},
	}
	maxItems := req.EffectiveMax()

	var (
		resp *domain.SearchResponse
		err  error
	)
	if req.ScrollID != "" {
		logger.Debug("Continuing scroll (keep-alive %s)", req.Scroll)
		resp, err = e.client.Scroll(ctx, req.ScrollID, req.Scroll)
	} else {
		resp, err = e.client.Search(ctx, buildSearch(req))
	}

	for {
		if err != nil {
			return nil, queryFailed(req, err)
		}

		hits := resp.Hits.Hits
		for _, hit := range hits {
			item, err := proj.Project(hit)
			if err != nil {
				return nil, queryFailed(req, fmt.Errorf("project hit %s: %w", hit.ID, err))
			}
			result.Items = append(result.Items, item)
		}

		result.Qty = len(result.Items)
		result.Took += resp.Took
		result.Total = int64(resp.Hits.Total)
		if len(resp.Aggregations) > 0 {
			result.Aggregations = resp.Aggregations
		}
		result.Scrolls = append(result.Scrolls, domain.PageInfo{
			Total:    int64(resp.Hits.Total),
			MaxScore: resp.Hits.MaxScore,
			Qty:      len(hits),
		})

		// The cursor is handed back whenever the result set has pages left,
		// including when this call stopped at its own ceiling.
		result.ScrollID = ""
		remaining := resp.ScrollID != "" && len(hits) > 0 && int64(result.Qty) < result.Total
		if remaining {
			result.ScrollID = resp.ScrollID
		}

		if req.Scroll == "" || !remaining || result.Qty >= maxItems {
			return result, nil
		}

		logger.Debug("Scrolling: %d of %d", result.Qty, result.Total)
		resp, err = e.client.Scroll(ctx, resp.ScrollID, req.Scroll)
	}
}

// buildSearch turns a fresh query into the wire request.
func buildSearch(req domain.QueryRequest) domain.SearchRequest {
	body := domain.SearchBody{
		Query:  req.Query,
		Sort:   req.Sort,
		Size:   req.PageSize(),
		Aggs:   req.Aggs,
		Source: req.Source,
	}
	if req.From > 0 {
		if req.Scroll != "" {
			logger.Warn("Ignoring from=%d: offsets are not applied while scrolling", req.From)
		} else {
			logger.Warn("Using from=%d: offsets are unreliable for deep pagination, prefer scroll", req.From)
			body.From = req.From
		}
	}
	return domain.SearchRequest{
		Index:  req.Index,
		Type:   req.Type,
		Body:   body,
		Scroll: req.Scroll,
	}
}

func queryFailed(req domain.QueryRequest, err error) error {
	query, _ := json.Marshal(req.Query)
	logger.WithFields(logger.Fields{
		"index":  req.Index,
		"query":  string(query),
		"scroll": req.Scroll,
	}).Error("Query failed: %v", err)
	return fmt.Errorf("%w: %w", domain.ErrQuery, err)
}
