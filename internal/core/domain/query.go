package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Query defaults.
const (
	// DefaultQueryMax caps accumulated hits across every page.
	DefaultQueryMax = 100000

	// DefaultPageSize is the page size when the request leaves it unset.
	DefaultPageSize = 10000

	// IDResolutionChunk is the number of values per terms query when
	// resolving a delete-by-field into document ids.
	IDResolutionChunk = 1000

	// IDResolutionScroll is the cursor keep-alive used while resolving ids.
	IDResolutionScroll = "15s"
)

// QueryRequest describes a search. When ScrollID is set the request is a
// continuation and only Scroll and Max are read.
type QueryRequest struct {
	Index string
	Type  string
	Query map[string]any
	Sort  []any
	// From is forwarded on single-shot searches only. Clusters ignore or
	// reject it in a scroll context, so it is dropped when Scroll is set.
	From   int
	Size   int
	Max    int
	Scroll string
	// ScrollID continues an earlier query.
	ScrollID string
	Source   []string
	Aggs     map[string]any
}

// EffectiveMax returns Max or the default ceiling.
func (r QueryRequest) EffectiveMax() int {
	if r.Max <= 0 {
		return DefaultQueryMax
	}
	return r.Max
}

// PageSize returns min(max, size), with size defaulting to DefaultPageSize.
func (r QueryRequest) PageSize() int {
	size := r.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	return min(size, r.EffectiveMax())
}

// SearchRequest is the wire-level search the client executes.
type SearchRequest struct {
	Index  string
	Type   string
	Body   SearchBody
	Scroll string
}

// SearchBody is the JSON body of a search request.
type SearchBody struct {
	Query  map[string]any `json:"query,omitempty"`
	Sort   []any          `json:"sort,omitempty"`
	From   int            `json:"from,omitempty"`
	Size   int            `json:"size"`
	Aggs   map[string]any `json:"aggs,omitempty"`
	Source []string       `json:"_source,omitempty"`
}

// TotalHits decodes both the legacy integer total and the
// {"value": n, "relation": "eq"} object.
type TotalHits int64

// UnmarshalJSON implements json.Unmarshaler.
func (t *TotalHits) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Value int64 `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*t = TotalHits(obj.Value)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("hits.total: %w", err)
	}
	*t = TotalHits(n)
	return nil
}

// Hit is a single search hit.
type Hit struct {
	Index  string          `json:"_index"`
	Type   string          `json:"_type,omitempty"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Source json.RawMessage `json:"_source,omitempty"`
	Sort   []any           `json:"sort,omitempty"`
}

// SearchResponse is one page returned by a search or scroll call.
type SearchResponse struct {
	Took         int             `json:"took"`
	ScrollID     string          `json:"_scroll_id,omitempty"`
	Hits         SearchHits      `json:"hits"`
	Aggregations json.RawMessage `json:"aggregations,omitempty"`
}

// SearchHits is the hits envelope of a search response.
type SearchHits struct {
	Total    TotalHits `json:"total"`
	MaxScore *float64  `json:"max_score"`
	Hits     []Hit     `json:"hits"`
}

// PageInfo records the hits envelope of one page, without the hits.
type PageInfo struct {
	Total    int64    `json:"total"`
	MaxScore *float64 `json:"max_score"`
	Qty      int      `json:"qty"`
}

// QueryResult accumulates pages of a query. Qty always equals len(Items).
type QueryResult[T any] struct {
	Took         int             `json:"took"`
	Qty          int             `json:"qty"`
	Items        []T             `json:"items"`
	Total        int64           `json:"total"`
	Aggregations json.RawMessage `json:"aggregations,omitempty"`
	Scrolls      []PageInfo      `json:"scrolls"`
	// ScrollID is set when more pages remain under both Max and Total.
	ScrollID string `json:"scrollid,omitempty"`
}

// Projection maps a hit to the item a caller collects.
type Projection[T any] interface {
	Project(Hit) (T, error)
}

// ProjectionFunc adapts a function to Projection.
type ProjectionFunc[T any] func(Hit) (T, error)

// Project implements Projection.
func (f ProjectionFunc[T]) Project(h Hit) (T, error) {
	return f(h)
}

// ReturnMode selects one of the built-in projections by name.
type ReturnMode string

// Built-in return modes.
const (
	ReturnFull   ReturnMode = "full"
	ReturnSource ReturnMode = "source"
)

// IsValid returns true if the return mode is recognised.
func (m ReturnMode) IsValid() bool {
	return m == ReturnFull || m == ReturnSource
}

var (
	// FullProjection returns each hit unchanged.
	FullProjection Projection[Hit] = ProjectionFunc[Hit](func(h Hit) (Hit, error) {
		return h, nil
	})

	// SourceProjection returns only the _source of each hit.
	SourceProjection Projection[json.RawMessage] = ProjectionFunc[json.RawMessage](
		func(h Hit) (json.RawMessage, error) {
			return h.Source, nil
		})
)

// RawProjection returns the built-in projection for mode as raw JSON, for
// callers that render results without knowing their shape. Unknown modes
// fall back to full hits.
func RawProjection(mode ReturnMode) Projection[json.RawMessage] {
	if mode == ReturnSource {
		return SourceProjection
	}
	return ProjectionFunc[json.RawMessage](func(h Hit) (json.RawMessage, error) {
		return json.Marshal(h)
	})
}
