package driven

import (
	"context"

	"github.com/custodia-labs/esload/internal/core/domain"
)

// SearchClient is the transport to an Elasticsearch-compatible cluster.
// Implementations are shared read-only by every stage of a pipeline.
type SearchClient interface {
	// Bulk submits a newline-delimited bulk body. A non-nil error means the
	// request itself failed; item failures are reported in the response.
	Bulk(ctx context.Context, body []byte) (*domain.BulkResponse, error)

	// Search executes a fresh query.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)

	// Scroll fetches the next page of an open cursor.
	Scroll(ctx context.Context, scrollID, keepAlive string) (*domain.SearchResponse, error)
}
