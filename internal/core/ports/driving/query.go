package driving

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/esload/internal/core/domain"
)

// QueryService runs paginated searches.
type QueryService interface {
	// Search returns full hits.
	Search(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult[domain.Hit], error)

	// SearchRaw returns hits rendered by the built-in projection for mode.
	SearchRaw(ctx context.Context, req domain.QueryRequest, mode domain.ReturnMode) (*domain.QueryResult[json.RawMessage], error)
}
