package domain

import (
	"encoding/json"
	"fmt"
)

// BulkResponseItem is the per-action outcome inside a bulk response.
type BulkResponseItem struct {
	Index  string          `json:"_index"`
	Type   string          `json:"_type,omitempty"`
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error,omitempty"`
}

// BulkResponse is the decoded reply to a bulk request. Raw keeps the
// original bytes for archival.
type BulkResponse struct {
	Took   int                       `json:"took"`
	Errors bool                      `json:"errors"`
	Items  []map[Op]BulkResponseItem `json:"items"`

	// Message carries the error text some hosted clusters return in place
	// of a bulk reply.
	Message string `json:"Message,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// DecodeBulkResponse parses a bulk reply and keeps the raw bytes.
func DecodeBulkResponse(raw []byte) (*BulkResponse, error) {
	var resp BulkResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	resp.Raw = json.RawMessage(raw)
	return &resp, nil
}

// Failures returns every item that carries an error, in response order.
func (r *BulkResponse) Failures() []BulkItemFailure {
	if r == nil {
		return nil
	}
	var failed []BulkItemFailure
	for _, entry := range r.Items {
		for op, item := range entry {
			if isNull(item.Error) {
				continue
			}
			failed = append(failed, BulkItemFailure{
				Op:     op,
				Index:  item.Index,
				Type:   item.Type,
				ID:     item.ID,
				Status: item.Status,
				Error:  item.Error,
			})
		}
	}
	return failed
}
