package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Batch defaults. The byte bound keeps a bulk request under a 10 MiB
// wire cap with a 5% margin.
const (
	DefaultBatchCount = 1000
	DefaultBatchBytes = 10485760 * 95 / 100
	DefaultBatchTime  = 200 * time.Millisecond
)

// Item is one encoded bulk action together with the metadata of the
// event that produced it.
type Item struct {
	Meta Metadata
	Line []byte
	// Seq is the position of the producing event in its source.
	Seq uint64
	// Last marks the final action produced by the event at Seq.
	Last bool
}

// Size returns the encoded byte length.
func (i Item) Size() int {
	return len(i.Line)
}

// BatchLimits bounds a batch. Whichever limit trips first closes it.
type BatchLimits struct {
	Count int
	Bytes int
	Time  time.Duration
}

// WithDefaults fills unset limits.
func (l BatchLimits) WithDefaults() BatchLimits {
	if l.Count <= 0 {
		l.Count = DefaultBatchCount
	}
	if l.Bytes <= 0 {
		l.Bytes = DefaultBatchBytes
	}
	if l.Time <= 0 {
		l.Time = DefaultBatchTime
	}
	return l
}

// Batch is an ordered group of encoded actions sent as one bulk request.
// It is immutable once handed downstream.
type Batch struct {
	Items    []Item
	ByteSize int
	OpenedAt time.Time
}

// ItemCount returns the number of actions in the batch.
func (b Batch) ItemCount() int {
	return len(b.Items)
}

// Body concatenates the encoded actions into one bulk payload.
func (b Batch) Body() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, b.ByteSize))
	for _, it := range b.Items {
		buf.Write(it.Line)
	}
	return buf.Bytes()
}

// Meta returns the metadata of the last event in the batch, which marks
// how far upstream the batch reaches.
func (b Batch) Meta() Metadata {
	if len(b.Items) == 0 {
		return Metadata{}
	}
	return b.Items[len(b.Items)-1].Meta.Clone()
}

// CommitSeq returns the newest source position whose actions have all
// been sent once this batch is. An event whose actions continue into the
// next batch is not covered.
func (b Batch) CommitSeq() uint64 {
	if len(b.Items) == 0 {
		return 0
	}
	last := b.Items[len(b.Items)-1]
	if last.Last {
		return last.Seq
	}
	return last.Seq - 1
}

// BulkItemFailure is one failed item reported by a bulk response.
type BulkItemFailure struct {
	Op     Op              `json:"op"`
	Index  string          `json:"_index"`
	Type   string          `json:"_type,omitempty"`
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error"`
}

// BulkResult is the outcome of sending one batch.
type BulkResult struct {
	Meta     Metadata
	SystemID string
	EventID  string
	Items    int
	Bytes    int

	// Location is where the request/response pair was archived.
	Location string
	// Body is only set in dry-run mode.
	Body string

	Failed    []BulkItemFailure
	Err       error
	UploadErr error
}

// Error combines the bulk and archival errors. Nil when both are nil.
func (r BulkResult) Error() error {
	var errs *multierror.Error
	if r.Err != nil {
		errs = multierror.Append(errs, r.Err)
	}
	if r.UploadErr != nil {
		errs = multierror.Append(errs, r.UploadErr)
	}
	return errs.ErrorOrNil()
}

// Archived is the JSON document written to the archive for every batch.
type Archived struct {
	Body     string          `json:"body"`
	Response json.RawMessage `json:"response"`
}
