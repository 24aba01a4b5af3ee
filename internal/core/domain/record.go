package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IdentityField is the document identity field. Deletes keyed on it are
// addressed directly instead of being resolved through a query.
const IdentityField = "_id"

// IDList is one or more document ids. It decodes a JSON string, number
// or array of those.
type IDList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *IDList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		ids := make(IDList, 0, len(raw))
		for _, r := range raw {
			id, err := scalarID(r)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		*l = ids
		return nil
	}
	id, err := scalarID(data)
	if err != nil {
		return err
	}
	*l = IDList{id}
	return nil
}

// MarshalJSON writes a single id as a scalar and several as an array.
func (l IDList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	return json.Marshal([]string(l))
}

func scalarID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("id must be a string or number, got %s", raw)
}

// Record is the domain payload of an upstream event: a document to upsert
// or one or more documents to delete.
type Record struct {
	Index  string          `json:"index"`
	Type   string          `json:"type,omitempty"`
	ID     IDList          `json:"id"`
	Delete bool            `json:"delete,omitempty"`
	Field  string          `json:"field,omitempty"`
	Doc    json.RawMessage `json:"doc,omitempty"`
}

// ParseRecord decodes an event payload into a Record.
func ParseRecord(payload json.RawMessage) (Record, error) {
	var r Record
	if isNull(payload) {
		return r, fmt.Errorf("%w: empty payload", ErrInvalidRecord)
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, fmt.Errorf("%w: %w: %s", ErrInvalidRecord, err, payload)
	}
	return r, nil
}

// Validate checks the fields every record must carry. Type is only
// required when requireType is set.
func (r Record) Validate(requireType bool) error {
	if r.Index == "" || (requireType && r.Type == "") || len(r.ID) == 0 {
		return ErrInvalidRecord
	}
	for _, id := range r.ID {
		if id == "" {
			return ErrInvalidRecord
		}
	}
	if !r.Delete && len(r.ID) > 1 {
		return fmt.Errorf("%w: upsert addresses %d ids", ErrInvalidRecord, len(r.ID))
	}
	return nil
}

// IsDeleteByField reports whether the record deletes every document whose
// Field matches one of the ids, rather than the ids themselves.
func (r Record) IsDeleteByField() bool {
	return r.Delete && r.Field != "" && r.Field != IdentityField
}
