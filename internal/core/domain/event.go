package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// payloadKey is the envelope field holding the domain record.
const payloadKey = "payload"

// Metadata holds the envelope fields of an event except its payload.
// It travels unchanged through every pipeline stage.
type Metadata map[string]any

// String returns the metadata value for key when it is a string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Clone returns a shallow copy so stages never share a mutable map.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return Metadata{}
	}
	return maps.Clone(m)
}

// Event is an upstream message: arbitrary envelope fields plus a payload.
type Event struct {
	Meta    Metadata
	Payload json.RawMessage
}

// ID returns the envelope "id" field, used to address archived batches.
func (e Event) ID() string {
	return e.Meta.String("id")
}

// ParseEvent decodes a flat JSON envelope. The "payload" field becomes
// Payload and every other field is kept as metadata. An envelope without
// a payload is treated as carrying the record itself.
func ParseEvent(data []byte) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Event{}, fmt.Errorf("%w: decode event: %w", ErrInvalidInput, err)
	}

	payload, ok := fields[payloadKey]
	if !ok || isNull(payload) {
		payload = json.RawMessage(bytes.Clone(data))
	}
	delete(fields, payloadKey)

	meta := make(Metadata, len(fields))
	for k, v := range fields {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return Event{}, fmt.Errorf("%w: decode event field %s: %w", ErrInvalidInput, k, err)
		}
		meta[k] = val
	}
	return Event{Meta: meta, Payload: payload}, nil
}

// MarshalJSON flattens the event back into a single envelope object.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Meta)+1)
	for k, v := range e.Meta {
		out[k] = v
	}
	if len(e.Payload) > 0 {
		out[payloadKey] = e.Payload
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler using ParseEvent.
func (e *Event) UnmarshalJSON(data []byte) error {
	ev, err := ParseEvent(data)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
