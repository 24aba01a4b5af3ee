package domain

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// Op is a bulk API operation.
type Op string

// Supported bulk operations.
const (
	OpIndex  Op = "index"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Target addresses a single document.
type Target struct {
	Index string `json:"_index"`
	Type  string `json:"_type,omitempty"`
	ID    string `json:"_id"`
}

// UpdateDoc is the document line following an update command.
type UpdateDoc struct {
	Doc         json.RawMessage `json:"doc"`
	DocAsUpsert bool            `json:"doc_as_upsert"`
}

// Action is a bulk command with its optional document line.
// Delete carries no document; Index carries the raw source; Update
// carries an UpdateDoc.
type Action struct {
	Op     Op
	Target Target
	Doc    json.RawMessage
}

// NewUpsert builds the update-with-upsert action used for every write.
// It fails when doc is not valid JSON.
func NewUpsert(t Target, doc json.RawMessage) (Action, error) {
	if isNull(doc) {
		doc = json.RawMessage("null")
	}
	line, err := marshalNoHTMLEscape(UpdateDoc{Doc: doc, DocAsUpsert: true})
	if err != nil {
		return Action{}, fmt.Errorf("%w: document: %w", ErrInvalidRecord, err)
	}
	return Action{Op: OpUpdate, Target: t, Doc: line}, nil
}

// NewDelete builds a delete action.
func NewDelete(t Target) Action {
	return Action{Op: OpDelete, Target: t}
}

// Encode renders the action as newline-delimited JSON: the command line,
// then the document line for index and update.
func (a Action) Encode() ([]byte, error) {
	cmd, err := marshalNoHTMLEscape(map[Op]Target{a.Op: a.Target})
	if err != nil {
		return nil, fmt.Errorf("encode %s command: %w", a.Op, err)
	}
	var buf bytes.Buffer
	buf.Write(cmd)
	buf.WriteByte('\n')
	if a.Op == OpDelete {
		return buf.Bytes(), nil
	}
	if len(a.Doc) == 0 {
		return nil, fmt.Errorf("%w: %s action without document", ErrInvalidInput, a.Op)
	}
	var doc bytes.Buffer
	if err := json.Compact(&doc, a.Doc); err != nil {
		return nil, fmt.Errorf("encode %s document: %w", a.Op, err)
	}
	buf.Write(doc.Bytes())
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// DecodeActions parses a newline-delimited bulk body back into actions.
func DecodeActions(body []byte) ([]Action, error) {
	var actions []Action
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)

	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var cmd map[Op]Target
		if err := json.Unmarshal(line, &cmd); err != nil {
			return nil, fmt.Errorf("%w: command line: %w", ErrInvalidInput, err)
		}
		if len(cmd) != 1 {
			return nil, fmt.Errorf("%w: command line with %d operations", ErrInvalidInput, len(cmd))
		}
		var a Action
		for op, t := range cmd {
			a = Action{Op: op, Target: t}
		}
		if a.Op != OpDelete {
			if !sc.Scan() {
				return nil, fmt.Errorf("%w: %s command without document line", ErrInvalidInput, a.Op)
			}
			a.Doc = json.RawMessage(bytes.Clone(bytes.TrimSpace(sc.Bytes())))
		}
		actions = append(actions, a)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

// marshalNoHTMLEscape encodes v without escaping <, > and &, matching what
// upstream producers put on the wire.
func marshalNoHTMLEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
