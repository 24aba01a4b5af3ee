package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/esload/internal/core/domain"
)

// mockQueryService implements driving.QueryService for testing. Every
// terms query resolves each value v to the documents "v-a" and "v-b".
type mockQueryService struct {
	requests []domain.QueryRequest
	failOn   int
}

func (m *mockQueryService) Search(_ context.Context, req domain.QueryRequest) (*domain.QueryResult[domain.Hit], error) {
	m.requests = append(m.requests, req)
	if m.failOn > 0 && len(m.requests) == m.failOn {
		return nil, fmt.Errorf("%w: shard failure", domain.ErrQuery)
	}

	res := &domain.QueryResult[domain.Hit]{}
	terms := req.Query["terms"].(map[string]any)
	for _, values := range terms {
		for _, v := range values.([]string) {
			res.Items = append(res.Items,
				domain.Hit{Index: req.Index, ID: v + "-a"},
				domain.Hit{Index: req.Index, ID: v + "-b"},
			)
		}
	}
	res.Qty = len(res.Items)
	res.Total = int64(res.Qty)
	return res, nil
}

func (m *mockQueryService) SearchRaw(
	context.Context, domain.QueryRequest, domain.ReturnMode,
) (*domain.QueryResult[json.RawMessage], error) {
	return nil, errors.New("not used")
}

func event(t *testing.T, raw string) domain.Event {
	t.Helper()
	ev, err := domain.ParseEvent([]byte(raw))
	require.NoError(t, err)
	return ev
}

func decodeItems(t *testing.T, items []domain.Item) []domain.Action {
	t.Helper()
	var body []byte
	for _, it := range items {
		body = append(body, it.Line...)
	}
	actions, err := domain.DecodeActions(body)
	require.NoError(t, err)
	return actions
}

func TestTransformer_Transform_Upsert(t *testing.T) {
	tr := NewTransformer(nil, false)

	items, err := tr.Transform(context.Background(), event(t,
		`{"id":"evt-1","payload":{"index":"orders","type":"order","id":42,"doc":{"total":9.5}}}`))
	require.NoError(t, err)
	require.Len(t, items, 1)

	actions := decodeItems(t, items)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.OpUpdate, actions[0].Op)
	assert.Equal(t, domain.Target{Index: "orders", Type: "order", ID: "42"}, actions[0].Target)

	var doc domain.UpdateDoc
	require.NoError(t, json.Unmarshal(actions[0].Doc, &doc))
	assert.True(t, doc.DocAsUpsert)
	assert.JSONEq(t, `{"total":9.5}`, string(doc.Doc))

	assert.Equal(t, "evt-1", items[0].Meta.String("id"))
}

func TestTransformer_Transform_UpsertWithoutDoc(t *testing.T) {
	tr := NewTransformer(nil, false)

	items, err := tr.Transform(context.Background(), event(t, `{"payload":{"index":"orders","id":"1"}}`))
	require.NoError(t, err)

	actions := decodeItems(t, items)
	assert.JSONEq(t, `{"doc":null,"doc_as_upsert":true}`, string(actions[0].Doc))
}

func TestTransformer_Transform_DeleteByIdentity(t *testing.T) {
	tests := []struct {
		name  string
		field string
	}{
		{"no field", ""},
		{"identity field", `,"field":"_id"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := &mockQueryService{}
			tr := NewTransformer(query, false)

			items, err := tr.Transform(context.Background(), event(t,
				`{"payload":{"index":"orders","id":["c","a","b"],"delete":true`+tt.field+`}}`))
			require.NoError(t, err)

			actions := decodeItems(t, items)
			require.Len(t, actions, 3)
			for i, id := range []string{"c", "a", "b"} {
				assert.Equal(t, domain.OpDelete, actions[i].Op)
				assert.Equal(t, id, actions[i].Target.ID)
				assert.Nil(t, actions[i].Doc)
			}
			assert.Empty(t, query.requests, "identity deletes never query")
		})
	}
}

func TestTransformer_Transform_DeleteByField(t *testing.T) {
	const m = 2500
	ids := make([]string, m)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%d", i)
	}
	payload, err := json.Marshal(map[string]any{
		"index": "orders", "type": "order", "id": ids, "delete": true, "field": "ref",
	})
	require.NoError(t, err)

	query := &mockQueryService{}
	tr := NewTransformer(query, true)

	items, err := tr.Transform(context.Background(), domain.Event{
		Meta:    domain.Metadata{"id": "evt-7"},
		Payload: payload,
	})
	require.NoError(t, err)

	require.Len(t, query.requests, 3)
	sizes := []int{1000, 1000, 500}
	for i, req := range query.requests {
		terms := req.Query["terms"].(map[string]any)
		assert.Len(t, terms["ref"], sizes[i])
		assert.Equal(t, []string{"_id"}, req.Source)
		assert.Equal(t, "15s", req.Scroll)
		assert.Equal(t, "orders", req.Index)
		assert.Equal(t, "order", req.Type)
	}

	actions := decodeItems(t, items)
	require.Len(t, actions, 2*m)
	assert.Equal(t, "r0-a", actions[0].Target.ID)
	assert.Equal(t, "r0-b", actions[1].Target.ID)
	assert.Equal(t, "r1000-a", actions[2000].Target.ID, "chunk order is preserved")
	assert.Equal(t, "r2499-b", actions[2*m-1].Target.ID)
	for _, a := range actions {
		assert.Equal(t, domain.OpDelete, a.Op)
		assert.Equal(t, "orders", a.Target.Index)
	}
}

func TestTransformer_Transform_DeleteByFieldFailure(t *testing.T) {
	ids := make([]string, 2100)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	payload, err := json.Marshal(map[string]any{"index": "orders", "id": ids, "delete": true, "field": "ref"})
	require.NoError(t, err)

	query := &mockQueryService{failOn: 2}
	tr := NewTransformer(query, false)

	items, err := tr.Transform(context.Background(), domain.Event{Payload: payload})
	assert.ErrorIs(t, err, domain.ErrIDResolution)
	assert.ErrorIs(t, err, domain.ErrQuery)
	assert.Empty(t, items)
	assert.Len(t, query.requests, 2, "remaining chunks are not queried")
}

func TestTransformer_Transform_DeleteByFieldWithoutQuery(t *testing.T) {
	tr := NewTransformer(nil, false)

	_, err := tr.Transform(context.Background(), event(t,
		`{"payload":{"index":"orders","id":"x","delete":true,"field":"ref"}}`))
	assert.ErrorIs(t, err, domain.ErrIDResolution)
}

func TestTransformer_Transform_InvalidRecord(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		requireType bool
	}{
		{"missing index", `{"id":"1"}`, false},
		{"missing id", `{"index":"orders"}`, false},
		{"missing type", `{"index":"orders","id":"1"}`, true},
		{"bad id", `{"index":"orders","id":{"x":1}}`, false},
		{"upsert with many ids", `{"index":"orders","id":["1","2"]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransformer(nil, tt.requireType)

			items, err := tr.Transform(context.Background(), event(t, `{"payload":`+tt.payload+`}`))
			assert.ErrorIs(t, err, domain.ErrInvalidRecord)
			assert.True(t, strings.Contains(err.Error(), "orders") || strings.Contains(err.Error(), `"id"`),
				"error carries the raw payload: %v", err)
			assert.Empty(t, items)
		})
	}
}

func TestTransformer_Transform_EnvelopeAsRecord(t *testing.T) {
	tr := NewTransformer(nil, false)

	items, err := tr.Transform(context.Background(), event(t, `{"index":"orders","id":"7","doc":{"a":1}}`))
	require.NoError(t, err)

	actions := decodeItems(t, items)
	require.Len(t, actions, 1)
	assert.Equal(t, "7", actions[0].Target.ID)
}
