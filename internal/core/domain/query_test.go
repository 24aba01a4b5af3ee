package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalHits_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want TotalHits
	}{
		{"legacy integer", `{"total":2500}`, 2500},
		{"object", `{"total":{"value":1200,"relation":"eq"}}`, 1200},
		{"null", `{"total":null}`, 0},
		{"missing", `{}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h SearchHits
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &h))
			assert.Equal(t, tt.want, h.Total)
		})
	}

	var h SearchHits
	assert.Error(t, json.Unmarshal([]byte(`{"total":"many"}`), &h))
}

func TestSearchResponse_Decode(t *testing.T) {
	raw := `{"took":3,"_scroll_id":"c1","hits":{"total":{"value":2},"max_score":1.5,
		"hits":[{"_index":"a","_type":"t","_id":"1","_score":1.5,"_source":{"x":1}}]},
		"aggregations":{"n":{"value":2}}}`

	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	assert.Equal(t, 3, resp.Took)
	assert.Equal(t, "c1", resp.ScrollID)
	assert.Equal(t, TotalHits(2), resp.Hits.Total)
	require.Len(t, resp.Hits.Hits, 1)
	assert.Equal(t, "1", resp.Hits.Hits[0].ID)
	assert.JSONEq(t, `{"x":1}`, string(resp.Hits.Hits[0].Source))
	assert.JSONEq(t, `{"n":{"value":2}}`, string(resp.Aggregations))
}

func TestQueryRequest_PageSize(t *testing.T) {
	tests := []struct {
		name string
		req  QueryRequest
		want int
	}{
		{"defaults", QueryRequest{}, 10000},
		{"size", QueryRequest{Size: 500}, 500},
		{"max below default size", QueryRequest{Max: 1500}, 1500},
		{"max below size", QueryRequest{Size: 2000, Max: 1500}, 1500},
		{"size above default", QueryRequest{Size: 20000}, 20000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.PageSize())
		})
	}

	assert.Equal(t, DefaultQueryMax, QueryRequest{}.EffectiveMax())
}

func TestProjections(t *testing.T) {
	score := 1.0
	hit := Hit{Index: "a", ID: "1", Score: &score, Source: json.RawMessage(`{"x":1}`)}

	full, err := FullProjection.Project(hit)
	require.NoError(t, err)
	assert.Equal(t, hit, full)

	src, err := SourceProjection.Project(hit)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(src))

	raw, err := RawProjection(ReturnFull).Project(hit)
	require.NoError(t, err)
	assert.JSONEq(t, `{"_index":"a","_id":"1","_score":1,"_source":{"x":1}}`, string(raw))

	raw, err = RawProjection(ReturnSource).Project(hit)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(raw))

	ids := ProjectionFunc[string](func(h Hit) (string, error) { return h.ID, nil })
	id, err := ids.Project(hit)
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}
