package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/esload/internal/core/domain"
)

// fakeCluster records requests and replies with canned responses.
type fakeCluster struct {
	mu       sync.Mutex
	requests []*recorded
	status   int
	reply    string
}

type recorded struct {
	method string
	path   string
	query  string
	body   string
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodGet && r.URL.Path == "/" {
		_, _ = io.WriteString(w, `{"version":{"number":"7.17.0","build_flavor":"default"},"tagline":"You Know, for Search"}`)
		return
	}

	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, &recorded{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
	status, reply := f.status, f.reply
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply)
}

func (f *fakeCluster) last(t *testing.T) *recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T, cluster *fakeCluster) *Client {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return c
}

func TestClient_Bulk(t *testing.T) {
	cluster := &fakeCluster{reply: `{"took":4,"errors":true,"items":[{"update":{"_index":"i","_id":"1","status":409,"error":{"type":"version_conflict"}}}]}`}
	c := newTestClient(t, cluster)

	body := []byte(`{"delete":{"_index":"i","_id":"1"}}` + "\n")
	resp, err := c.Bulk(context.Background(), body)
	require.NoError(t, err)

	req := cluster.last(t)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/_bulk", req.path)
	assert.Equal(t, string(body), req.body)

	assert.True(t, resp.Errors)
	assert.Equal(t, 4, resp.Took)
	require.Len(t, resp.Failures(), 1)
	assert.Contains(t, string(resp.Raw), "version_conflict")
}

func TestClient_Bulk_ErrorStatusKeepsBody(t *testing.T) {
	cluster := &fakeCluster{status: http.StatusForbidden, reply: `{"Message":"User is not authorized"}`}
	c := newTestClient(t, cluster)

	resp, err := c.Bulk(context.Background(), []byte("{}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	require.NotNil(t, resp)
	assert.Equal(t, "User is not authorized", resp.Message)
}

func TestClient_Bulk_ErrorStatusNonJSON(t *testing.T) {
	cluster := &fakeCluster{status: http.StatusRequestEntityTooLarge, reply: "too large"}
	c := newTestClient(t, cluster)

	resp, err := c.Bulk(context.Background(), []byte("{}\n"))
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "too large")
}

func TestClient_Search(t *testing.T) {
	cluster := &fakeCluster{reply: `{"took":3,"_scroll_id":"c1","hits":{"total":{"value":2,"relation":"eq"},"max_score":1.5,
		"hits":[{"_index":"orders","_type":"order","_id":"1","_score":1.5,"_source":{"n":1}}]}}`}
	c := newTestClient(t, cluster)

	resp, err := c.Search(context.Background(), domain.SearchRequest{
		Index:  "orders",
		Type:   "order",
		Scroll: "15s",
		Body: domain.SearchBody{
			Query:  map[string]any{"terms": map[string]any{"ref": []string{"a"}}},
			Size:   1000,
			Source: []string{"_id"},
		},
	})
	require.NoError(t, err)

	req := cluster.last(t)
	assert.Equal(t, "/orders/order/_search", req.path)
	assert.Contains(t, req.query, "scroll=15000ms")

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.body), &sent))
	assert.Equal(t, float64(1000), sent["size"])
	assert.Equal(t, []any{"_id"}, sent["_source"])

	assert.Equal(t, "c1", resp.ScrollID)
	assert.Equal(t, domain.TotalHits(2), resp.Hits.Total)
	require.Len(t, resp.Hits.Hits, 1)
	assert.Equal(t, "1", resp.Hits.Hits[0].ID)
}

func TestClient_Search_Error(t *testing.T) {
	cluster := &fakeCluster{status: http.StatusNotFound, reply: `{"error":{"type":"index_not_found_exception"},"status":404}`}
	c := newTestClient(t, cluster)

	_, err := c.Search(context.Background(), domain.SearchRequest{Index: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index_not_found_exception")
}

func TestClient_Scroll(t *testing.T) {
	cluster := &fakeCluster{reply: `{"took":1,"hits":{"total":5,"hits":[]}}`}
	c := newTestClient(t, cluster)

	resp, err := c.Scroll(context.Background(), "c1", "1m")
	require.NoError(t, err)

	req := cluster.last(t)
	assert.Equal(t, "/_search/scroll", req.path)
	assert.JSONEq(t, `{"scroll":"1m","scroll_id":"c1"}`, req.body)
	assert.Equal(t, domain.TotalHits(5), resp.Hits.Total, "legacy numeric totals decode")
}

func TestNewClient_RequiresAddress(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseKeepAlive(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"15s", 15 * time.Second},
		{"1m", time.Minute},
		{"2d", 48 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKeepAlive(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKeepAlive("soon")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
