package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/custodia-labs/esload/internal/adapters/driven/config/file"
	filesource "github.com/custodia-labs/esload/internal/adapters/driven/source/file"
	"github.com/custodia-labs/esload/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/core/ports/driving"
)

// mockPipeline implements driving.Pipeline by draining the source.
type mockPipeline struct {
	results []domain.BulkResult
	err     error
}

func (m *mockPipeline) Run(
	ctx context.Context, src driven.EventSource, onResult func(domain.BulkResult),
) (*driving.PipelineStats, error) {
	stats := &driving.PipelineStats{}
	for {
		_, err := src.Next(ctx)
		if err != nil {
			break
		}
		stats.Events++
	}
	for _, r := range m.results {
		stats.Batches++
		stats.Items += r.Items
		onResult(r)
	}
	return stats, m.err
}

// mockQueryService implements driving.QueryService for testing.
type mockQueryService struct {
	lastReq  domain.QueryRequest
	lastMode domain.ReturnMode
	err      error
}

func (m *mockQueryService) Search(context.Context, domain.QueryRequest) (*domain.QueryResult[domain.Hit], error) {
	return nil, errors.New("not used")
}

func (m *mockQueryService) SearchRaw(
	_ context.Context, req domain.QueryRequest, mode domain.ReturnMode,
) (*domain.QueryResult[json.RawMessage], error) {
	m.lastReq, m.lastMode = req, mode
	if m.err != nil {
		return nil, m.err
	}
	return &domain.QueryResult[json.RawMessage]{
		Qty:   1,
		Total: 1,
		Items: []json.RawMessage{json.RawMessage(`{"_id":"doc-1"}`)},
	}, nil
}

// testServices holds the fakes installed by setupTestServices.
type testServices struct {
	pipeline *mockPipeline
	query    *mockQueryService
	archive  *memory.ArchiveStore
	input    string
}

// setupTestServices installs fakes for every service and returns a
// function restoring the previous ones.
func setupTestServices() (*testServices, func()) {
	oldCfg, oldPipeline, oldQuery := cfg, pipeline, queryService
	oldReader, oldLister, oldOpen := archiveReader, archiveLister, openSource

	ts := &testServices{
		pipeline: &mockPipeline{},
		query:    &mockQueryService{},
		archive:  memory.NewArchiveStore(),
		input:    `{"id":"e1","payload":{"index":"i","id":"1"}}` + "\n",
	}

	loaded, _ := file.FromStore(&file.ConfigStore{}, func(string) (string, bool) { return "", false })
	cfg = loaded
	pipeline = ts.pipeline
	queryService = ts.query
	archiveReader, archiveLister = ts.archive, ts.archive
	openSource = func(_ context.Context, src file.SourceConfig) (driven.EventSource, error) {
		if src.Kind == file.SourceFile && src.Path != "-" {
			return filesource.Open(src.Path)
		}
		return filesource.NewSource(strings.NewReader(ts.input)), nil
	}

	return ts, func() {
		cfg, pipeline, queryService = oldCfg, oldPipeline, oldQuery
		archiveReader, archiveLister, openSource = oldReader, oldLister, oldOpen
		runInput, runJSON = "", false
		queryBody, queryType, querySort, queryAggs = "", "", "", ""
		querySource, queryFrom, querySize, queryMax = nil, 0, 0, 0
		queryScroll, queryScrollID, queryReturn = "", "", ""
		archiveLimit = 50
	}
}
