package cli

import (
	"context"
	"fmt"

	"github.com/custodia-labs/esload/internal/adapters/driven/config/file"
	es "github.com/custodia-labs/esload/internal/adapters/driven/elasticsearch"
	filesource "github.com/custodia-labs/esload/internal/adapters/driven/source/file"
	"github.com/custodia-labs/esload/internal/adapters/driven/source/kafka"
	"github.com/custodia-labs/esload/internal/adapters/driven/source/postgres"
	"github.com/custodia-labs/esload/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/esload/internal/adapters/driven/storage/s3"
	"github.com/custodia-labs/esload/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/core/services"
	"github.com/custodia-labs/esload/internal/logger"
)

// wire builds the services for c.
func wire(_ context.Context, c *file.Config) error {
	client, err := es.NewClient(es.Config{
		Addresses: c.Elasticsearch.Addresses,
		Username:  c.Elasticsearch.Username,
		Password:  c.Elasticsearch.Password,
		APIKey:    c.Elasticsearch.APIKey,
	})
	if err != nil {
		return err
	}

	sink, err := openArchive(c.Archive)
	if err != nil {
		return err
	}

	engine := services.NewQueryEngine(client)
	transformer := services.NewTransformer(engine, c.Settings.RequireType)
	sender := services.NewBulkSender(client, sink, c.Settings)

	cfg = c
	queryService = engine
	pipeline = services.NewPipeline(transformer, sender, c.Settings)
	openSource = newSource
	return nil
}

// openArchive returns the configured sink, or nil when archival is off.
func openArchive(a file.ArchiveConfig) (driven.ArchiveSink, error) {
	switch a.Backend {
	case file.ArchiveSQLite:
		store, err := sqlite.NewStore(a.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		closers = append(closers, store.Close)
		archiveReader, archiveLister = store, store
		logger.Debug("Archiving to %s", store.Path())
		return store, nil
	case file.ArchiveMemory:
		store := memory.NewArchiveStore()
		archiveReader, archiveLister = store, store
		return store, nil
	case file.ArchiveS3:
		store, err := s3.NewStore(s3.Config(a.S3))
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		archiveReader = store
		return store, nil
	default:
		return nil, nil
	}
}

func newSource(ctx context.Context, src file.SourceConfig) (driven.EventSource, error) {
	switch src.Kind {
	case file.SourceKafka:
		return kafka.NewSource(kafka.Config{
			Brokers: src.Kafka.Brokers,
			GroupID: src.Kafka.GroupID,
			Topics:  src.Kafka.Topics,
		})
	case file.SourcePostgres:
		return postgres.Open(ctx, postgres.Config(src.Postgres))
	default:
		return filesource.Open(src.Path)
	}
}
