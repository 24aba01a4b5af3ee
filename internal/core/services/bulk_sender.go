package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/logger"
)

const (
	archivePrefix  = "files/elasticsearch"
	unknownArchive = "unknown"
)

// BulkSender submits batches as bulk requests and archives every
// request/response pair.
type BulkSender struct {
	client   driven.SearchClient
	sink     driven.ArchiveSink
	settings domain.Settings
	limiter  *rate.Limiter

	now  func() time.Time
	salt func() string

	// files numbers archive keys for this sender.
	files atomic.Uint64
	total atomic.Int64
}

// NewBulkSender creates a bulk sender. sink may be nil, in which case
// results are not archived.
func NewBulkSender(client driven.SearchClient, sink driven.ArchiveSink, settings domain.Settings) *BulkSender {
	s := &BulkSender{
		client:   client,
		sink:     sink,
		settings: settings,
		now:      time.Now,
		salt:     uuid.NewString,
	}
	if settings.BulkRatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(settings.BulkRatePerSecond), 1)
	}
	s.total.Store(int64(settings.StartTotal))
	return s
}

// Total returns the running item count, seeded from StartTotal.
func (s *BulkSender) Total() int64 {
	return s.total.Load()
}

// Send submits one batch and archives the outcome. Errors are reported on
// the result rather than returned so that the caller always receives a
// result for every batch.
func (s *BulkSender) Send(ctx context.Context, batch domain.Batch) domain.BulkResult {
	meta := batch.Meta()
	result := domain.BulkResult{
		Meta:     meta,
		SystemID: s.settings.System,
		EventID:  meta.String("id"),
		Items:    batch.ItemCount(),
		Bytes:    batch.ByteSize,
	}

	total := s.total.Add(int64(batch.ItemCount()))
	if s.settings.LogSummary {
		logger.WithFields(logger.Fields{
			"bytes": batch.ByteSize,
			"items": batch.ItemCount(),
			"total": total,
		}).Info("Bulk batch")
	}

	body := batch.Body()
	if s.settings.DryRun {
		logger.Debug("Dry run: skipping bulk request of %d items", batch.ItemCount())
		result.Body = string(body)
		return result
	}

	resp, err := s.bulk(ctx, body)
	if err != nil {
		result.Err = fmt.Errorf("%w: %w", domain.ErrBulkTransport, err)
	} else if resp.Message != "" {
		result.Err = fmt.Errorf("%w: %s", domain.ErrBulkTransport, resp.Message)
	} else if resp.Errors {
		result.Failed = resp.Failures()
		for _, f := range result.Failed {
			logger.WithFields(logger.Fields{
				"op":     f.Op,
				"index":  f.Index,
				"id":     f.ID,
				"status": f.Status,
			}).Warn("Bulk item failed: %s", f.Error)
		}
		result.Err = fmt.Errorf("%w: %d of %d items failed", domain.ErrBulkPartialFailure, len(result.Failed), batch.ItemCount())
	}
	if result.Err != nil {
		logger.Error("Bulk request for event %s failed: %v", result.EventID, result.Err)
	}

	if s.settings.DontSaveResults {
		result.Failed = nil
		return result
	}
	if s.sink == nil {
		return result
	}

	var raw json.RawMessage
	if resp != nil {
		raw = resp.Raw
	}
	result.Location, result.UploadErr = s.archive(ctx, result, body, raw)
	return result
}

func (s *BulkSender) bulk(ctx context.Context, body []byte) (*domain.BulkResponse, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return s.client.Bulk(ctx, body)
}

func (s *BulkSender) archive(ctx context.Context, result domain.BulkResult, body []byte, raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	data, err := json.Marshal(domain.Archived{Body: string(body), Response: raw})
	if err != nil {
		return "", fmt.Errorf("%w: encode: %w", domain.ErrArchival, err)
	}

	key := s.ArchiveKey(result.SystemID, result.EventID, s.now())
	location, err := s.sink.Put(ctx, key, data)
	if err != nil {
		logger.Error("Archiving %s failed: %v", key, err)
		return "", fmt.Errorf("%w: %s: %w", domain.ErrArchival, key, err)
	}
	logger.Debug("Archived bulk pair to %s", location)
	return location, nil
}

// ArchiveKey derives a unique archive key. The UTC time path keeps keys
// browsable chronologically; the counter and salt separate batches
// flushed within the same millisecond.
func (s *BulkSender) ArchiveKey(systemID, eventID string, at time.Time) string {
	if systemID == "" {
		systemID = unknownArchive
	}
	if eventID == "" {
		eventID = unknownArchive
	}
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%s/%s%d-%d-%s",
		archivePrefix,
		systemID,
		eventID,
		at.Format("2006/01/02/15/04/"),
		at.UnixMilli(),
		s.files.Add(1),
		s.salt(),
	)
}
