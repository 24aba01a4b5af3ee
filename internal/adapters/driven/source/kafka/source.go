// Package kafka consumes change events from Kafka topics.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/custodia-labs/esload/internal/adapters/driven/source"
	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/logger"
)

// Ensure Source implements the interfaces.
var (
	_ driven.EventSource = (*Source)(nil)
	_ driven.Committer   = (*Source)(nil)
)

// retryDelay is the pause after a failed fetch.
const retryDelay = time.Second

// Config selects the brokers and topics to consume.
type Config struct {
	Brokers []string
	GroupID string
	Topics  []string
	MaxWait time.Duration
}

// reader is the subset of *kafka.Reader the source uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Source reads one event per message. Offsets are committed only when
// the pipeline acknowledges the event.
type Source struct {
	reader  reader
	tracker source.Tracker[kafka.Message]
}

// NewSource creates a consumer group reader over cfg.Topics.
func NewSource(cfg Config) (*Source, error) {
	if len(cfg.Brokers) == 0 || len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("%w: kafka brokers and topics are required", domain.ErrInvalidInput)
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: kafka group id is required", domain.ErrInvalidInput)
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = time.Second
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	})
	logger.Info("Kafka consumer started (group=%s topics=%v)", cfg.GroupID, cfg.Topics)
	return newSource(r), nil
}

func newSource(r reader) *Source {
	return &Source{reader: r}
}

// Next blocks until a decodable message arrives. Messages that are not
// JSON objects are logged and skipped.
func (s *Source) Next(ctx context.Context) (domain.Event, error) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Event{}, ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return domain.Event{}, io.EOF
			}
			logger.Warn("Kafka fetch failed: %v", err)
			select {
			case <-ctx.Done():
				return domain.Event{}, ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		ev, err := domain.ParseEvent(msg.Value)
		if err != nil {
			logger.Warn("Skipping message %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
			s.tracker.Skip(msg)
			continue
		}
		s.tracker.Deliver(msg)
		return ev, nil
	}
}

// Commit commits the offsets of every message up to event seq.
func (s *Source) Commit(ctx context.Context, seq uint64) error {
	msgs := s.tracker.Release(seq)
	if len(msgs) == 0 {
		return nil
	}
	if err := s.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("committing %d messages: %w", len(msgs), err)
	}
	return nil
}

// Close stops the reader.
func (s *Source) Close() error {
	return s.reader.Close()
}
