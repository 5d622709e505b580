// Package worker relays audit outbox entries to the message broker.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "aurum/pkg/platform/audit"
	"aurum/pkg/platform/audit/store/postgres"
)

// OutboxSource is the outbox side of the relay.
type OutboxSource interface {
	FetchPending(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, entryID uuid.UUID, at time.Time) error
}

// Producer publishes one record to a topic and returns once it is acknowledged.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Relay polls the outbox and publishes each pending entry to the topic for
// its category. Entries are marked published only after the broker acks, so
// delivery is at-least-once and consumers dedupe on the event id.
type Relay struct {
	source      OutboxSource
	producer    Producer
	topicPrefix string
	interval    time.Duration
	batchSize   int
	logger      *slog.Logger
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func NewRelay(source OutboxSource, producer Producer, topicPrefix string, opts ...Option) *Relay {
	r := &Relay{
		source:      source,
		producer:    producer,
		topicPrefix: topicPrefix,
		interval:    defaultInterval,
		batchSize:   defaultBatchSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Topic returns the broker topic for a category.
func (r *Relay) Topic(category audit.EventCategory) string {
	return r.topicPrefix + "." + string(category)
}

// Topics lists every topic the relay may publish to.
func (r *Relay) Topics() []string {
	return []string{
		r.Topic(audit.CategoryCompliance),
		r.Topic(audit.CategorySecurity),
		r.Topic(audit.CategoryOperations),
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "audit relay flush failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch and returns how many entries were relayed. It stops
// at the first publish failure to preserve per-entity ordering.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	entries, err := r.source.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, e := range entries {
		if err := r.producer.Produce(ctx, r.Topic(e.Category), []byte(e.EntityID), e.Payload); err != nil {
			return sent, err
		}
		if err := r.source.MarkPublished(ctx, e.ID, time.Now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
