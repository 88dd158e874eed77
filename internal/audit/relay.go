// Package audit relays committed document audit events from the store's
// outbox to the event topic. The store is the source of truth; an event is
// marked published only after the broker acknowledged it, so delivery is
// at-least-once and consumers dedupe on the event id.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"notaria/internal/document/metrics"
	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

// Outbox is the store side of the relay.
type Outbox interface {
	PendingEvents(ctx context.Context, limit int) ([]*models.AuditEvent, error)
	MarkPublished(ctx context.Context, ids []id.EventID, at time.Time) error
}

// Publisher is the broker side of the relay.
type Publisher interface {
	PublishWithHeaders(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Relay drains the outbox in batches.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	topic     string
	batch     int
	interval  time.Duration
	maxRetry  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batch = n
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithMaxRetry bounds how long one record is retried before the batch stops.
func WithMaxRetry(d time.Duration) Option {
	return func(r *Relay) { r.maxRetry = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

func NewRelay(outbox Outbox, publisher Publisher, topic string, opts ...Option) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		topic:     topic,
		batch:     100,
		interval:  2 * time.Second,
		maxRetry:  10 * time.Second,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. A failed pass is logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.ErrorContext(ctx, "audit relay pass failed", "error", err)
				break
			}
			if n < r.batch {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce publishes one batch in commit order and returns how many events
// were marked published. It stops at the first record that cannot be
// delivered so ordering per document holds.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.outbox.PendingEvents(ctx, r.batch)
	if err != nil {
		return 0, fmt.Errorf("load pending events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]id.EventID, 0, len(events))
	var publishErr error
	for _, e := range events {
		if err := r.publish(ctx, e); err != nil {
			publishErr = err
			r.metrics.IncrementOutboxFailed()
			break
		}
		published = append(published, e.ID)
	}

	if len(published) > 0 {
		if err := r.outbox.MarkPublished(ctx, published, r.now()); err != nil {
			return 0, fmt.Errorf("mark published: %w", err)
		}
		r.metrics.IncrementOutboxPublished(len(published))
		r.logger.DebugContext(ctx, "audit events relayed", "count", len(published), "topic", r.topic)
	}
	if publishErr != nil {
		return len(published), publishErr
	}
	return len(published), nil
}

func (r *Relay) publish(ctx context.Context, e *models.AuditEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("marshal event %s: %w", e.ID, err))
	}
	headers := map[string]string{
		"event_id":   e.ID.String(),
		"event_type": string(e.Type),
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = r.maxRetry
	return backoff.Retry(func() error {
		return r.publisher.PublishWithHeaders(ctx, r.topic, []byte(e.DocumentID.String()), payload, headers)
	}, backoff.WithContext(policy, ctx))
}
