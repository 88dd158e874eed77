// Package notify sends one consolidated message per client after a bulk
// transition commits and records the outcome of each attempt. Failures are
// outcomes, never errors: the committed document state is not touched.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"notaria/internal/document/metrics"
	"notaria/internal/document/models"
	"notaria/internal/document/service"
	id "notaria/pkg/domain"
	"notaria/pkg/platform/circuit"
	"notaria/pkg/requestcontext"
)

const (
	defaultConcurrency = 4
	defaultSendRetries = 2
)

// ErrNoContact is returned by messengers that cannot reach a contact.
var ErrNoContact = errors.New("client has no reachable contact")

// Messenger is the outbound channel to clients.
type Messenger interface {
	Channel() string
	SendToClient(ctx context.Context, to Contact, msg Message) error
}

// Recorder persists notification outcomes.
type Recorder interface {
	RecordNotifications(ctx context.Context, records []*models.NotificationRecord) error
}

// Outcome is the per-client result reported alongside a bulk result.
type Outcome struct {
	ClientKey     string                    `json:"clientKey"`
	ClientName    string                    `json:"clientName"`
	Status        models.NotificationStatus `json:"status"`
	Reason        string                    `json:"reason,omitempty"`
	DocumentIDs   []id.DocumentID           `json:"documentIds"`
	RetrievalCode string                    `json:"retrievalCode,omitempty"`
	Grouped       bool                      `json:"grouped"`
}

// Sent reports whether the client was actually messaged.
func (o Outcome) Sent() bool { return o.Status == models.NotificationSent }

// CountSent returns the number of clients messaged.
func CountSent(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Sent() {
			n++
		}
	}
	return n
}

// Consolidator fans out one message per client group.
type Consolidator struct {
	messenger   Messenger
	recorder    Recorder
	breaker     *circuit.Breaker
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	now         func() time.Time
	concurrency int
	sendRetries uint64
	retryPause  time.Duration
}

type Option func(*Consolidator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consolidator) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consolidator) {
		c.metrics = m
	}
}

// WithRecorder persists every outcome.
func WithRecorder(r Recorder) Option {
	return func(c *Consolidator) {
		c.recorder = r
	}
}

// WithBreaker short-circuits sends while the messenger keeps failing.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Consolidator) {
		c.breaker = b
	}
}

// WithConcurrency bounds the number of sends in flight.
func WithConcurrency(n int) Option {
	return func(c *Consolidator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithSendRetry sets how often a failed send is retried and the pause between tries.
func WithSendRetry(retries int, pause time.Duration) Option {
	return func(c *Consolidator) {
		if retries >= 0 {
			c.sendRetries = uint64(retries)
		}
		if pause >= 0 {
			c.retryPause = pause
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Consolidator) {
		if now != nil {
			c.now = now
		}
	}
}

func New(messenger Messenger, opts ...Option) *Consolidator {
	c := &Consolidator{
		messenger:   messenger,
		logger:      slog.Default(),
		tracer:      otel.Tracer("notaria/internal/document/notify"),
		now:         time.Now,
		concurrency: defaultConcurrency,
		sendRetries: defaultSendRetries,
		retryPause:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify messages every client group of a committed result. enabled=false
// records every group as skipped. The returned slice follows result.Groups.
func (c *Consolidator) Notify(ctx context.Context, result *service.BulkResult, enabled bool) []Outcome {
	if result == nil || len(result.Groups) == 0 {
		return nil
	}
	kind, critical := kindFor(result.To)
	if !critical {
		return nil
	}

	outcomes := make([]Outcome, len(result.Groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, group := range result.Groups {
		g.Go(func() error {
			outcomes[i] = c.notifyGroup(gctx, kind, group, enabled)
			return nil
		})
	}
	_ = g.Wait()

	c.record(ctx, result, kind, outcomes)
	return outcomes
}

func (c *Consolidator) notifyGroup(ctx context.Context, kind Kind, group service.ClientGroupResult, enabled bool) Outcome {
	out := Outcome{
		ClientKey:     group.ClientKey,
		ClientName:    group.Client.Name,
		RetrievalCode: group.RetrievalCode,
		Grouped:       len(group.Documents) > 1,
	}
	for _, d := range group.Documents {
		out.DocumentIDs = append(out.DocumentIDs, d.ID)
	}

	switch {
	case !enabled:
		out.Status = models.NotificationSkippedDisabled
		out.Reason = "notifications disabled for this request"
	case group.Policy.IsSilent():
		out.Status = models.NotificationSkippedPolicy
		out.Reason = "client asked not to be notified"
	default:
		contact, ok := contactOf(group.Client)
		if !ok {
			out.Status = models.NotificationSkippedNoContact
			out.Reason = "no valid phone or email"
			break
		}
		if err := c.send(ctx, contact, newMessage(kind, group)); err != nil {
			out.Status = models.NotificationRejected
			out.Reason = err.Error()
			if errors.Is(err, ErrNoContact) {
				out.Status = models.NotificationSkippedNoContact
			}
			break
		}
		out.Status = models.NotificationSent
	}
	c.metrics.IncrementNotification(string(out.Status))
	return out
}

func (c *Consolidator) send(ctx context.Context, to Contact, msg Message) (err error) {
	ctx, span := c.tracer.Start(ctx, "notify.send_to_client", trace.WithAttributes(
		attribute.String("notify.kind", string(msg.Kind)),
		attribute.String("notify.channel", c.messenger.Channel()),
		attribute.Int("notify.documents", len(msg.Documents)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.breaker != nil && !c.breaker.Allow() {
		return errors.New("messenger unavailable, circuit open")
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryPause), c.sendRetries),
		ctx,
	)
	err = backoff.Retry(func() error {
		sendErr := c.messenger.SendToClient(ctx, to, msg)
		if errors.Is(sendErr, ErrNoContact) {
			return backoff.Permanent(sendErr)
		}
		return sendErr
	}, policy)

	if c.breaker != nil && !errors.Is(err, ErrNoContact) {
		if err != nil {
			if _, change := c.breaker.RecordFailure(); change.Opened {
				c.logger.WarnContext(ctx, "messenger circuit opened", "channel", c.messenger.Channel())
			}
		} else if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "messenger circuit closed", "channel", c.messenger.Channel())
		}
	}
	return err
}

func (c *Consolidator) record(ctx context.Context, result *service.BulkResult, kind Kind, outcomes []Outcome) {
	requestID := requestcontext.RequestID(ctx)
	for _, o := range outcomes {
		if o.Status == models.NotificationRejected {
			c.logger.WarnContext(ctx, "client notification rejected",
				"request_id", requestID,
				"client_key", o.ClientKey,
				"documents", len(o.DocumentIDs),
				"reason", o.Reason,
			)
		}
	}
	if c.recorder == nil {
		return
	}

	now := c.now()
	records := make([]*models.NotificationRecord, 0, len(outcomes))
	for _, o := range outcomes {
		records = append(records, &models.NotificationRecord{
			ID:          uuid.NewString(),
			ClientKey:   o.ClientKey,
			ClientName:  o.ClientName,
			Channel:     c.messenger.Channel(),
			Kind:        string(kind),
			Status:      o.Status,
			Reason:      o.Reason,
			DocumentIDs: o.DocumentIDs,
			Code:        o.RetrievalCode,
			ActorID:     result.Actor.ID,
			CreatedAt:   now,
		})
	}
	if err := c.recorder.RecordNotifications(ctx, records); err != nil {
		c.logger.ErrorContext(ctx, "failed to record notification outcomes",
			"request_id", requestID,
			"error", err,
		)
	}
}

func contactOf(client models.Client) (Contact, bool) {
	contact := Contact{Name: client.Name, Email: client.Email}
	if phone, ok := NormalizePhone(client.Phone); ok {
		contact.Phone = phone
	}
	return contact, contact.Phone != "" || contact.Email != ""
}
