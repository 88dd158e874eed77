// Package service implements the bulk transition coordinator: it validates a
// batch, groups it by client, mints retrieval codes and commits every status
// change, group assignment and audit event as one unit of work.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notaria/internal/document/metrics"
	"notaria/internal/document/retrievalcode"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/platform/sentinel"
)

const (
	DefaultMaxBatch       = 50
	defaultCommitAttempts = 4
)

// Service is the bulk transition coordinator.
type Service struct {
	store          Store
	issuer         *retrievalcode.Issuer
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	now            func() time.Time
	maxBatch       int
	commitAttempts int
	commitBackoff  time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxBatch caps the number of distinct documents per operation.
func WithMaxBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// WithCommitRetry sets how often a commit that lost a retrieval-code race is
// re-run, and the pause between runs.
func WithCommitRetry(attempts int, pause time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.commitAttempts = attempts
		}
		if pause >= 0 {
			s.commitBackoff = pause
		}
	}
}

// New constructs the coordinator.
func New(store Store, issuer *retrievalcode.Issuer, opts ...Option) *Service {
	s := &Service{
		store:          store,
		issuer:         issuer,
		logger:         slog.Default(),
		tracer:         otel.Tracer("notaria/internal/document/service"),
		now:            time.Now,
		maxBatch:       DefaultMaxBatch,
		commitAttempts: defaultCommitAttempts,
		commitBackoff:  10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// runCommit runs fn in a transaction, re-running the whole unit when it lost a
// race on a retrieval code. Any other error ends the attempt.
func (s *Service) runCommit(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.commitBackoff), uint64(s.commitAttempts-1)),
		ctx,
	)
	return backoff.Retry(func() error {
		err := s.store.RunInTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.IncrementCodeCollision()
			s.logger.WarnContext(ctx, "retrieval code claimed concurrently, retrying commit")
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// translate maps store and infrastructure failures onto the domain taxonomy.
// Domain errors raised inside the transaction pass through untouched.
func translate(err error, action string) error {
	var de *dErrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict,
			"documents changed while the operation was running; reload and retry")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation timed out, please retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+action)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, dErrors.Message(err))
	}
	span.End()
}
