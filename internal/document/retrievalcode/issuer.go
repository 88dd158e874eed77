// Package retrievalcode issues the short numeric codes clients present at the
// front desk. Group codes and single-document codes share one code space.
package retrievalcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/cenkalti/backoff/v4"

	"notaria/internal/document/metrics"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/platform/sentinel"
)

const (
	DefaultLength      = 4
	DefaultMaxAttempts = 10
)

// Checker reports whether a code is held by an active (READY) document.
type Checker interface {
	RetrievalCodeInUse(ctx context.Context, code string) (bool, error)
}

// Issuer generates codes. It is safe for concurrent use; per-operation state
// lives in a Batch.
type Issuer struct {
	length      int
	maxAttempts int
	random      io.Reader
	metrics     *metrics.Metrics
}

type Option func(*Issuer)

// WithLength sets the number of digits (minimum 4).
func WithLength(n int) Option {
	return func(i *Issuer) {
		if n >= DefaultLength {
			i.length = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(i *Issuer) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithRandom replaces the entropy source, for deterministic tests.
func WithRandom(r io.Reader) Option {
	return func(i *Issuer) {
		if r != nil {
			i.random = r
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Issuer) { i.metrics = m }
}

func New(opts ...Option) *Issuer {
	i := &Issuer{
		length:      DefaultLength,
		maxAttempts: DefaultMaxAttempts,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Validate checks a submitted code's format.
func (i *Issuer) Validate(code string) error {
	if len(code) != i.length {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("retrieval code must have %d digits", i.length))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return dErrors.New(dErrors.CodeValidation, "retrieval code must be numeric")
		}
	}
	return nil
}

// Batch issues codes for one bulk operation. Codes handed out by the batch
// are reserved so two partitions of the same operation never share a code
// before either is committed.
type Batch struct {
	issuer   *Issuer
	checker  Checker
	reserved map[string]struct{}
}

// NewBatch starts a batch that checks uniqueness against checker.
func (i *Issuer) NewBatch(checker Checker) *Batch {
	return &Batch{issuer: i, checker: checker, reserved: make(map[string]struct{})}
}

// IssueForGroup returns a code shared by every member of a group.
func (b *Batch) IssueForGroup(ctx context.Context) (string, error) {
	return b.issue(ctx, "group")
}

// IssueForSingle returns a code for a lone document.
func (b *Batch) IssueForSingle(ctx context.Context) (string, error) {
	return b.issue(ctx, "single")
}

var errTaken = errors.New("retrieval code taken")

func (b *Batch) issue(ctx context.Context, kind string) (string, error) {
	var code string
	policy := backoff.WithContext(
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(b.issuer.maxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		candidate, err := b.issuer.generate()
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, dup := b.reserved[candidate]; dup {
			b.issuer.metrics.IncrementCodeCollision()
			return errTaken
		}
		inUse, err := b.checker.RetrievalCodeInUse(ctx, candidate)
		if err != nil {
			return backoff.Permanent(err)
		}
		if inUse {
			b.issuer.metrics.IncrementCodeCollision()
			return errTaken
		}
		code = candidate
		return nil
	}, policy)
	if errors.Is(err, errTaken) {
		return "", fmt.Errorf("no free retrieval code after %d attempts: %w", b.issuer.maxAttempts, sentinel.ErrUnavailable)
	}
	if err != nil {
		return "", err
	}
	b.reserved[code] = struct{}{}
	b.issuer.metrics.IncrementCodeIssued(kind)
	return code, nil
}

// generate draws codes until one is not weak. The first digit is never zero.
func (i *Issuer) generate() (string, error) {
	for {
		buf := make([]byte, i.length)
		for p := range buf {
			lo, span := int64(0), int64(10)
			if p == 0 {
				lo, span = 1, 9
			}
			n, err := rand.Int(i.random, big.NewInt(span))
			if err != nil {
				return "", fmt.Errorf("read entropy: %w", err)
			}
			buf[p] = byte('0' + lo + n.Int64())
		}
		code := string(buf)
		if !IsWeak(code) {
			return code, nil
		}
	}
}
