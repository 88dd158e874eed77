// Package gate holds per-session confirmation and undo state in front of the
// bulk transition coordinator.
//
// A transition request moves through an explicit state machine:
//
//	REQUESTED -> AWAITING_CONFIRMATION -> EXECUTING -> COMMITTED
//	          \                        \-> CANCELLED
//	           \-> EXECUTING (no confirmation needed)
//
// A paused request is identified by a token the caller presents to confirm or
// cancel it. Every committed transition leaves one undo entry per session that
// can be consumed within a short window.
package gate

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"notaria/internal/document/metrics"
	"notaria/internal/document/models"
	"notaria/internal/document/notify"
	"notaria/internal/document/service"
	"notaria/internal/document/transition"
	id "notaria/pkg/domain"
)

const (
	DefaultUndoWindow = 10 * time.Second
	defaultPendingTTL = 5 * time.Minute
)

// State is the state of one transition request.
type State string

const (
	StateRequested            State = "REQUESTED"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateExecuting            State = "EXECUTING"
	StateCommitted            State = "COMMITTED"
	StateCancelled            State = "CANCELLED"

	// StateReverted reports a committed transition consumed by undo.
	StateReverted State = "REVERTED"
)

// Coordinator is the part of the bulk transition service the gate drives.
type Coordinator interface {
	Precheck(ctx context.Context, req service.Request) ([]*models.Document, error)
	Apply(ctx context.Context, req service.Request) (*service.BulkResult, error)
	Revert(ctx context.Context, actor id.Actor, rev service.Reversal) (*service.RevertResult, error)
}

// Notifier sends client messages after a commit.
type Notifier interface {
	Notify(ctx context.Context, result *service.BulkResult, enabled bool) []notify.Outcome
}

// TransitionRequest is what a caller asks for.
type TransitionRequest struct {
	DocumentIDs []id.DocumentID        `json:"documentIds"`
	To          models.Status          `json:"toStatus"`
	Reason      string                 `json:"reason,omitempty"`
	Delivery    *service.DeliveryInput `json:"delivery,omitempty"`
	Notify      bool                   `json:"notify"`
	Observed    []service.Observed     `json:"observed,omitempty"`
}

func (r TransitionRequest) serviceRequest(actor id.Actor) service.Request {
	return service.Request{
		DocumentIDs: r.DocumentIDs,
		To:          r.To,
		Actor:       actor,
		Reason:      r.Reason,
		Delivery:    r.Delivery,
		Observed:    r.Observed,
	}
}

// Prompt describes a change awaiting confirmation.
type Prompt struct {
	Category      transition.Category `json:"category"`
	Reason        string              `json:"reason"`
	From          []models.Status     `json:"from"`
	To            models.Status       `json:"to"`
	DocumentCount int                 `json:"documentCount"`
	ClientCount   int                 `json:"clientCount"`
	Grouped       bool                `json:"grouped"`
}

// Pending is a request paused for confirmation.
type Pending struct {
	Token     string            `json:"token"`
	ActorID   id.ActorID        `json:"actorId"`
	Request   TransitionRequest `json:"request"`
	Prompt    Prompt            `json:"prompt"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// UndoEntry is the reversible record of the last committed transition of a
// session.
type UndoEntry struct {
	Token             string                   `json:"token"`
	ActorID           id.ActorID               `json:"actorId"`
	To                models.Status            `json:"to"`
	Changes           []service.DocumentChange `json:"changes"`
	CreatedGroups     []models.DocumentGroup   `json:"createdGroups,omitempty"`
	DissolvedGroups   []models.DocumentGroup   `json:"dissolvedGroups,omitempty"`
	CodeIssued        bool                     `json:"codeIssued"`
	NotificationsSent int                      `json:"notificationsSent"`
	CommittedAt       time.Time                `json:"committedAt"`
	ExpiresAt         time.Time                `json:"expiresAt"`
}

func (e *UndoEntry) reversal() service.Reversal {
	return service.Reversal{
		Token:           e.Token,
		Changes:         e.Changes,
		CreatedGroups:   e.CreatedGroups,
		DissolvedGroups: e.DissolvedGroups,
	}
}

func (e *UndoEntry) documentCount() int {
	n := 0
	for _, c := range e.Changes {
		if c.StatusChanged {
			n++
		}
	}
	return n
}

// UndoOffer is what callers see of an undo entry.
type UndoOffer struct {
	Token             string        `json:"token"`
	To                models.Status `json:"to"`
	DocumentCount     int           `json:"documentCount"`
	CodeIssued        bool          `json:"codeIssued"`
	NotificationsSent int           `json:"notificationsSent"`
	ExpiresAt         time.Time     `json:"expiresAt"`
	RemainingSeconds  int           `json:"remainingSeconds"`
}

// Outcome reports where a request ended up.
type Outcome struct {
	State         State                 `json:"state"`
	Token         string                `json:"token,omitempty"`
	Prompt        *Prompt               `json:"prompt,omitempty"`
	Result        *service.BulkResult   `json:"result,omitempty"`
	Notifications []notify.Outcome      `json:"notifications,omitempty"`
	Undo          *UndoOffer            `json:"undo,omitempty"`
	Reverted      *service.RevertResult `json:"reverted,omitempty"`
}

// Gate is the confirmation gate and undo ledger.
type Gate struct {
	coordinator Coordinator
	notifier    Notifier
	sessions    SessionStore
	policy      *transition.Policy
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	now         func() time.Time
	undoWindow  time.Duration
	pendingTTL  time.Duration
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithNotifier enables client notifications after commits.
func WithNotifier(n Notifier) Option {
	return func(g *Gate) {
		g.notifier = n
	}
}

func WithPolicy(p *transition.Policy) Option {
	return func(g *Gate) {
		if p != nil {
			g.policy = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func WithUndoWindow(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.undoWindow = d
		}
	}
}

// WithPendingTTL bounds how long a request waits for confirmation.
func WithPendingTTL(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.pendingTTL = d
		}
	}
}

func New(coordinator Coordinator, sessions SessionStore, opts ...Option) *Gate {
	g := &Gate{
		coordinator: coordinator,
		sessions:    sessions,
		policy:      transition.DefaultPolicy(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("notaria/internal/document/gate"),
		now:         time.Now,
		undoWindow:  DefaultUndoWindow,
		pendingTTL:  defaultPendingTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
