package gate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"notaria/internal/document/grouping"
	"notaria/internal/document/models"
	"notaria/internal/document/notify"
	"notaria/internal/document/service"
	"notaria/internal/document/transition"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/platform/sentinel"
	"notaria/pkg/requestcontext"
)

// Request starts a transition. Changes that need confirmation are parked and
// returned as AWAITING_CONFIRMATION with a token; everything else executes
// immediately. A new parked request replaces any earlier one of the session.
func (g *Gate) Request(ctx context.Context, actor id.Actor, req TransitionRequest) (*Outcome, error) {
	g.metrics.IncrementGate(string(StateRequested))
	docs, err := g.coordinator.Precheck(ctx, req.serviceRequest(actor))
	if err != nil {
		return nil, err
	}
	req.Observed = service.ObservedOf(docs)

	prompt := g.promptFor(docs, req.To, actor.Role)
	if prompt == nil {
		return g.execute(ctx, actor, req)
	}

	now := g.now()
	pending := &Pending{
		Token:     uuid.NewString(),
		ActorID:   actor.ID,
		Request:   req,
		Prompt:    *prompt,
		CreatedAt: now,
		ExpiresAt: now.Add(g.pendingTTL),
	}
	if err := g.sessions.PutPending(ctx, sessionOf(ctx, actor), pending, g.pendingTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store pending transition")
	}
	g.metrics.IncrementGate(string(StateAwaitingConfirmation))
	g.logger.InfoContext(ctx, "transition awaiting confirmation",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"to", req.To,
		"category", prompt.Category,
		"document_count", prompt.DocumentCount,
	)
	return &Outcome{State: StateAwaitingConfirmation, Token: pending.Token, Prompt: prompt}, nil
}

// Confirm executes the parked request identified by token.
func (g *Gate) Confirm(ctx context.Context, actor id.Actor, token string) (*Outcome, error) {
	pending, err := g.takePending(ctx, actor, token)
	if err != nil {
		return nil, err
	}
	return g.execute(ctx, actor, pending.Request)
}

// Cancel drops the parked request identified by token with no side effects.
func (g *Gate) Cancel(ctx context.Context, actor id.Actor, token string) (*Outcome, error) {
	if _, err := g.takePending(ctx, actor, token); err != nil {
		return nil, err
	}
	g.metrics.IncrementGate(string(StateCancelled))
	g.logger.InfoContext(ctx, "transition cancelled",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"token", token,
	)
	return &Outcome{State: StateCancelled, Token: token}, nil
}

// Execute runs a request the caller already confirmed, skipping the pause.
func (g *Gate) Execute(ctx context.Context, actor id.Actor, req TransitionRequest) (*Outcome, error) {
	g.metrics.IncrementGate(string(StateRequested))
	return g.execute(ctx, actor, req)
}

func (g *Gate) execute(ctx context.Context, actor id.Actor, req TransitionRequest) (out *Outcome, err error) {
	ctx, span := g.tracer.Start(ctx, "gate.execute", trace.WithAttributes(
		attribute.String("document.to_status", string(req.To)),
		attribute.Int("document.count", len(req.DocumentIDs)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, dErrors.Message(err))
		}
		span.End()
	}()

	g.metrics.IncrementGate(string(StateExecuting))
	result, err := g.coordinator.Apply(ctx, req.serviceRequest(actor))
	if err != nil {
		g.metrics.IncrementGate("failed")
		return nil, err
	}

	var outcomes []notify.Outcome
	if g.notifier != nil {
		outcomes = g.notifier.Notify(ctx, result, req.Notify)
	}

	now := g.now()
	entry := &UndoEntry{
		Token:             uuid.NewString(),
		ActorID:           actor.ID,
		To:                result.To,
		Changes:           result.Changes,
		CreatedGroups:     result.CreatedGroups,
		DissolvedGroups:   result.DissolvedGroups,
		CodeIssued:        result.CodeIssued(),
		NotificationsSent: notify.CountSent(outcomes),
		CommittedAt:       now,
		ExpiresAt:         now.Add(g.undoWindow),
	}
	out = &Outcome{State: StateCommitted, Result: result, Notifications: outcomes}
	if err := g.sessions.PutUndo(ctx, sessionOf(ctx, actor), entry, g.undoWindow); err != nil {
		// The transition stands; only the undo offer is lost.
		g.logger.ErrorContext(ctx, "failed to store undo entry",
			"request_id", requestcontext.RequestID(ctx),
			"actor_id", actor.ID,
			"error", err,
		)
	} else {
		out.Undo = g.offer(entry, now)
	}
	g.metrics.IncrementGate(string(StateCommitted))
	return out, nil
}

func (g *Gate) takePending(ctx context.Context, actor id.Actor, token string) (*Pending, error) {
	session := sessionOf(ctx, actor)
	pending, err := g.sessions.GetPending(ctx, session)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, errNoPending()
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending transition")
	}
	if pending.Token != token || pending.ActorID != actor.ID || !g.now().Before(pending.ExpiresAt) {
		return nil, errNoPending()
	}
	if err := g.sessions.DeletePending(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear pending transition")
	}
	return pending, nil
}

// promptFor returns nil when no document of the batch needs confirmation.
// Reversion outranks the generic critical flag, which outranks direct delivery.
func (g *Gate) promptFor(docs []*models.Document, to models.Status, role id.Role) *Prompt {
	var (
		best     transition.Confirmation
		from     []models.Status
		seenFrom = make(map[models.Status]bool)
	)
	for _, d := range docs {
		if !seenFrom[d.Status] {
			seenFrom[d.Status] = true
			from = append(from, d.Status)
		}
		c := g.policy.RequiresConfirmation(d.Status, to, role)
		if c.Required && rank(c.Category) > rank(best.Category) {
			best = c
		}
	}
	if !best.Required {
		return nil
	}
	parts := grouping.PartitionDocuments(docs)
	grouped := false
	for _, p := range parts {
		grouped = grouped || p.IsGroup()
	}
	return &Prompt{
		Category:      best.Category,
		Reason:        best.Reason,
		From:          from,
		To:            to,
		DocumentCount: len(docs),
		ClientCount:   len(parts),
		Grouped:       grouped,
	}
}

func rank(c transition.Category) int {
	switch c {
	case transition.CategoryReversion:
		return 3
	case transition.CategoryCritical:
		return 2
	case transition.CategoryDirectDelivery:
		return 1
	default:
		return 0
	}
}

func (g *Gate) offer(e *UndoEntry, now time.Time) *UndoOffer {
	remaining := e.ExpiresAt.Sub(now)
	secs := int((remaining + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return &UndoOffer{
		Token:             e.Token,
		To:                e.To,
		DocumentCount:     e.documentCount(),
		CodeIssued:        e.CodeIssued,
		NotificationsSent: e.NotificationsSent,
		ExpiresAt:         e.ExpiresAt,
		RemainingSeconds:  secs,
	}
}

func sessionOf(ctx context.Context, actor id.Actor) string {
	if key := requestcontext.SessionKey(ctx); key != "" {
		return key
	}
	return actor.ID.String()
}

func errNoPending() error {
	return dErrors.New(dErrors.CodeNotFound, "no pending transition with this token")
}
