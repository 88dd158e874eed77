package gate

import (
	"context"
	"errors"

	"notaria/internal/document/service"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/platform/sentinel"
	"notaria/pkg/requestcontext"
)

// Undo reverses the session's last committed transition. token may be empty to
// mean "the current entry"; a token naming an older entry is treated as
// expired. An illegal reverse edge or documents that moved on discard the
// entry.
func (g *Gate) Undo(ctx context.Context, actor id.Actor, token string) (*Outcome, error) {
	session := sessionOf(ctx, actor)
	entry, err := g.sessions.GetUndo(ctx, session)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		g.metrics.IncrementUndo("expired")
		return nil, errUndoExpired()
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load undo entry")
	}
	if entry.ActorID != actor.ID || (token != "" && token != entry.Token) {
		g.metrics.IncrementUndo("expired")
		return nil, errUndoExpired()
	}
	if !g.now().Before(entry.ExpiresAt) {
		g.discard(ctx, session)
		g.metrics.IncrementUndo("expired")
		return nil, errUndoExpired()
	}
	if err := service.CheckReversible(entry.Changes); err != nil {
		g.discard(ctx, session)
		g.metrics.IncrementUndo("invalid")
		return nil, err
	}

	reverted, err := g.coordinator.Revert(ctx, actor, entry.reversal())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) || dErrors.HasCode(err, dErrors.CodeUndoInvalid) {
			g.discard(ctx, session)
		}
		g.metrics.IncrementUndo("refused")
		return nil, err
	}
	g.discard(ctx, session)
	g.metrics.IncrementUndo("reverted")
	g.logger.InfoContext(ctx, "transition undone",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"undo_token", entry.Token,
		"restored_count", reverted.RestoredCount,
	)
	return &Outcome{State: StateReverted, Token: entry.Token, Reverted: reverted}, nil
}

// ActiveUndo returns the session's undo offer, or nil when none is open.
func (g *Gate) ActiveUndo(ctx context.Context, actor id.Actor) (*UndoOffer, error) {
	entry, err := g.sessions.GetUndo(ctx, sessionOf(ctx, actor))
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load undo entry")
	}
	now := g.now()
	if entry.ActorID != actor.ID || !now.Before(entry.ExpiresAt) {
		return nil, nil
	}
	return g.offer(entry, now), nil
}

func (g *Gate) discard(ctx context.Context, session string) {
	if err := g.sessions.DeleteUndo(ctx, session); err != nil {
		g.logger.WarnContext(ctx, "failed to discard undo entry",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

func errUndoExpired() error {
	return dErrors.New(dErrors.CodeUndoExpired, "the undo window has closed; the change can no longer be reversed")
}
