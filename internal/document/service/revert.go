package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"notaria/internal/document/models"
	"notaria/internal/document/transition"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/requestcontext"
)

const undoReason = "undo"

// Revert restores the documents of a committed transition to their previous
// status and grouping. It refuses with CodeUndoInvalid when a reverse edge is
// not legal and with CodeConflict when any document moved on since.
func (s *Service) Revert(ctx context.Context, actor id.Actor, rev Reversal) (*RevertResult, error) {
	ctx, span := s.tracer.Start(ctx, "document.revert", trace.WithAttributes(
		attribute.String("undo.token", rev.Token),
		attribute.Int("document.count", len(rev.Changes)),
	))
	result, err := s.revert(ctx, actor, rev)
	endSpan(span, err)
	if err != nil {
		s.logger.WarnContext(ctx, "revert refused",
			"request_id", requestcontext.RequestID(ctx),
			"actor_id", actor.ID,
			"undo_token", rev.Token,
			"error", err,
		)
		return nil, err
	}
	s.logger.InfoContext(ctx, "transition reverted",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID,
		"undo_token", rev.Token,
		"restored_count", result.RestoredCount,
	)
	return result, nil
}

func (s *Service) revert(ctx context.Context, actor id.Actor, rev Reversal) (*RevertResult, error) {
	if len(rev.Changes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "nothing to revert")
	}
	if err := CheckReversible(rev.Changes); err != nil {
		return nil, err
	}
	var result *RevertResult
	err := s.runCommit(ctx, func(ctx context.Context, tx TxStore) error {
		r, err := s.revertInTx(ctx, tx, actor, rev)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, translate(err, "revert status change")
	}
	return result, nil
}

// CheckReversible verifies every status change has a legal reverse edge.
func CheckReversible(changes []DocumentChange) error {
	for _, c := range changes {
		if c.StatusChanged && !transition.IsValid(c.To, c.From) {
			return dErrors.New(dErrors.CodeUndoInvalid,
				fmt.Sprintf("transition from %s to %s is not allowed, the change can no longer be undone", c.To, c.From))
		}
	}
	return nil
}

func (s *Service) revertInTx(ctx context.Context, tx TxStore, actor id.Actor, rev Reversal) (*RevertResult, error) {
	ids := make([]id.DocumentID, 0, len(rev.Changes))
	inChange := make(map[id.DocumentID]bool, len(rev.Changes))
	for _, c := range rev.Changes {
		ids = append(ids, c.DocumentID)
		inChange[c.DocumentID] = true
	}
	loaded, err := tx.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	docs, missing := orderByIDs(ids, loaded)
	if missing > 0 {
		return nil, errMovedOn()
	}
	for i, c := range rev.Changes {
		if docs[i].Status != c.To || docs[i].GroupFields() != c.After {
			return nil, errMovedOn()
		}
	}

	now := s.now()
	for i := range rev.DissolvedGroups {
		g := rev.DissolvedGroups[i]
		if err := tx.CreateGroup(ctx, &g); err != nil {
			return nil, err
		}
	}

	statusChanges := 0
	for _, c := range rev.Changes {
		if c.StatusChanged {
			statusChanges++
		}
	}

	result := &RevertResult{}
	var events []*models.AuditEvent
	for i, c := range rev.Changes {
		doc := docs[i]
		current := doc.Status
		doc.Status = c.From
		doc.ApplyGroupFields(c.Before)
		doc.UpdatedAt = now
		if err := tx.UpdateDocument(ctx, doc, current); err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, doc.Clone())
		if !c.StatusChanged {
			continue
		}
		result.RestoredCount++
		ev := newEvent(doc.ID, actor, c.To, c.From, models.EventDetails{
			Bulk:          statusChanges > 1,
			BatchSize:     statusChanges,
			GroupID:       c.Before.GroupID,
			RetrievalCode: c.Before.RetrievalCode,
			Reason:        undoReason,
			UndoOf:        rev.Token,
		}, now)
		ev.Type = models.EventStatusUndone
		events = append(events, ev)
	}

	for _, g := range rev.CreatedGroups {
		if err := tx.DeleteGroup(ctx, g.ID); err != nil {
			return nil, err
		}
	}

	released := make(map[string]bool)
	for _, c := range rev.Changes {
		code := c.After.RetrievalCode
		if code == "" || code == c.Before.RetrievalCode || released[code] {
			continue
		}
		released[code] = true
		if err := tx.ReleaseRetrievalCode(ctx, code); err != nil {
			return nil, err
		}
	}

	claimed := make(map[string]bool)
	for _, c := range rev.Changes {
		code := c.Before.RetrievalCode
		if code == "" || c.From != models.StatusReady || claimed[code] {
			continue
		}
		claimed[code] = true
		if err := restoreClaim(ctx, tx, code, c.Before, c.DocumentID, inChange, now); err != nil {
			return nil, err
		}
	}

	if err := tx.AppendEvents(ctx, events); err != nil {
		return nil, err
	}
	return result, nil
}

// restoreClaim re-claims a code for restored documents. If the code is still
// claimed it must be held only by documents of this change or by members of
// the group the restored documents rejoin.
func restoreClaim(ctx context.Context, tx TxStore, code string, fields models.GroupFields, docID id.DocumentID, inChange map[id.DocumentID]bool, now time.Time) error {
	inUse, err := tx.RetrievalCodeInUse(ctx, code)
	if err != nil {
		return err
	}
	if inUse {
		holders, err := tx.FindReadyByCode(ctx, code)
		if err != nil {
			return err
		}
		for _, h := range holders {
			if inChange[h.ID] || sameGroup(h, fields) {
				continue
			}
			return dErrors.New(dErrors.CodeConflict,
				"the retrieval code was reassigned to another document; the change can no longer be undone")
		}
		return nil
	}
	holder := docID.String()
	if fields.IsGrouped {
		holder = fields.GroupID.String()
	}
	return tx.ClaimRetrievalCode(ctx, code, holder, now)
}

func errMovedOn() error {
	return dErrors.New(dErrors.CodeConflict, "documents changed since the transition; it can no longer be undone")
}

func sameGroup(doc *models.Document, fields models.GroupFields) bool {
	return fields.IsGrouped && doc.IsGrouped && doc.GroupID == fields.GroupID
}
