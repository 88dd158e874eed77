package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

const eventColumns = `id, document_id, actor_id, actor_role, event_type, from_status, to_status, details, created_at`

func scanEvent(row rowScanner) (*models.AuditEvent, error) {
	var (
		e                       models.AuditEvent
		eventID, docID, actorID string
		details                 []byte
	)
	if err := row.Scan(&eventID, &docID, &actorID, &e.ActorRole, &e.Type, &e.From, &e.To, &details, &e.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if e.ID, err = id.ParseEventID(eventID); err != nil {
		return nil, err
	}
	if e.DocumentID, err = id.ParseDocumentID(docID); err != nil {
		return nil, err
	}
	if e.ActorID, err = id.ParseActorID(actorID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(details, &e.Details); err != nil {
		return nil, fmt.Errorf("unmarshal event details: %w", err)
	}
	return &e, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*models.AuditEvent, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.AuditEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Events returns the audit trail of one document in commit order.
func (s *Store) Events(ctx context.Context, docID id.DocumentID) ([]*models.AuditEvent, error) {
	events, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE document_id = $1 ORDER BY seq`, docID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

// PendingEvents returns up to limit events not yet relayed, oldest first.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]*models.AuditEvent, error) {
	events, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE published_at IS NULL ORDER BY seq LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending audit events: %w", err)
	}
	return events, nil
}

// MarkPublished stamps relayed events.
func (s *Store) MarkPublished(ctx context.Context, ids []id.EventID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, len(ids))
	for i, e := range ids {
		values[i] = e.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx, s.q(`UPDATE audit_events SET published_at = $1 WHERE `+s.inList("id", 2)),
		at, s.listArg(values))
	if err != nil {
		return fmt.Errorf("mark audit events published: %w", err)
	}
	return nil
}

// RecordNotifications persists notification outcomes.
func (s *Store) RecordNotifications(ctx context.Context, records []*models.NotificationRecord) error {
	for _, r := range records {
		docIDs, err := json.Marshal(docIDStrings(r.DocumentIDs))
		if err != nil {
			return fmt.Errorf("marshal notification documents: %w", err)
		}
		_, err = s.execer(ctx).ExecContext(ctx, s.q(`
			INSERT INTO notification_records
				(id, client_key, client_name, channel, kind, status, reason, document_ids, code, actor_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`),
			r.ID, r.ClientKey, r.ClientName, r.Channel, r.Kind, string(r.Status), r.Reason,
			string(docIDs), r.Code, r.ActorID.String(), r.CreatedAt)
		if err != nil {
			return fmt.Errorf("record notification: %w", err)
		}
	}
	return nil
}

// Notifications returns every recorded outcome, oldest first.
func (s *Store) Notifications(ctx context.Context) ([]*models.NotificationRecord, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT id, client_key, client_name, channel, kind, status, reason, document_ids, code, actor_id, created_at
		FROM notification_records ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []*models.NotificationRecord
	for rows.Next() {
		var (
			r       models.NotificationRecord
			docIDs  []byte
			actorID sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ClientKey, &r.ClientName, &r.Channel, &r.Kind, &r.Status, &r.Reason,
			&docIDs, &r.Code, &actorID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		var raw []string
		if err := json.Unmarshal(docIDs, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal notification documents: %w", err)
		}
		for _, v := range raw {
			docID, err := id.ParseDocumentID(v)
			if err != nil {
				return nil, err
			}
			r.DocumentIDs = append(r.DocumentIDs, docID)
		}
		if actorID.Valid {
			r.ActorID, _ = id.ParseActorID(actorID.String)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
