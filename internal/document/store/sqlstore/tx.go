package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
	"notaria/pkg/platform/sentinel"
)

var errClaimTaken = fmt.Errorf("retrieval code claimed: %w", sentinel.ErrAlreadyUsed)

// sqlTx is the coordinator's view of one transaction. The *sql.Tx travels on
// the context, so every call goes through Store.execer.
type sqlTx struct {
	s *Store
}

func (t *sqlTx) FindByIDsForUpdate(ctx context.Context, ids []id.DocumentID) ([]*models.Document, error) {
	return t.s.findByIDs(ctx, ids, true)
}

func (t *sqlTx) FindReadyByCode(ctx context.Context, code string) ([]*models.Document, error) {
	return t.s.FindReadyByCode(ctx, code)
}

func (t *sqlTx) RetrievalCodeInUse(ctx context.Context, code string) (bool, error) {
	var n int
	err := t.s.execer(ctx).QueryRowContext(ctx, t.s.q(`SELECT COUNT(*) FROM retrieval_codes WHERE code = $1`), code).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check retrieval code: %w", err)
	}
	return n > 0, nil
}

func (t *sqlTx) ClaimRetrievalCode(ctx context.Context, code, holder string, at time.Time) error {
	return t.s.claim(ctx, code, holder, at)
}

// claim inserts the code unless it is held; ON CONFLICT keeps a lost race from
// aborting the surrounding Postgres transaction.
func (s *Store) claim(ctx context.Context, code, holder string, at time.Time) error {
	res, err := s.execer(ctx).ExecContext(ctx, s.q(`
		INSERT INTO retrieval_codes (code, holder, claimed_at) VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING`), code, holder, at)
	if err != nil {
		return fmt.Errorf("claim retrieval code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim retrieval code rows affected: %w", err)
	}
	if n == 0 {
		return errClaimTaken
	}
	return nil
}

func (t *sqlTx) ReleaseRetrievalCode(ctx context.Context, code string) error {
	_, err := t.s.execer(ctx).ExecContext(ctx, t.s.q(`
		DELETE FROM retrieval_codes
		WHERE code = $1
		  AND NOT EXISTS (SELECT 1 FROM documents WHERE status = 'READY' AND retrieval_code = $1)`), code)
	if err != nil {
		return fmt.Errorf("release retrieval code: %w", err)
	}
	return nil
}

func (t *sqlTx) GetGroup(ctx context.Context, groupID id.GroupID) (*models.DocumentGroup, error) {
	g := &models.DocumentGroup{ID: groupID}
	err := t.s.execer(ctx).QueryRowContext(ctx, t.s.q(`SELECT code, created_at FROM document_groups WHERE id = $1`),
		groupID.String()).Scan(&g.Code, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	members, err := t.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		g.MemberIDs = append(g.MemberIDs, m.ID)
	}
	return g, nil
}

func (t *sqlTx) ListGroupMembers(ctx context.Context, groupID id.GroupID) ([]*models.Document, error) {
	docs, err := t.s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE group_id = $1 ORDER BY created_at, id`, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return docs, nil
}

func (t *sqlTx) CreateGroup(ctx context.Context, group *models.DocumentGroup) error {
	res, err := t.s.execer(ctx).ExecContext(ctx, t.s.q(`
		INSERT INTO document_groups (id, code, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`), group.ID.String(), group.Code, group.CreatedAt)
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (t *sqlTx) DeleteGroup(ctx context.Context, groupID id.GroupID) error {
	if _, err := t.s.execer(ctx).ExecContext(ctx, t.s.q(`DELETE FROM document_groups WHERE id = $1`), groupID.String()); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateDocument(ctx context.Context, doc *models.Document, expected models.Status) error {
	vals := documentValues(doc)
	// created_at never changes; updated_at is bound separately.
	args := append([]any{doc.ID.String()}, vals[:len(vals)-2]...)
	args = append(args, doc.UpdatedAt, string(expected))
	res, err := t.s.execer(ctx).ExecContext(ctx, t.s.q(`
		UPDATE documents SET
			status = $2, client_id = $3, client_name = $4, client_phone = $5, client_email = $6,
			assigned_to = $7, is_grouped = $8, group_id = $9, retrieval_code = $10, notification_policy = $11,
			delivered_to = $12, receiver_id_number = $13, relationship = $14, observations = $15,
			delivered_at = $16, delivered_by = $17, updated_at = $18
		WHERE id = $1 AND status = $19`), args...)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (t *sqlTx) AppendEvents(ctx context.Context, events []*models.AuditEvent) error {
	for _, e := range events {
		details, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		_, err = t.s.execer(ctx).ExecContext(ctx, t.s.q(`
			INSERT INTO audit_events (id, document_id, actor_id, actor_role, event_type, from_status, to_status, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`),
			e.ID.String(), e.DocumentID.String(), e.ActorID.String(), string(e.ActorRole), string(e.Type),
			string(e.From), string(e.To), string(details), e.CreatedAt)
		if err != nil {
			return fmt.Errorf("append audit event: %w", err)
		}
	}
	return nil
}
