// Package sqlstore persists documents, groups, retrieval code claims, audit
// events and notification records in PostgreSQL or SQLite. Queries are written
// once with $N placeholders and rebound for SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"notaria/internal/document/models"
	"notaria/internal/document/service"
	"notaria/internal/platform/database"
	id "notaria/pkg/domain"
	txcontext "notaria/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// Store implements service.Store, the audit outbox source and the
// notification recorder.
type Store struct {
	db        *sql.DB
	dialect   database.Dialect
	txTimeout time.Duration
}

type Option func(*Store)

// WithTxTimeout bounds transactions started without a deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

func New(db *sql.DB, dialect database.Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialect, txTimeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx runs fn in one SQL transaction carried on the context.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx service.TxStore) error) error {
	return txcontext.Run(ctx, s.db, s.txTimeout, func(ctx context.Context) error {
		return fn(ctx, &sqlTx{s: s})
	})
}

// q rebinds $N placeholders to SQLite's ?N form.
func (s *Store) q(query string) string {
	if s.dialect != database.SQLite {
		return query
	}
	return strings.ReplaceAll(query, "$", "?")
}

// inList matches column against a list bound as one parameter at pos.
func (s *Store) inList(column string, pos int) string {
	if s.dialect == database.Postgres {
		return fmt.Sprintf("%s = ANY($%d::text[])", column, pos)
	}
	return fmt.Sprintf("%s IN (SELECT value FROM json_each($%d))", column, pos)
}

func (s *Store) listArg(values []string) any {
	if s.dialect == database.Postgres {
		return pq.Array(values)
	}
	data, _ := json.Marshal(values)
	return string(data)
}

func (s *Store) forUpdate() string {
	if s.dialect == database.Postgres {
		return " FOR UPDATE"
	}
	return ""
}

func docIDStrings(ids []id.DocumentID) []string {
	out := make([]string, len(ids))
	for i, d := range ids {
		out[i] = d.String()
	}
	return out
}

const documentColumns = `id, protocol_number, document_type, status, client_id, client_name, client_phone,
	client_email, assigned_to, is_grouped, group_id, retrieval_code, notification_policy,
	delivered_to, receiver_id_number, relationship, observations, delivered_at, delivered_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d                                                 models.Document
		docID                                             string
		assignedTo, groupID, code                         sql.NullString
		deliveredTo, receiverID, relationship, observ, by sql.NullString
		deliveredAt                                       sql.NullTime
	)
	err := row.Scan(&docID, &d.ProtocolNumber, &d.DocumentType, &d.Status, &d.Client.ID, &d.Client.Name,
		&d.Client.Phone, &d.Client.Email, &assignedTo, &d.IsGrouped, &groupID, &code, &d.NotificationPolicy,
		&deliveredTo, &receiverID, &relationship, &observ, &deliveredAt, &by,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.ID, err = id.ParseDocumentID(docID); err != nil {
		return nil, err
	}
	if assignedTo.Valid {
		if d.AssignedTo, err = id.ParseActorID(assignedTo.String); err != nil {
			return nil, err
		}
	}
	if groupID.Valid {
		if d.GroupID, err = id.ParseGroupID(groupID.String); err != nil {
			return nil, err
		}
	}
	d.RetrievalCode = code.String
	if deliveredTo.Valid {
		d.Delivery = &models.Delivery{
			DeliveredTo:      deliveredTo.String,
			ReceiverIDNumber: receiverID.String,
			Relationship:     relationship.String,
			Observations:     observ.String,
			DeliveredAt:      deliveredAt.Time,
		}
		if by.Valid {
			if d.Delivery.DeliveredBy, err = id.ParseActorID(by.String); err != nil {
				return nil, err
			}
		}
	}
	return &d, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]*models.Document, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) FindByIDs(ctx context.Context, ids []id.DocumentID) ([]*models.Document, error) {
	return s.findByIDs(ctx, ids, false)
}

func (s *Store) findByIDs(ctx context.Context, ids []id.DocumentID, lock bool) ([]*models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + s.inList("id", 1) + ` ORDER BY id`
	if lock {
		query += s.forUpdate()
	}
	docs, err := s.queryDocuments(ctx, query, s.listArg(docIDStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}
	return docs, nil
}

func (s *Store) FindReadyByCode(ctx context.Context, code string) ([]*models.Document, error) {
	docs, err := s.queryDocuments(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE status = 'READY' AND retrieval_code = $1 ORDER BY created_at, id`,
		code)
	if err != nil {
		return nil, fmt.Errorf("find documents by code: %w", err)
	}
	return docs, nil
}

// Insert adds documents, claiming the code of READY ones. Intake is owned by
// another subsystem; this exists for seeding and tests.
func (s *Store) Insert(ctx context.Context, docs ...*models.Document) error {
	return s.RunInTx(ctx, func(ctx context.Context, _ service.TxStore) error {
		for _, d := range docs {
			_, err := s.execer(ctx).ExecContext(ctx, s.q(`
				INSERT INTO documents (`+documentColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`),
				append([]any{d.ID.String(), d.ProtocolNumber, d.DocumentType}, documentValues(d)...)...)
			if err != nil {
				return fmt.Errorf("insert document: %w", err)
			}
			if d.Status == models.StatusReady && d.RetrievalCode != "" {
				if err := s.claim(ctx, d.RetrievalCode, d.ID.String(), d.UpdatedAt); err != nil && err != errClaimTaken {
					return err
				}
			}
		}
		return nil
	})
}

// documentValues returns the mutable columns from status onwards, in
// documentColumns order.
func documentValues(d *models.Document) []any {
	var (
		assignedTo, groupID, code                          any
		deliveredTo, receiverID, relationship, observ, by any
		deliveredAt                                       any
	)
	if d.IsAssigned() {
		assignedTo = d.AssignedTo.String()
	}
	if !d.GroupID.IsNil() {
		groupID = d.GroupID.String()
	}
	if d.RetrievalCode != "" {
		code = d.RetrievalCode
	}
	if d.Delivery != nil {
		deliveredTo = d.Delivery.DeliveredTo
		receiverID = d.Delivery.ReceiverIDNumber
		relationship = d.Delivery.Relationship
		observ = d.Delivery.Observations
		deliveredAt = d.Delivery.DeliveredAt
		if !d.Delivery.DeliveredBy.IsNil() {
			by = d.Delivery.DeliveredBy.String()
		}
	}
	policy := d.NotificationPolicy
	if policy == "" {
		policy = models.PolicyNotify
	}
	return []any{
		string(d.Status), d.Client.ID, d.Client.Name, d.Client.Phone, d.Client.Email,
		assignedTo, d.IsGrouped, groupID, code, string(policy),
		deliveredTo, receiverID, relationship, observ, deliveredAt, by,
		d.CreatedAt, d.UpdatedAt,
	}
}
