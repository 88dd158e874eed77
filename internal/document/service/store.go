package service

import (
	"context"
	"time"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

// Reader serves lookups outside a transaction.
type Reader interface {
	FindByIDs(ctx context.Context, ids []id.DocumentID) ([]*models.Document, error)
	FindReadyByCode(ctx context.Context, code string) ([]*models.Document, error)
}

// TxStore is the transactional view the coordinator mutates through. Every
// write issued on one TxStore commits or rolls back together.
type TxStore interface {
	// FindByIDsForUpdate loads and locks documents. Missing IDs are omitted.
	FindByIDsForUpdate(ctx context.Context, ids []id.DocumentID) ([]*models.Document, error)
	FindReadyByCode(ctx context.Context, code string) ([]*models.Document, error)

	// RetrievalCodeInUse reports whether code is claimed by an active holder.
	RetrievalCodeInUse(ctx context.Context, code string) (bool, error)
	// ClaimRetrievalCode returns sentinel.ErrAlreadyUsed when code is already claimed.
	ClaimRetrievalCode(ctx context.Context, code, holder string, at time.Time) error
	// ReleaseRetrievalCode frees code unless a READY document still carries it.
	ReleaseRetrievalCode(ctx context.Context, code string) error

	GetGroup(ctx context.Context, groupID id.GroupID) (*models.DocumentGroup, error)
	ListGroupMembers(ctx context.Context, groupID id.GroupID) ([]*models.Document, error)
	CreateGroup(ctx context.Context, group *models.DocumentGroup) error
	DeleteGroup(ctx context.Context, groupID id.GroupID) error

	// UpdateDocument writes doc if its stored status still equals expected,
	// otherwise it returns sentinel.ErrConflict.
	UpdateDocument(ctx context.Context, doc *models.Document, expected models.Status) error
	AppendEvents(ctx context.Context, events []*models.AuditEvent) error
}

// Store combines reads with an atomic unit of work.
type Store interface {
	Reader
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx TxStore) error) error
}
