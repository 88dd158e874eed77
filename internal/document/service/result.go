package service

import (
	"time"

	"notaria/internal/document/grouping"
	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

// DeliveryInput is the recipient data required when moving to DELIVERED.
type DeliveryInput struct {
	DeliveredTo      string
	ReceiverIDNumber string
	Relationship     string
	Observations     string
}

// Request is one bulk transition. Observed holds the statuses the caller
// last saw; when empty, Apply reads them before opening the transaction.
type Request struct {
	DocumentIDs []id.DocumentID
	To          models.Status
	Actor       id.Actor
	Reason      string
	Delivery    *DeliveryInput
	Observed    []Observed
}

// Observed is a document status as read before commit.
type Observed struct {
	DocumentID id.DocumentID `json:"documentId"`
	Status     models.Status `json:"status"`
}

// ObservedOf snapshots the statuses of docs.
func ObservedOf(docs []*models.Document) []Observed {
	out := make([]Observed, 0, len(docs))
	for _, d := range docs {
		out = append(out, Observed{DocumentID: d.ID, Status: d.Status})
	}
	return out
}

// DocumentChange records what one transition did to one document. Changes
// with StatusChanged=false are group side effects on documents outside the
// request (a partner left alone when its group dissolved).
type DocumentChange struct {
	DocumentID    id.DocumentID      `json:"documentId"`
	From          models.Status      `json:"from"`
	To            models.Status      `json:"to"`
	Before        models.GroupFields `json:"before"`
	After         models.GroupFields `json:"after"`
	StatusChanged bool               `json:"statusChanged"`
	CodeIssued    bool               `json:"codeIssued"`
}

// ClientGroupResult is the per-client slice of a bulk result.
type ClientGroupResult struct {
	Key           grouping.Key              `json:"-"`
	ClientKey     string                    `json:"clientKey"`
	Client        models.Client             `json:"client"`
	Policy        models.NotificationPolicy `json:"notificationPolicy"`
	Documents     []*models.Document        `json:"documents"`
	RetrievalCode string                    `json:"retrievalCode,omitempty"`
	GroupID       id.GroupID                `json:"groupId"`
	Grouped       bool                      `json:"grouped"`
}

// BulkResult is what a committed bulk transition produced.
type BulkResult struct {
	To              models.Status          `json:"to"`
	Actor           id.Actor               `json:"-"`
	UpdatedCount    int                    `json:"updatedCount"`
	Groups          []ClientGroupResult    `json:"groups"`
	Changes         []DocumentChange       `json:"changes"`
	CreatedGroups   []models.DocumentGroup `json:"createdGroups,omitempty"`
	DissolvedGroups []models.DocumentGroup `json:"dissolvedGroups,omitempty"`
	CommittedAt     time.Time              `json:"committedAt"`
}

// CodeIssued reports whether any retrieval code was minted.
func (r *BulkResult) CodeIssued() bool {
	for _, c := range r.Changes {
		if c.CodeIssued {
			return true
		}
	}
	return false
}

// Reversal describes a committed transition to be reversed.
type Reversal struct {
	Token           string
	Changes         []DocumentChange
	CreatedGroups   []models.DocumentGroup
	DissolvedGroups []models.DocumentGroup
}

// ReversalOf captures everything needed to reverse r.
func ReversalOf(token string, r *BulkResult) Reversal {
	return Reversal{
		Token:           token,
		Changes:         r.Changes,
		CreatedGroups:   r.CreatedGroups,
		DissolvedGroups: r.DissolvedGroups,
	}
}

// RevertResult reports a completed reversal.
type RevertResult struct {
	RestoredCount int                `json:"restoredCount"`
	Documents     []*models.Document `json:"documents"`
}
