package models

import (
	"time"

	id "notaria/pkg/domain"
)

// EventType classifies an audit event.
type EventType string

const (
	EventStatusChanged  EventType = "STATUS_CHANGED"
	EventStatusReverted EventType = "STATUS_REVERTED"
	EventStatusUndone   EventType = "STATUS_UNDONE"
)

// EventDetails is the structured payload of an audit event.
type EventDetails struct {
	Bulk          bool       `json:"bulk"`
	BatchSize     int        `json:"batchSize"`
	GroupSize     int        `json:"groupSize,omitempty"`
	GroupID       id.GroupID `json:"groupId"`
	RetrievalCode string     `json:"retrievalCode,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	DeliveredTo   string     `json:"deliveredTo,omitempty"`
	UndoOf        string     `json:"undoOf,omitempty"`
}

// AuditEvent is the immutable record of one document changing status.
// Exactly one is written per document per committed transition.
type AuditEvent struct {
	ID         id.EventID    `json:"id"`
	DocumentID id.DocumentID `json:"documentId"`
	ActorID    id.ActorID    `json:"actorId"`
	ActorRole  id.Role       `json:"actorRole"`
	Type       EventType     `json:"eventType"`
	From       Status        `json:"from"`
	To         Status        `json:"to"`
	Details    EventDetails  `json:"details"`
	CreatedAt  time.Time     `json:"createdAt"`
}
