package models

import (
	"time"

	id "notaria/pkg/domain"
)

// NotificationStatus is the outcome of one client notification attempt.
type NotificationStatus string

const (
	NotificationSent             NotificationStatus = "sent"
	NotificationSkippedPolicy    NotificationStatus = "skipped_policy"
	NotificationSkippedDisabled  NotificationStatus = "skipped_disabled"
	NotificationSkippedNoContact NotificationStatus = "skipped_no_contact"
	NotificationRejected         NotificationStatus = "rejected"
)

// NotificationRecord persists a per-client outcome.
type NotificationRecord struct {
	ID          string             `json:"id"`
	ClientKey   string             `json:"clientKey"`
	ClientName  string             `json:"clientName"`
	Channel     string             `json:"channel"`
	Kind        string             `json:"kind"`
	Status      NotificationStatus `json:"status"`
	Reason      string             `json:"reason,omitempty"`
	DocumentIDs []id.DocumentID    `json:"documentIds"`
	Code        string             `json:"code,omitempty"`
	ActorID     id.ActorID         `json:"actorId"`
	CreatedAt   time.Time          `json:"createdAt"`
}
