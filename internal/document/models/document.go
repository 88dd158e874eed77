package models

import (
	"time"

	id "notaria/pkg/domain"
)

// Client is the customer a document belongs to. ID is an optional stable
// identifier (national ID or tax number); Name and Phone are the fallback.
type Client struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Delivery records who physically received a delivered document.
type Delivery struct {
	DeliveredTo      string     `json:"deliveredTo"`
	ReceiverIDNumber string     `json:"receiverIdNumber,omitempty"`
	Relationship     string     `json:"relationship,omitempty"`
	Observations     string     `json:"observations,omitempty"`
	DeliveredAt      time.Time  `json:"deliveredAt"`
	DeliveredBy      id.ActorID `json:"deliveredBy"`
}

// GroupFields is the grouping state of a document, snapshotted before and
// after each transition so an undo can restore it exactly.
type GroupFields struct {
	IsGrouped     bool       `json:"isGrouped"`
	GroupID       id.GroupID `json:"groupId"`
	RetrievalCode string     `json:"retrievalCode,omitempty"`
}

// Document is one notarial record.
//
// Invariants:
//   - Status only changes along the lifecycle graph; DELIVERED is terminal
//   - GroupID is set iff IsGrouped is true, and then at least one other
//     document carries the same GroupID
//   - every member of a group carries the group's RetrievalCode
//   - RetrievalCode is unique among READY documents outside a shared group
//
// Documents are mutated only by the bulk transition coordinator and never
// deleted by it.
type Document struct {
	ID                 id.DocumentID      `json:"id"`
	ProtocolNumber     string             `json:"protocolNumber"`
	DocumentType       string             `json:"documentType"`
	Status             Status             `json:"status"`
	Client             Client             `json:"client"`
	AssignedTo         id.ActorID         `json:"assignedTo"`
	IsGrouped          bool               `json:"isGrouped"`
	GroupID            id.GroupID         `json:"groupId"`
	RetrievalCode      string             `json:"retrievalCode,omitempty"`
	NotificationPolicy NotificationPolicy `json:"notificationPolicy"`
	Delivery           *Delivery          `json:"delivery,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Delivery != nil {
		dl := *d.Delivery
		c.Delivery = &dl
	}
	return &c
}

func (d *Document) IsAssigned() bool { return !d.AssignedTo.IsNil() }

// GroupFields snapshots the grouping state.
func (d *Document) GroupFields() GroupFields {
	return GroupFields{IsGrouped: d.IsGrouped, GroupID: d.GroupID, RetrievalCode: d.RetrievalCode}
}

// ApplyGroupFields overwrites the grouping state.
func (d *Document) ApplyGroupFields(g GroupFields) {
	d.IsGrouped = g.IsGrouped
	d.GroupID = g.GroupID
	d.RetrievalCode = g.RetrievalCode
}

// ClearGroupFields removes group membership and the retrieval code.
func (d *Document) ClearGroupFields() {
	d.ApplyGroupFields(GroupFields{})
}

// Ungroup leaves the group but keeps the code as an individual code.
func (d *Document) Ungroup() {
	d.IsGrouped = false
	d.GroupID = id.GroupID{}
}
