// Package domain holds the typed identifiers and actor roles shared across
// the document lifecycle packages and the transport layer.
package domain

import (
	"github.com/google/uuid"

	dErrors "notaria/pkg/domain-errors"
)

// Typed IDs keep documents, groups and actors from being mixed up at call sites.
type (
	DocumentID uuid.UUID
	GroupID    uuid.UUID
	ActorID    uuid.UUID
	EventID    uuid.UUID
	SessionID  uuid.UUID
)

func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }
func NewGroupID() GroupID       { return GroupID(uuid.New()) }
func NewEventID() EventID       { return EventID(uuid.New()) }

func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id GroupID) String() string    { return uuid.UUID(id).String() }
func (id ActorID) String() string    { return uuid.UUID(id).String() }
func (id EventID) String() string    { return uuid.UUID(id).String() }
func (id SessionID) String() string  { return uuid.UUID(id).String() }

func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GroupID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ActorID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// Nil IDs encode as an empty string so optional references (an ungrouped
// document's group) survive a JSON round trip.
func (id DocumentID) MarshalText() ([]byte, error) { return marshalUUID(uuid.UUID(id)), nil }
func (id GroupID) MarshalText() ([]byte, error)    { return marshalUUID(uuid.UUID(id)), nil }
func (id ActorID) MarshalText() ([]byte, error)    { return marshalUUID(uuid.UUID(id)), nil }
func (id EventID) MarshalText() ([]byte, error)    { return marshalUUID(uuid.UUID(id)), nil }

func (id *DocumentID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b, "document ID")
	*id = DocumentID(u)
	return err
}

func (id *GroupID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b, "group ID")
	*id = GroupID(u)
	return err
}

func (id *ActorID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b, "actor ID")
	*id = ActorID(u)
	return err
}

func (id *EventID) UnmarshalText(b []byte) error {
	u, err := unmarshalUUID(b, "event ID")
	*id = EventID(u)
	return err
}

func marshalUUID(u uuid.UUID) []byte {
	if u == uuid.Nil {
		return []byte{}
	}
	return []byte(u.String())
}

func unmarshalUUID(b []byte, label string) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	return u, nil
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s, "document ID")
	return DocumentID(u), err
}

func ParseGroupID(s string) (GroupID, error) {
	u, err := parseUUID(s, "group ID")
	return GroupID(u), err
}

func ParseActorID(s string) (ActorID, error) {
	u, err := parseUUID(s, "actor ID")
	return ActorID(u), err
}

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event ID")
	return EventID(u), err
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session ID")
	return SessionID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
