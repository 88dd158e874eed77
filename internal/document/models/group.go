package models

import (
	"time"

	id "notaria/pkg/domain"
)

// DocumentGroup is a set of documents of one client tracked and delivered
// together under a shared retrieval code. A group exists only while it has at
// least two members.
type DocumentGroup struct {
	ID        id.GroupID      `json:"id"`
	Code      string          `json:"code"`
	MemberIDs []id.DocumentID `json:"memberIds"`
	CreatedAt time.Time       `json:"createdAt"`
}
