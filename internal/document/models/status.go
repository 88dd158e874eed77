package models

import (
	"strings"

	dErrors "notaria/pkg/domain-errors"
)

// Status is a document lifecycle status.
type Status string

const (
	StatusReceived   Status = "RECEIVED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReady      Status = "READY"
	StatusDelivered  Status = "DELIVERED"
)

var statusAliases = map[string]Status{
	"PENDIENTE":  StatusReceived,
	"EN_PROCESO": StatusInProgress,
	"LISTO":      StatusReady,
	"ENTREGADO":  StatusDelivered,
}

// ParseStatus accepts canonical names and the office's Spanish aliases.
func ParseStatus(s string) (Status, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return "", dErrors.New(dErrors.CodeValidation, "toStatus is required")
	}
	st := Status(v)
	if st.IsValid() {
		return st, nil
	}
	if st, ok := statusAliases[v]; ok {
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown status "+s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusInProgress, StatusReady, StatusDelivered:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// NotificationPolicy decides whether a client is messaged on critical transitions.
type NotificationPolicy string

const (
	PolicyNotify NotificationPolicy = "notify"
	PolicySilent NotificationPolicy = "silent"
)

// IsSilent treats anything other than an explicit silent flag as notify.
func (p NotificationPolicy) IsSilent() bool { return p == PolicySilent }
