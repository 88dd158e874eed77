package handler

import (
	"fmt"
	"strings"

	"notaria/internal/document/gate"
	"notaria/internal/document/models"
	"notaria/internal/document/service"
	"notaria/internal/document/transition"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	strutil "notaria/pkg/platform/strings"
)

// BulkRequest is the body of the bulk endpoints.
type BulkRequest struct {
	DocumentIDs       []string `json:"documentIds"`
	SendNotifications *bool    `json:"sendNotifications,omitempty"`
	ToStatus          string   `json:"toStatus,omitempty"`
	ReversionReason   string   `json:"reversionReason,omitempty"`
	DeliveredTo       string   `json:"deliveredTo,omitempty"`
	ReceiverIDNumber  string   `json:"receiverIdNumber,omitempty"`
	Relationship      string   `json:"relationship,omitempty"`
	Observations      string   `json:"observations,omitempty"`

	ids []id.DocumentID
	to  models.Status
}

// Validate normalises ids and the optional target status.
func (r *BulkRequest) Validate() error {
	ids, err := parseDocumentIDs(r.DocumentIDs)
	if err != nil {
		return err
	}
	r.ids = ids
	if strings.TrimSpace(r.ToStatus) != "" {
		to, err := models.ParseStatus(r.ToStatus)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "unknown target status")
		}
		r.to = to
	}
	return nil
}

// checkBulkTarget limits a bulk route to its own target status. A reversion
// to an earlier status is accepted only with a reason.
func (r *BulkRequest) checkBulkTarget(def models.Status) error {
	if r.to == "" || r.to == def {
		return nil
	}
	if transition.IsBackward(def, r.to) && strings.TrimSpace(r.ReversionReason) != "" {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation,
		fmt.Sprintf("this endpoint moves documents to %s; %s requires a reversion reason or the transitions endpoint", def, r.to))
}

// transition builds the gate request, defaulting the target to def.
func (r *BulkRequest) transition(def models.Status) gate.TransitionRequest {
	to := r.to
	if to == "" {
		to = def
	}
	req := gate.TransitionRequest{
		DocumentIDs: r.ids,
		To:          to,
		Reason:      strings.TrimSpace(r.ReversionReason),
		Notify:      r.SendNotifications == nil || *r.SendNotifications,
	}
	if to == models.StatusDelivered {
		req.Delivery = &service.DeliveryInput{
			DeliveredTo:      strings.TrimSpace(r.DeliveredTo),
			ReceiverIDNumber: strings.TrimSpace(r.ReceiverIDNumber),
			Relationship:     strings.TrimSpace(r.Relationship),
			Observations:     strings.TrimSpace(r.Observations),
		}
	}
	return req
}

// TransitionRequest is the body of POST /documents/transitions.
type TransitionRequest struct {
	BulkRequest
}

func (r *TransitionRequest) Validate() error {
	if strings.TrimSpace(r.ToStatus) == "" {
		return dErrors.New(dErrors.CodeValidation, "toStatus is required")
	}
	return r.BulkRequest.Validate()
}

// UndoRequest is the body of POST /documents/transitions/undo.
type UndoRequest struct {
	Token string `json:"token"`
}

func (r *UndoRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	return nil
}

func parseDocumentIDs(raw []string) ([]id.DocumentID, error) {
	cleaned := strutil.DedupeAndTrimLower(raw)
	if len(cleaned) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one document id is required")
	}
	ids := make([]id.DocumentID, 0, len(cleaned))
	for _, s := range cleaned {
		docID, err := id.ParseDocumentID(s)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid document id: "+s)
		}
		ids = append(ids, docID)
	}
	return ids, nil
}
