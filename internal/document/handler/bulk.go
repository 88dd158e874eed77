package handler

import (
	"fmt"
	"net/http"

	"notaria/internal/document/gate"
	"notaria/internal/document/models"
	"notaria/internal/document/notify"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/platform/httputil"
	"notaria/pkg/requestcontext"
)

// BulkResponse is the envelope of the bulk endpoints.
type BulkResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    *BulkData `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BulkData is the payload of a successful bulk call.
type BulkData struct {
	UpdatedCount    int              `json:"updatedCount"`
	ClientsNotified int              `json:"clientsNotified"`
	Notifications   []notify.Outcome `json:"notifications"`
	Undo            *gate.UndoOffer  `json:"undo,omitempty"`
}

func (h *Handler) handleBulkReady(w http.ResponseWriter, r *http.Request) {
	h.handleBulk(w, r, models.StatusReady)
}

func (h *Handler) handleBulkDeliver(w http.ResponseWriter, r *http.Request) {
	h.handleBulk(w, r, models.StatusDelivered)
}

// handleBulk runs a pre-confirmed bulk transition. The UI already showed the
// confirmation, so the gate's execute path is used directly.
func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request, def models.Status) {
	ctx := r.Context()
	actor, ok := h.actorOrFail(w, r)
	if !ok {
		return
	}

	req, err := httputil.Decode[BulkRequest](r)
	if err == nil {
		err = req.checkBulkTarget(def)
	}
	if err != nil {
		h.logFailure(ctx, "invalid bulk request", err)
		writeBulkError(w, err)
		return
	}

	out, err := h.gate.Execute(ctx, actor, req.transition(def))
	if err != nil {
		h.logFailure(ctx, "bulk transition refused", err)
		writeBulkError(w, err)
		return
	}

	updated := 0
	if out.Result != nil {
		updated = out.Result.UpdatedCount
	}
	notifications := out.Notifications
	if notifications == nil {
		notifications = []notify.Outcome{}
	}
	sent := notify.CountSent(notifications)

	h.logger.InfoContext(ctx, "bulk transition committed",
		"log_type", "audit",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", actor.ID.String(),
		"to", string(def),
		"updated_count", updated,
		"clients_notified", sent,
	)
	httputil.WriteJSON(w, http.StatusOK, BulkResponse{
		Success: true,
		Message: bulkMessage(updated, sent),
		Data: &BulkData{
			UpdatedCount:    updated,
			ClientsNotified: sent,
			Notifications:   notifications,
			Undo:            out.Undo,
		},
	})
}

// writeBulkError writes the bulk failure envelope. Unknown ids refuse the
// batch as invalid input, so not_found maps to 400 on these routes.
func writeBulkError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := dErrors.ToHTTPStatus(code)
	if code == dErrors.CodeNotFound {
		status = http.StatusBadRequest
	}
	httputil.WriteJSON(w, status, BulkResponse{
		Success: false,
		Message: dErrors.Message(err),
		Error:   string(code),
	})
}

func bulkMessage(updated, notified int) string {
	docs := "documents"
	if updated == 1 {
		docs = "document"
	}
	if notified == 0 {
		return fmt.Sprintf("%d %s updated", updated, docs)
	}
	return fmt.Sprintf("%d %s updated, %d clients notified", updated, docs, notified)
}
