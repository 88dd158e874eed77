package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"notaria/internal/document/gate"
	"notaria/internal/document/models"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/platform/httputil"
	"notaria/pkg/requestcontext"
)

// UndoStatus is the body of GET /documents/transitions/undo.
type UndoStatus struct {
	Active bool            `json:"active"`
	Undo   *gate.UndoOffer `json:"undo,omitempty"`
}

// VerifyResponse is the body of GET /documents/retrieval/{code}.
type VerifyResponse struct {
	Code      string             `json:"code"`
	Grouped   bool               `json:"grouped"`
	Documents []*models.Document `json:"documents"`
}

func (h *Handler) handleRequestTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actorOrFail(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	out, err := h.gate.Request(ctx, actor, req.transition(""))
	if err != nil {
		h.logFailure(ctx, "transition request refused", err)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if out.State == gate.StateAwaitingConfirmation {
		status = http.StatusAccepted
	}
	httputil.WriteJSON(w, status, out)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actorOrFail(w, r)
	if !ok {
		return
	}
	out, err := h.gate.Confirm(ctx, actor, chi.URLParam(r, "token"))
	if err != nil {
		h.logFailure(ctx, "confirmation refused", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actorOrFail(w, r)
	if !ok {
		return
	}
	out, err := h.gate.Cancel(ctx, actor, chi.URLParam(r, "token"))
	if err != nil {
		h.logFailure(ctx, "cancel refused", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actorOrFail(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UndoRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	out, err := h.gate.Undo(ctx, actor, req.Token)
	if err != nil {
		h.logFailure(ctx, "undo refused", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleActiveUndo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.actorOrFail(w, r)
	if !ok {
		return
	}
	offer, err := h.gate.ActiveUndo(ctx, actor)
	if err != nil {
		h.logFailure(ctx, "undo lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	if offer == nil {
		httputil.WriteJSON(w, http.StatusOK, UndoStatus{Active: false})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, UndoStatus{Active: true, Undo: offer})
}

func (h *Handler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.actorOrFail(w, r); !ok {
		return
	}
	code := chi.URLParam(r, "code")
	docs, err := h.verifier.VerifyRetrievalCode(ctx, code)
	if err != nil {
		h.logFailure(ctx, "retrieval code not accepted", err)
		httputil.WriteError(w, err)
		return
	}
	if len(docs) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no documents ready for this code"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		Code:      code,
		Grouped:   docs[0].IsGrouped,
		Documents: docs,
	})
}
