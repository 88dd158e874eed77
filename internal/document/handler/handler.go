package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"notaria/internal/document/gate"
	"notaria/internal/document/models"
	"notaria/internal/platform/middleware"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/platform/httputil"
	"notaria/pkg/platform/middleware/requesttime"
	"notaria/pkg/requestcontext"
)

// Gate is the confirmation gate and undo ledger the routes drive.
type Gate interface {
	Request(ctx context.Context, actor id.Actor, req gate.TransitionRequest) (*gate.Outcome, error)
	Confirm(ctx context.Context, actor id.Actor, token string) (*gate.Outcome, error)
	Cancel(ctx context.Context, actor id.Actor, token string) (*gate.Outcome, error)
	Execute(ctx context.Context, actor id.Actor, req gate.TransitionRequest) (*gate.Outcome, error)
	Undo(ctx context.Context, actor id.Actor, token string) (*gate.Outcome, error)
	ActiveUndo(ctx context.Context, actor id.Actor) (*gate.UndoOffer, error)
}

// Verifier checks retrieval codes at the front desk.
type Verifier interface {
	VerifyRetrievalCode(ctx context.Context, code string) ([]*models.Document, error)
}

// Handler serves the document lifecycle endpoints.
type Handler struct {
	logger       *slog.Logger
	gate         Gate
	verifier     Verifier
	jwtValidator middleware.JWTValidator
}

// New creates a new document Handler.
func New(g Gate, verifier Verifier, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		gate:         g,
		verifier:     verifier,
		jwtValidator: jwtValidator,
	}
}

// Register registers the document routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	docs := chi.NewRouter()
	docs.Use(middleware.Recovery(h.logger))
	docs.Use(middleware.RequestID)
	docs.Use(middleware.Logger(h.logger))
	docs.Use(middleware.Timeout(30 * time.Second))
	docs.Use(requesttime.Middleware)
	docs.Use(middleware.RequireActor(h.jwtValidator, h.logger))

	docs.Post("/bulk/ready", h.handleBulkReady)
	docs.Post("/bulk/deliver", h.handleBulkDeliver)

	docs.Post("/transitions", h.handleRequestTransition)
	docs.Post("/transitions/undo", h.handleUndo)
	docs.Get("/transitions/undo", h.handleActiveUndo)
	docs.Post("/transitions/{token}/confirm", h.handleConfirm)
	docs.Post("/transitions/{token}/cancel", h.handleCancel)

	docs.Get("/retrieval/{code}", h.handleVerifyCode)

	r.Mount("/documents", docs)
}

// actorOrFail reads the authenticated actor. RequireActor guarantees one is
// present, so a miss is an internal wiring error.
func (h *Handler) actorOrFail(w http.ResponseWriter, r *http.Request) (id.Actor, bool) {
	ctx := r.Context()
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "actor missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.Actor{}, false
	}
	return actor, true
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	code := dErrors.CodeOf(err)
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error_code", string(code),
		"error", err,
	}
	if code == dErrors.CodeInternal || code == dErrors.CodeTimeout {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
