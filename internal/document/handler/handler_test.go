package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"notaria/internal/document/gate"
	"notaria/internal/document/handler/mocks"
	"notaria/internal/document/models"
	"notaria/internal/document/notify"
	"notaria/internal/document/service"
	"notaria/internal/platform/middleware"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/handler-mocks.go -package=mocks Gate,Verifier

type staticValidator struct {
	claims *middleware.JWTClaims
}

func (v staticValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return v.claims, nil
}

type DocumentHandlerSuite struct {
	suite.Suite
	gate     *mocks.MockGate
	verifier *mocks.MockVerifier
	router   chi.Router
	actor    id.Actor
}

func TestDocumentHandlerSuite(t *testing.T) {
	suite.Run(t, new(DocumentHandlerSuite))
}

func (s *DocumentHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.gate = mocks.NewMockGate(ctrl)
	s.verifier = mocks.NewMockVerifier(ctrl)
	s.actor = id.Actor{ID: id.ActorID(uuid.New()), Role: id.RoleReception, Name: "Lucia"}

	validator := staticValidator{claims: &middleware.JWTClaims{
		ActorID:   s.actor.ID.String(),
		Role:      string(s.actor.Role),
		Name:      s.actor.Name,
		SessionID: "sess-1",
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.gate, s.verifier, logger, validator).Register(s.router)
}

func (s *DocumentHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewRequest(s.T(), method, path)
	if body != nil {
		req = testutil.NewJSONRequest(s.T(), method, path, body)
	}
	req.Header.Set("Authorization", "Bearer test")
	return testutil.DoRequest(s.router, req)
}

func committed(updated int, outcomes ...notify.Outcome) *gate.Outcome {
	return &gate.Outcome{
		State:         gate.StateCommitted,
		Result:        &service.BulkResult{UpdatedCount: updated},
		Notifications: outcomes,
		Undo:          &gate.UndoOffer{Token: "undo-1", RemainingSeconds: 10},
	}
}

func (s *DocumentHandlerSuite) TestBulkReady() {
	a, b := id.NewDocumentID(), id.NewDocumentID()

	s.Run("commits with notifications on by default", func() {
		s.gate.EXPECT().Execute(gomock.Any(), s.actor, gate.TransitionRequest{
			DocumentIDs: []id.DocumentID{a, b},
			To:          models.StatusReady,
			Notify:      true,
		}).Return(committed(2,
			notify.Outcome{ClientName: "Ana", Status: models.NotificationSent},
			notify.Outcome{ClientName: "Luis", Status: models.NotificationRejected, Reason: "timeout"},
		), nil)

		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{
			"documentIds": []string{a.String(), " " + b.String(), a.String()},
		})

		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[BulkResponse](s.T(), rr)
		s.True(resp.Success)
		s.Require().NotNil(resp.Data)
		s.Equal(2, resp.Data.UpdatedCount)
		s.Equal(1, resp.Data.ClientsNotified)
		s.Len(resp.Data.Notifications, 2)
		s.Equal("undo-1", resp.Data.Undo.Token)
		s.Equal("2 documents updated, 1 clients notified", resp.Message)
	})

	s.Run("empty id list never reaches the gate", func() {
		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{"documentIds": []string{" "}})
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		resp := testutil.UnmarshalResponse[BulkResponse](s.T(), rr)
		s.False(resp.Success)
		s.Equal("validation_error", resp.Error)
	})

	s.Run("a forward target other than the route's is refused", func() {
		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{
			"documentIds": []string{a.String()},
			"toStatus":    "DELIVERED",
		})
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		resp := testutil.UnmarshalResponse[BulkResponse](s.T(), rr)
		s.Equal("validation_error", resp.Error)
	})

	s.Run("a reversion without a reason is refused", func() {
		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{
			"documentIds": []string{a.String()},
			"toStatus":    "IN_PROGRESS",
		})
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("a reversion with a reason reaches the gate", func() {
		s.gate.EXPECT().Execute(gomock.Any(), s.actor, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ id.Actor, req gate.TransitionRequest) (*gate.Outcome, error) {
				s.Equal(models.StatusInProgress, req.To)
				s.Equal("missing signature", req.Reason)
				return committed(1), nil
			})
		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{
			"documentIds":     []string{a.String()},
			"toStatus":        "IN_PROGRESS",
			"reversionReason": " missing signature ",
		})
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("unknown ids refuse the batch with 400", func() {
		s.gate.EXPECT().Execute(gomock.Any(), s.actor, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "1 document(s) not found"))
		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{"documentIds": []string{a.String()}})
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		resp := testutil.UnmarshalResponse[BulkResponse](s.T(), rr)
		s.Equal("not_found", resp.Error)
		s.Equal("1 document(s) not found", resp.Message)
	})

	s.Run("ownership failures are 403", func() {
		s.gate.EXPECT().Execute(gomock.Any(), s.actor, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "not authorized for 1 document(s)"))
		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{"documentIds": []string{a.String()}})
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("internal errors do not leak", func() {
		s.gate.EXPECT().Execute(gomock.Any(), s.actor, gomock.Any()).
			Return(nil, dErrors.Wrap(io.ErrUnexpectedEOF, dErrors.CodeInternal, "failed to apply transition"))
		rr := s.do(http.MethodPost, "/documents/bulk/ready", map[string]any{"documentIds": []string{a.String()}})
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.NotContains(rr.Body.String(), "unexpected EOF")
	})
}

func (s *DocumentHandlerSuite) TestBulkDeliverCarriesRecipient() {
	a := id.NewDocumentID()
	s.gate.EXPECT().Execute(gomock.Any(), s.actor, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ id.Actor, req gate.TransitionRequest) (*gate.Outcome, error) {
			s.Equal(models.StatusDelivered, req.To)
			s.False(req.Notify)
			s.Require().NotNil(req.Delivery)
			s.Equal("Marta", req.Delivery.DeliveredTo)
			s.Equal("hermana", req.Delivery.Relationship)
			return committed(1), nil
		})

	rr := s.do(http.MethodPost, "/documents/bulk/deliver", map[string]any{
		"documentIds":       []string{a.String()},
		"sendNotifications": false,
		"deliveredTo":       " Marta ",
		"relationship":      "hermana",
	})
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[BulkResponse](s.T(), rr)
	s.Equal("1 document updated", resp.Message)
	s.NotNil(resp.Data.Notifications, "notifications is always a list")
}

func (s *DocumentHandlerSuite) TestUnauthenticated() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/documents/bulk/ready", map[string]any{})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *DocumentHandlerSuite) TestTransitionFlow() {
	a := id.NewDocumentID()
	testutil.Given(s.T(), "a critical transition request", func(t *testing.T) {
		s.gate.EXPECT().Request(gomock.Any(), s.actor, gate.TransitionRequest{
			DocumentIDs: []id.DocumentID{a},
			To:          models.StatusReady,
			Notify:      true,
		}).Return(&gate.Outcome{State: gate.StateAwaitingConfirmation, Token: "tok-1"}, nil)

		rr := s.do(http.MethodPost, "/documents/transitions", map[string]any{
			"documentIds": []string{a.String()},
			"toStatus":    "listo",
		})

		testutil.Then(t, "the request waits for confirmation", func(t *testing.T) {
			testutil.AssertStatus(t, rr, http.StatusAccepted)
			out := testutil.UnmarshalResponse[gate.Outcome](t, rr)
			assert.Equal(t, gate.StateAwaitingConfirmation, out.State)
			assert.Equal(t, "tok-1", out.Token)
		})
	})

	testutil.When(s.T(), "the token is confirmed", func(t *testing.T) {
		s.gate.EXPECT().Confirm(gomock.Any(), s.actor, "tok-1").Return(committed(1), nil)
		rr := s.do(http.MethodPost, "/documents/transitions/tok-1/confirm", nil)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	testutil.When(s.T(), "an unknown token is cancelled", func(t *testing.T) {
		s.gate.EXPECT().Cancel(gomock.Any(), s.actor, "nope").
			Return(nil, dErrors.New(dErrors.CodeNotFound, "no pending transition with this token"))
		rr := s.do(http.MethodPost, "/documents/transitions/nope/cancel", nil)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	testutil.When(s.T(), "toStatus is missing", func(t *testing.T) {
		rr := s.do(http.MethodPost, "/documents/transitions", map[string]any{"documentIds": []string{a.String()}})
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func (s *DocumentHandlerSuite) TestUndo() {
	s.Run("expired undo is 410", func() {
		s.gate.EXPECT().Undo(gomock.Any(), s.actor, "undo-1").
			Return(nil, dErrors.New(dErrors.CodeUndoExpired, "the undo window has closed; the change can no longer be reversed"))
		rr := s.do(http.MethodPost, "/documents/transitions/undo", map[string]any{"token": "undo-1"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusGone, "undo_expired")
	})

	s.Run("missing token", func() {
		rr := s.do(http.MethodPost, "/documents/transitions/undo", map[string]any{})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("successful undo", func() {
		s.gate.EXPECT().Undo(gomock.Any(), s.actor, "undo-2").
			Return(&gate.Outcome{State: gate.StateReverted, Reverted: &service.RevertResult{RestoredCount: 2}}, nil)
		rr := s.do(http.MethodPost, "/documents/transitions/undo", map[string]any{"token": "undo-2"})
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		out := testutil.UnmarshalResponse[gate.Outcome](s.T(), rr)
		s.Equal(gate.StateReverted, out.State)
		s.Equal(2, out.Reverted.RestoredCount)
	})

	s.Run("active undo listing", func() {
		s.gate.EXPECT().ActiveUndo(gomock.Any(), s.actor).Return(nil, nil)
		rr := s.do(http.MethodGet, "/documents/transitions/undo", nil)
		status := testutil.UnmarshalResponse[UndoStatus](s.T(), rr)
		s.False(status.Active)

		expires := time.Date(2026, 5, 4, 10, 0, 10, 0, time.UTC)
		s.gate.EXPECT().ActiveUndo(gomock.Any(), s.actor).
			Return(&gate.UndoOffer{Token: "undo-3", RemainingSeconds: 7, ExpiresAt: expires}, nil)
		rr = s.do(http.MethodGet, "/documents/transitions/undo", nil)
		status = testutil.UnmarshalResponse[UndoStatus](s.T(), rr)
		s.True(status.Active)
		s.Equal(7, status.Undo.RemainingSeconds)
	})
}

func (s *DocumentHandlerSuite) TestVerifyRetrievalCode() {
	docs := []*models.Document{
		{ID: id.NewDocumentID(), Status: models.StatusReady, IsGrouped: true, RetrievalCode: "4821"},
		{ID: id.NewDocumentID(), Status: models.StatusReady, IsGrouped: true, RetrievalCode: "4821"},
	}
	s.verifier.EXPECT().VerifyRetrievalCode(gomock.Any(), "4821").Return(docs, nil)
	rr := s.do(http.MethodGet, "/documents/retrieval/4821", nil)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[VerifyResponse](s.T(), rr)
	s.True(resp.Grouped)
	s.Len(resp.Documents, 2)

	s.verifier.EXPECT().VerifyRetrievalCode(gomock.Any(), "12").
		Return(nil, dErrors.New(dErrors.CodeValidation, "retrieval code must be 4 digits"))
	rr = s.do(http.MethodGet, "/documents/retrieval/12", nil)
	require.Equal(s.T(), http.StatusBadRequest, rr.Code)
}
