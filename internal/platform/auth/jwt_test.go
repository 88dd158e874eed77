package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaria/internal/platform/middleware"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
	"notaria/pkg/requestcontext"
)

var (
	tokenService = NewTokenService("test-signing-key", "notaria-test")
	actor        = id.Actor{ID: id.ActorID(uuid.New()), Role: id.RoleReception, Name: "Lucia"}
)

func Test_GenerateAccessToken(t *testing.T) {
	token, err := tokenService.GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)

	claims, err := tokenService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actor.ID.String(), claims.Subject)
	assert.Equal(t, "RECEPTION", claims.Role)
	assert.Equal(t, "Lucia", claims.Name)
	assert.NotEmpty(t, claims.SessionID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_Rejections(t *testing.T) {
	expired, err := tokenService.GenerateAccessToken(actor, -time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewTokenService("test-signing-key", "elsewhere").GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)
	otherKey, err := NewTokenService("other-key", "notaria-test").GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "invalid-token-string",
		"expired":      expired,
		"other issuer": otherIssuer,
		"other key":    otherKey,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := tokenService.ValidateToken(token)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}

func Test_RequireActorWithTokenService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var got id.Actor
	var session string
	h := middleware.RequireActor(NewTokenServiceAdapter(tokenService), logger)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = requestcontext.Actor(r.Context())
			session = requestcontext.SessionKey(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	token, err := tokenService.GenerateAccessToken(actor, time.Hour)
	require.NoError(t, err)
	claims, err := tokenService.ValidateToken(token)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, actor, got)
	assert.Equal(t, claims.SessionID, session)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
