package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"notaria/pkg/domain"
)

func TestSessionKeyFallsBackToActor(t *testing.T) {
	actor := domain.Actor{ID: domain.ActorID(uuid.New()), Role: domain.RoleReception}
	ctx := WithActor(context.Background(), actor)
	assert.Equal(t, actor.ID.String(), SessionKey(ctx))

	ctx = WithSessionKey(ctx, "sess-1")
	assert.Equal(t, "sess-1", SessionKey(ctx))
}

func TestNowPinned(t *testing.T) {
	pinned := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, pinned, Now(WithTime(context.Background(), pinned)))
}
