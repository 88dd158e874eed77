package gate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaria/pkg/platform/sentinel"
)

func TestMemoryStoreExpiresEntries(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.PutUndo(ctx, "s", &UndoEntry{Token: "a"}, 10*time.Second))
	got, err := store.GetUndo(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Token)

	require.NoError(t, store.PutUndo(ctx, "s", &UndoEntry{Token: "b"}, 10*time.Second))
	got, err = store.GetUndo(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Token, "one entry per session")

	now = now.Add(10 * time.Second)
	_, err = store.GetUndo(ctx, "s")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = store.GetPending(ctx, "s")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
