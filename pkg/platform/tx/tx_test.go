package tx_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	txcontext "notaria/pkg/platform/tx"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE items (name TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestRunCommits(t *testing.T) {
	db := openDB(t)
	err := txcontext.Run(context.Background(), db, time.Second, func(ctx context.Context) error {
		tx, ok := txcontext.From(ctx)
		require.True(t, ok)
		_, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
}

func TestRunRollsBackOnError(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")
	err := txcontext.Run(context.Background(), db, time.Second, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestRunJoinsOuterTransaction(t *testing.T) {
	db := openDB(t)
	err := txcontext.Run(context.Background(), db, time.Second, func(ctx context.Context) error {
		outer, _ := txcontext.From(ctx)
		return txcontext.Run(ctx, db, time.Second, func(inner context.Context) error {
			tx, _ := txcontext.From(inner)
			assert.Same(t, outer, tx)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestRunRejectsCancelledContext(t *testing.T) {
	db := openDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := txcontext.Run(ctx, db, time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
