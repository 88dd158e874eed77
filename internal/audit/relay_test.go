package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaria/internal/audit"
	"notaria/internal/document/models"
	"notaria/internal/document/retrievalcode"
	"notaria/internal/document/service"
	"notaria/internal/document/store/memory"
	id "notaria/pkg/domain"
)

type record struct {
	topic   string
	key     string
	headers map[string]string
}

type fakePublisher struct {
	mu      sync.Mutex
	records []record
	failAt  int // fail every call once this many records were accepted; 0 disables
}

func (f *fakePublisher) PublishWithHeaders(_ context.Context, topic string, key, _ []byte, headers map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt > 0 && len(f.records) >= f.failAt {
		return errors.New("broker down")
	}
	f.records = append(f.records, record{topic: topic, key: string(key), headers: headers})
	return nil
}

func seedEvents(t *testing.T, store *memory.InMemory, n int) []id.DocumentID {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	var ids []id.DocumentID
	for i := 0; i < n; i++ {
		doc := &models.Document{
			ID:             id.NewDocumentID(),
			ProtocolNumber: "P-" + uuid.NewString()[:6],
			Status:         models.StatusReceived,
			Client:         models.Client{Name: "Cliente " + uuid.NewString()[:4]},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		require.NoError(t, store.Insert(ctx, doc))
		ids = append(ids, doc.ID)
	}
	svc := service.New(store, retrievalcode.New())
	admin := id.Actor{ID: id.ActorID(uuid.New()), Role: id.RoleAdmin}
	_, err := svc.Apply(ctx, service.Request{DocumentIDs: ids, To: models.StatusInProgress, Actor: admin})
	require.NoError(t, err)
	return ids
}

func TestRunOncePublishesInOrderAndMarks(t *testing.T) {
	store := memory.New()
	docs := seedEvents(t, store, 3)
	pub := &fakePublisher{}
	relay := audit.NewRelay(store, pub, "notaria.document-events", audit.WithBatchSize(2))

	n, err := relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = relay.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, pub.records, 3)
	var keys, want []string
	for _, rec := range pub.records {
		assert.Equal(t, "notaria.document-events", rec.topic)
		assert.Equal(t, string(models.EventStatusChanged), rec.headers["event_type"])
		keys = append(keys, rec.key)
	}
	for _, d := range docs {
		want = append(want, d.String())
	}
	assert.ElementsMatch(t, want, keys)
}

func TestRunOnceStopsAtFailureAndKeepsRemainderPending(t *testing.T) {
	store := memory.New()
	seedEvents(t, store, 3)
	pub := &fakePublisher{failAt: 1}
	relay := audit.NewRelay(store, pub, "events", audit.WithMaxRetry(time.Millisecond))

	n, err := relay.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)

	pending, err := store.PendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := memory.New()
	seedEvents(t, store, 1)
	pub := &fakePublisher{}
	relay := audit.NewRelay(store, pub, "events", audit.WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.records) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
