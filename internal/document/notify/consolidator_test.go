package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaria/internal/document/models"
	"notaria/internal/document/notify"
	"notaria/internal/document/service"
	"notaria/internal/document/store/memory"
	id "notaria/pkg/domain"
	"notaria/pkg/platform/circuit"
)

type sent struct {
	to  notify.Contact
	msg notify.Message
}

type fakeMessenger struct {
	mu    sync.Mutex
	sent  []sent
	calls int
	fail  map[string]error
}

func (f *fakeMessenger) Channel() string { return "fake" }

func (f *fakeMessenger) SendToClient(_ context.Context, to notify.Contact, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[to.Name]; err != nil {
		return err
	}
	f.sent = append(f.sent, sent{to: to, msg: msg})
	return nil
}

func group(name, phone string, policy models.NotificationPolicy, code string, n int) service.ClientGroupResult {
	g := service.ClientGroupResult{
		ClientKey:     "D:" + name,
		Client:        models.Client{Name: name, Phone: phone},
		Policy:        policy,
		RetrievalCode: code,
		Grouped:       n > 1,
	}
	for i := 0; i < n; i++ {
		g.Documents = append(g.Documents, &models.Document{
			ID:             id.NewDocumentID(),
			ProtocolNumber: name + "-" + string(rune('A'+i)),
			DocumentType:   "ESCRITURA",
			Status:         models.StatusReady,
			RetrievalCode:  code,
		})
	}
	return g
}

func readyResult(groups ...service.ClientGroupResult) *service.BulkResult {
	return &service.BulkResult{To: models.StatusReady, Groups: groups}
}

func TestNotifySendsOneMessagePerClient(t *testing.T) {
	messenger := &fakeMessenger{}
	store := memory.New()
	c := notify.New(messenger, notify.WithRecorder(store), notify.WithSendRetry(0, 0))

	outcomes := c.Notify(context.Background(), readyResult(
		group("Ana", "0991234567", models.PolicyNotify, "4821", 2),
		group("Luis", "0987654321", models.PolicyNotify, "7390", 1),
	), true)

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.NotificationSent, outcomes[0].Status)
	assert.Equal(t, models.NotificationSent, outcomes[1].Status)
	assert.True(t, outcomes[0].Grouped)
	assert.Len(t, outcomes[0].DocumentIDs, 2)
	assert.Equal(t, 2, notify.CountSent(outcomes))

	require.Len(t, messenger.sent, 2)
	byName := map[string]sent{}
	for _, s := range messenger.sent {
		byName[s.to.Name] = s
	}
	ana := byName["Ana"]
	assert.Equal(t, "+593991234567", ana.to.Phone)
	assert.Equal(t, notify.KindDocumentsReady, ana.msg.Kind)
	assert.True(t, ana.msg.Grouped)
	assert.Len(t, ana.msg.Documents, 2)
	assert.Contains(t, ana.msg.Text(), "4821")
	assert.False(t, byName["Luis"].msg.Grouped)

	records, err := store.Notifications(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestNotifyRecordsSkips(t *testing.T) {
	messenger := &fakeMessenger{}
	c := notify.New(messenger, notify.WithSendRetry(0, 0))

	outcomes := c.Notify(context.Background(), readyResult(
		group("Silent", "0991234567", models.PolicySilent, "4821", 1),
		group("Nobody", "", models.PolicyNotify, "7390", 1),
	), true)

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.NotificationSkippedPolicy, outcomes[0].Status)
	assert.Equal(t, models.NotificationSkippedNoContact, outcomes[1].Status)
	assert.Zero(t, messenger.calls)

	outcomes = c.Notify(context.Background(), readyResult(
		group("Ana", "0991234567", models.PolicyNotify, "4821", 1),
	), false)
	assert.Equal(t, models.NotificationSkippedDisabled, outcomes[0].Status)
	assert.Zero(t, messenger.calls)
}

func TestNotifyFailureIsIsolatedPerClient(t *testing.T) {
	messenger := &fakeMessenger{fail: map[string]error{"Ana": errors.New("gateway down")}}
	c := notify.New(messenger, notify.WithSendRetry(2, 0))

	outcomes := c.Notify(context.Background(), readyResult(
		group("Ana", "0991234567", models.PolicyNotify, "4821", 2),
		group("Luis", "0987654321", models.PolicyNotify, "7390", 1),
	), true)

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.NotificationRejected, outcomes[0].Status)
	assert.Equal(t, "gateway down", outcomes[0].Reason)
	assert.Equal(t, models.NotificationSent, outcomes[1].Status)
	// three tries for Ana, one for Luis
	assert.Equal(t, 4, messenger.calls)
}

func TestNotifyOpenBreakerRejectsWithoutSending(t *testing.T) {
	messenger := &fakeMessenger{fail: map[string]error{"Ana": errors.New("gateway down")}}
	breaker := circuit.New("messenger", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	c := notify.New(messenger,
		notify.WithBreaker(breaker),
		notify.WithConcurrency(1),
		notify.WithSendRetry(0, 0),
	)

	outcomes := c.Notify(context.Background(), readyResult(
		group("Ana", "0991234567", models.PolicyNotify, "4821", 1),
		group("Luis", "0987654321", models.PolicyNotify, "7390", 1),
	), true)

	require.Len(t, outcomes, 2)
	assert.Equal(t, models.NotificationRejected, outcomes[0].Status)
	assert.Equal(t, models.NotificationRejected, outcomes[1].Status)
	assert.Contains(t, outcomes[1].Reason, "circuit open")
	assert.Equal(t, 1, messenger.calls)
	assert.True(t, breaker.IsOpen())
}

func TestNotifyIgnoresNonCriticalTargets(t *testing.T) {
	messenger := &fakeMessenger{}
	c := notify.New(messenger)

	res := readyResult(group("Ana", "0991234567", models.PolicyNotify, "", 1))
	res.To = models.StatusInProgress
	assert.Empty(t, c.Notify(context.Background(), res, true))
	assert.Zero(t, messenger.calls)
}

func TestDeliveredMessageNamesRecipient(t *testing.T) {
	messenger := &fakeMessenger{}
	c := notify.New(messenger)

	g := group("Ana", "0991234567", models.PolicyNotify, "", 1)
	g.Documents[0].Delivery = &models.Delivery{DeliveredTo: "Marta Pérez"}
	res := &service.BulkResult{To: models.StatusDelivered, Groups: []service.ClientGroupResult{g}}

	outcomes := c.Notify(context.Background(), res, true)
	require.Len(t, outcomes, 1)
	require.Len(t, messenger.sent, 1)
	assert.Equal(t, notify.KindDocumentsDelivered, messenger.sent[0].msg.Kind)
	assert.Contains(t, messenger.sent[0].msg.Text(), "Marta Pérez")
}

type capturePublisher struct {
	topic      string
	key, value []byte
}

func (p *capturePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestKafkaMessengerKeysByPhone(t *testing.T) {
	pub := &capturePublisher{}
	m := notify.NewKafkaMessenger(pub, "notaria.client-messages")

	err := m.SendToClient(context.Background(), notify.Contact{Name: "Ana", Phone: "+593991234567"},
		notify.Message{Kind: notify.KindDocumentsReady, ClientName: "Ana", RetrievalCode: "4821"})
	require.NoError(t, err)
	assert.Equal(t, "notaria.client-messages", pub.topic)
	assert.Equal(t, "+593991234567", string(pub.key))
	assert.Contains(t, string(pub.value), `"retrievalCode":"4821"`)

	err = m.SendToClient(context.Background(), notify.Contact{Name: "Ana", Email: "a@example.com"}, notify.Message{})
	assert.ErrorIs(t, err, notify.ErrNoContact)
}
