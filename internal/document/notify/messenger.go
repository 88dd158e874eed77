package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// LogMessenger writes messages to the log instead of contacting clients.
// It is the messenger used when no broker is configured.
type LogMessenger struct {
	logger *slog.Logger
}

func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) Channel() string { return "log" }

func (m *LogMessenger) SendToClient(ctx context.Context, to Contact, msg Message) error {
	m.logger.InfoContext(ctx, "client message",
		"kind", msg.Kind,
		"client", to.Name,
		"phone", to.Phone,
		"email", to.Email,
		"documents", len(msg.Documents),
		"retrieval_code", msg.RetrievalCode,
		"text", msg.Text(),
	)
	return nil
}

// Publisher produces one record to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Envelope is the record handed to the delivery gateway.
type Envelope struct {
	Channel string  `json:"channel"`
	To      Contact `json:"to"`
	Message Message `json:"message"`
	Text    string  `json:"text"`
}

// KafkaMessenger hands messages to the outbound gateway through a topic. The
// record key is the destination so one client's messages stay ordered.
type KafkaMessenger struct {
	publisher Publisher
	topic     string
}

func NewKafkaMessenger(publisher Publisher, topic string) *KafkaMessenger {
	return &KafkaMessenger{publisher: publisher, topic: topic}
}

func (m *KafkaMessenger) Channel() string { return "whatsapp" }

func (m *KafkaMessenger) SendToClient(ctx context.Context, to Contact, msg Message) error {
	if to.Phone == "" {
		return ErrNoContact
	}
	value, err := json.Marshal(Envelope{Channel: m.Channel(), To: to, Message: msg, Text: msg.Text()})
	if err != nil {
		return fmt.Errorf("marshal client message: %w", err)
	}
	if err := m.publisher.Publish(ctx, m.topic, []byte(to.Phone), value); err != nil {
		return fmt.Errorf("publish client message: %w", err)
	}
	return nil
}
