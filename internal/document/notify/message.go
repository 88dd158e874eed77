package notify

import (
	"fmt"
	"strings"

	"notaria/internal/document/models"
	"notaria/internal/document/service"
	id "notaria/pkg/domain"
)

// Kind is the type of client message.
type Kind string

const (
	KindDocumentsReady     Kind = "documents_ready"
	KindDocumentsDelivered Kind = "documents_delivered"
)

// kindFor returns the message kind for a target status; only READY and
// DELIVERED reach the client.
func kindFor(to models.Status) (Kind, bool) {
	switch to {
	case models.StatusReady:
		return KindDocumentsReady, true
	case models.StatusDelivered:
		return KindDocumentsDelivered, true
	default:
		return "", false
	}
}

// Contact is where a message goes.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// DocumentRef identifies one document inside a message.
type DocumentRef struct {
	ID             id.DocumentID `json:"id"`
	ProtocolNumber string        `json:"protocolNumber"`
	DocumentType   string        `json:"documentType"`
}

// Message is one consolidated client message: a group lists every document
// with the shared code, a lone document gets a single-document message.
type Message struct {
	Kind          Kind          `json:"kind"`
	ClientName    string        `json:"clientName"`
	Documents     []DocumentRef `json:"documents"`
	RetrievalCode string        `json:"retrievalCode,omitempty"`
	Grouped       bool          `json:"grouped"`
	DeliveredTo   string        `json:"deliveredTo,omitempty"`
}

func newMessage(kind Kind, g service.ClientGroupResult) Message {
	m := Message{
		Kind:          kind,
		ClientName:    g.Client.Name,
		RetrievalCode: g.RetrievalCode,
		Grouped:       len(g.Documents) > 1,
	}
	for _, d := range g.Documents {
		m.Documents = append(m.Documents, DocumentRef{ID: d.ID, ProtocolNumber: d.ProtocolNumber, DocumentType: d.DocumentType})
		if m.DeliveredTo == "" && d.Delivery != nil {
			m.DeliveredTo = d.Delivery.DeliveredTo
		}
	}
	return m
}

// Text renders a plain-text body for channels that need one.
func (m Message) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s. ", m.ClientName)
	switch m.Kind {
	case KindDocumentsReady:
		if m.Grouped {
			fmt.Fprintf(&b, "%d documents are ready for pickup:", len(m.Documents))
		} else {
			b.WriteString("Your document is ready for pickup:")
		}
	case KindDocumentsDelivered:
		if m.Grouped {
			fmt.Fprintf(&b, "%d documents were delivered", len(m.Documents))
		} else {
			b.WriteString("Your document was delivered")
		}
		if m.DeliveredTo != "" {
			fmt.Fprintf(&b, " to %s", m.DeliveredTo)
		}
		b.WriteString(":")
	}
	for _, d := range m.Documents {
		fmt.Fprintf(&b, "\n- %s %s", d.DocumentType, d.ProtocolNumber)
	}
	if m.Kind == KindDocumentsReady && m.RetrievalCode != "" {
		fmt.Fprintf(&b, "\nRetrieval code: %s", m.RetrievalCode)
	}
	return b.String()
}
