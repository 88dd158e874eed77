// Package grouping derives the client identity used to decide which documents
// of a bulk operation belong together.
package grouping

import (
	"strings"
	"unicode"

	"notaria/internal/document/models"
)

// Key is a client-group key: either Identified by a stable client ID or
// Derived from the client's name and phone. The interface is sealed.
type Key interface {
	// String renders the key for logs and notification records.
	String() string
	isKey()
}

// Identified keys documents by a stable client identifier.
type Identified struct {
	ClientID string
}

// Derived keys documents by normalised name and phone when no ID is recorded.
type Derived struct {
	Name  string
	Phone string
}

func (Identified) isKey() {}
func (Derived) isKey()    {}

func (k Identified) String() string { return "id:" + k.ClientID }
func (k Derived) String() string    { return "derived:" + k.Name + "__" + k.Phone }

// KeyOf computes the key of a document.
func KeyOf(doc *models.Document) Key {
	if cid := strings.TrimSpace(doc.Client.ID); cid != "" {
		return Identified{ClientID: cid}
	}
	return Derived{Name: normaliseName(doc.Client.Name), Phone: digitsOnly(doc.Client.Phone)}
}

// Equal reports whether two keys identify the same client. An Identified key
// never equals a Derived one.
func Equal(a, b Key) bool {
	switch ka := a.(type) {
	case Identified:
		kb, ok := b.(Identified)
		return ok && ka.ClientID == kb.ClientID
	case Derived:
		kb, ok := b.(Derived)
		return ok && ka.Name == kb.Name && ka.Phone == kb.Phone
	default:
		return false
	}
}

func normaliseName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
