package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

func doc(client models.Client) *models.Document {
	return &models.Document{ID: id.NewDocumentID(), Client: client}
}

func TestKeyOf(t *testing.T) {
	t.Run("prefers the client id", func(t *testing.T) {
		k := KeyOf(doc(models.Client{ID: " 1712345678 ", Name: "Ana", Phone: "0991234567"}))
		assert.Equal(t, Identified{ClientID: "1712345678"}, k)
	})

	t.Run("falls back to normalised name and phone", func(t *testing.T) {
		k := KeyOf(doc(models.Client{Name: "  ana   maría ", Phone: "099-123-4567"}))
		assert.Equal(t, Derived{Name: "ANA MARÍA", Phone: "0991234567"}, k)
	})
}

func TestEqual(t *testing.T) {
	a := KeyOf(doc(models.Client{Name: "Ana Pérez", Phone: "0991234567"}))
	b := KeyOf(doc(models.Client{Name: "ANA  PÉREZ", Phone: "099 123 4567"}))
	assert.True(t, Equal(a, b))

	c := KeyOf(doc(models.Client{Name: "Ana Pérez", Phone: "0987654321"}))
	assert.False(t, Equal(a, c))

	// an identified client never matches a derived key, even with the same name
	d := KeyOf(doc(models.Client{ID: "1712345678", Name: "Ana Pérez", Phone: "0991234567"}))
	assert.False(t, Equal(a, d))
	assert.False(t, Equal(d, a))
}

func TestPartitionDocuments(t *testing.T) {
	a := doc(models.Client{ID: "C1"})
	b := doc(models.Client{Name: "Luis", Phone: "0990000000"})
	c := doc(models.Client{ID: "C1"})
	d := doc(models.Client{Name: "luis", Phone: "099 000 0000"})
	e := doc(models.Client{ID: "C2"})

	parts := PartitionDocuments([]*models.Document{a, b, c, d, e})
	require.Len(t, parts, 3)

	assert.Equal(t, []*models.Document{a, c}, parts[0].Documents)
	assert.Equal(t, []*models.Document{b, d}, parts[1].Documents)
	assert.Equal(t, []*models.Document{e}, parts[2].Documents)
	assert.True(t, parts[0].IsGroup())
	assert.False(t, parts[2].IsGroup())
}
