package transition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	t.Run("critical forward transitions need confirmation", func(t *testing.T) {
		c := p.RequiresConfirmation(models.StatusInProgress, models.StatusReady, id.RoleReception)
		assert.True(t, c.Required)
		assert.Equal(t, CategoryCritical, c.Category)

		c = p.RequiresConfirmation(models.StatusReady, models.StatusDelivered, id.RoleReception)
		assert.Equal(t, CategoryCritical, c.Category)
	})

	t.Run("direct delivery replaces the generic prompt for drafters and archivists", func(t *testing.T) {
		for _, role := range []id.Role{id.RoleDrafter, id.RoleArchive} {
			c := p.RequiresConfirmation(models.StatusReady, models.StatusDelivered, role)
			assert.True(t, c.Required)
			assert.Equal(t, CategoryDirectDelivery, c.Category, role)
		}
	})

	t.Run("reversions are flagged for every role", func(t *testing.T) {
		for _, role := range []id.Role{id.RoleAdmin, id.RoleDrafter, id.RoleReception, id.RoleArchive} {
			c := p.RequiresConfirmation(models.StatusReady, models.StatusInProgress, role)
			assert.True(t, c.Required)
			assert.Equal(t, CategoryReversion, c.Category)
		}
	})

	t.Run("non critical forward step", func(t *testing.T) {
		c := p.RequiresConfirmation(models.StatusReceived, models.StatusInProgress, id.RoleDrafter)
		assert.False(t, c.Required)
		assert.Equal(t, CategoryNone, c.Category)
	})
}

func TestLoadPolicy(t *testing.T) {
	t.Run("overrides layer on defaults", func(t *testing.T) {
		doc := `
rules:
  - role: RECEPCION
    from: READY
    to: DELIVERED
    confirmation: direct_delivery
  - role: ADMIN
    from: IN_PROGRESS
    to: READY
    confirmation: none
`
		p, err := LoadPolicy(strings.NewReader(doc))
		require.NoError(t, err)

		assert.Equal(t, CategoryDirectDelivery,
			p.RequiresConfirmation(models.StatusReady, models.StatusDelivered, id.RoleReception).Category)
		assert.False(t, p.RequiresConfirmation(models.StatusInProgress, models.StatusReady, id.RoleAdmin).Required)
		assert.Equal(t, CategoryDirectDelivery,
			p.RequiresConfirmation(models.StatusReady, models.StatusDelivered, id.RoleDrafter).Category)
	})

	t.Run("defaults can be dropped", func(t *testing.T) {
		p, err := LoadPolicy(strings.NewReader("defaults: false\n"))
		require.NoError(t, err)
		assert.Equal(t, CategoryCritical,
			p.RequiresConfirmation(models.StatusReady, models.StatusDelivered, id.RoleDrafter).Category)
	})

	t.Run("reversion overrides are rejected", func(t *testing.T) {
		doc := "rules:\n  - {role: ADMIN, from: READY, to: IN_PROGRESS, confirmation: none}\n"
		_, err := LoadPolicy(strings.NewReader(doc))
		assert.Error(t, err)
	})

	t.Run("invalid edge is rejected", func(t *testing.T) {
		doc := "rules:\n  - {role: ADMIN, from: RECEIVED, to: DELIVERED, confirmation: none}\n"
		_, err := LoadPolicy(strings.NewReader(doc))
		assert.Error(t, err)
	})

	t.Run("unknown confirmation is rejected", func(t *testing.T) {
		doc := "rules:\n  - {role: ADMIN, from: RECEIVED, to: IN_PROGRESS, confirmation: maybe}\n"
		_, err := LoadPolicy(strings.NewReader(doc))
		assert.Error(t, err)
	})

	t.Run("empty document yields defaults", func(t *testing.T) {
		p, err := LoadPolicy(strings.NewReader(""))
		require.NoError(t, err)
		assert.Equal(t, CategoryDirectDelivery,
			p.RequiresConfirmation(models.StatusReady, models.StatusDelivered, id.RoleArchive).Category)
	})
}
