package transition

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notaria/internal/document/models"
	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
)

var allStatuses = []models.Status{
	models.StatusReceived, models.StatusInProgress, models.StatusReady, models.StatusDelivered,
}

func TestIsValid_Graph(t *testing.T) {
	legal := map[[2]models.Status]bool{
		{models.StatusReceived, models.StatusInProgress}: true,
		{models.StatusInProgress, models.StatusReady}:    true,
		{models.StatusReady, models.StatusDelivered}:     true,
		{models.StatusInProgress, models.StatusReceived}: true,
		{models.StatusReady, models.StatusInProgress}:    true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			assert.Equal(t, legal[[2]models.Status{from, to}], IsValid(from, to), "%s -> %s", from, to)
		}
	}
}

func TestDeliveredIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.StatusDelivered))
	for _, to := range allStatuses {
		assert.False(t, IsValid(models.StatusDelivered, to))
	}

	err := Validate(models.StatusDelivered, models.StatusInProgress, "client came back")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "DELIVERED to IN_PROGRESS")
}

func TestValidate(t *testing.T) {
	t.Run("reversion without reason", func(t *testing.T) {
		err := Validate(models.StatusReady, models.StatusInProgress, "  ")
		require.Error(t, err)
		assert.Equal(t, "reason required", err.Error())
	})

	t.Run("reversion with reason", func(t *testing.T) {
		assert.NoError(t, Validate(models.StatusReady, models.StatusInProgress, "wrong client"))
	})

	t.Run("skipping a step names the pair", func(t *testing.T) {
		err := Validate(models.StatusReceived, models.StatusReady, "")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "RECEIVED to READY"))
	})

	t.Run("backward move without reason is refused for the reason first", func(t *testing.T) {
		err := Validate(models.StatusReady, models.StatusReceived, "")
		require.Error(t, err)
		assert.Equal(t, "reason required", err.Error())
	})

	t.Run("two steps back is invalid even with a reason", func(t *testing.T) {
		err := Validate(models.StatusReady, models.StatusReceived, "start over")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("same status is invalid", func(t *testing.T) {
		assert.Error(t, Validate(models.StatusReady, models.StatusReady, ""))
	})
}

func TestCanRoleTarget(t *testing.T) {
	assert.True(t, CanRoleTarget(id.RoleAdmin, models.StatusReceived))
	assert.False(t, CanRoleTarget(id.RoleCashier, models.StatusReady))
	assert.True(t, CanRoleTarget(id.RoleReception, models.StatusDelivered))
	assert.False(t, CanRoleTarget(id.RoleReception, models.StatusReceived))
	assert.True(t, CanRoleTarget(id.RoleDrafter, models.StatusReceived))
	assert.True(t, RequiresOwnership(id.RoleDrafter))
	assert.False(t, RequiresOwnership(id.RoleArchive))
}
