package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "notaria/pkg/domain"
	dErrors "notaria/pkg/domain-errors"
)

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("listo")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st)

	st, err = ParseStatus(" in_progress ")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st)

	_, err = ParseStatus("ARCHIVED")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ParseStatus("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCloneIsDeep(t *testing.T) {
	doc := &Document{ID: id.NewDocumentID(), Delivery: &Delivery{DeliveredTo: "Ana"}}
	c := doc.Clone()
	c.Delivery.DeliveredTo = "Luis"
	assert.Equal(t, "Ana", doc.Delivery.DeliveredTo)
}

func TestGroupFieldsRoundTrip(t *testing.T) {
	doc := &Document{IsGrouped: true, GroupID: id.NewGroupID(), RetrievalCode: "4821"}
	snap := doc.GroupFields()

	doc.ClearGroupFields()
	assert.False(t, doc.IsGrouped)
	assert.Empty(t, doc.RetrievalCode)

	doc.ApplyGroupFields(snap)
	assert.Equal(t, snap, doc.GroupFields())

	doc.Ungroup()
	assert.Equal(t, "4821", doc.RetrievalCode)
	assert.True(t, doc.GroupID.IsNil())
}
