package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "notaria/pkg/domain-errors"
)

func TestParseDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", true},
		{"nil uuid", uuid.Nil.String(), true},
		{"not a uuid", "DOC-2024-001", true},
		{"sql injection attempt", "'; DROP TABLE documents;--", true},
		{"oversized", strings.Repeat("a", 500), true},
		{"uppercase", "550E8400-E29B-41D4-A716-446655440000", false},
		{"lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocumentID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIDTextRoundTrip(t *testing.T) {
	id := NewDocumentID()
	b, err := id.MarshalText()
	require.NoError(t, err)

	var back DocumentID
	require.NoError(t, back.UnmarshalText(b))
	assert.Equal(t, id, back)
}

func TestAllIDParsersAgree(t *testing.T) {
	for _, input := range []string{"", "invalid", uuid.Nil.String(), uuid.NewString()} {
		_, errDoc := ParseDocumentID(input)
		_, errGroup := ParseGroupID(input)
		_, errActor := ParseActorID(input)
		_, errSession := ParseSessionID(input)
		assert.Equal(t, errDoc == nil, errGroup == nil, input)
		assert.Equal(t, errDoc == nil, errActor == nil, input)
		assert.Equal(t, errDoc == nil, errSession == nil, input)
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("matrizador")
	require.NoError(t, err)
	assert.Equal(t, RoleDrafter, r)

	r, err = ParseRole(" ADMIN ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("notary")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNilIDTextRoundTrip(t *testing.T) {
	b, err := GroupID{}.MarshalText()
	require.NoError(t, err)
	assert.Empty(t, b)

	var back GroupID
	require.NoError(t, back.UnmarshalText(b))
	assert.True(t, back.IsNil())

	assert.Error(t, back.UnmarshalText([]byte("not-a-uuid")))
}
