package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"local with trunk zero", "0991234567", "+593991234567", true},
		{"local with separators", "099-123 4567", "+593991234567", true},
		{"nine digit mobile", "991234567", "+593991234567", true},
		{"already international", "+1 (415) 555-0100", "+14155550100", true},
		{"country code without plus", "593991234567", "+593991234567", true},
		{"too short", "12345", "", false},
		{"letters", "09912abc67", "", false},
		{"blank", "  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
