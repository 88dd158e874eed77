package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims and lowercases", []string{"  FOO ", "Bar"}, []string{"foo", "bar"}},
		{"case-insensitive duplicates", []string{"ABC-1", "abc-1", " Abc-1 "}, []string{"abc-1"}},
		{"removes empty strings", []string{"", "  ", "x"}, []string{"x"}},
		{"preserves order", []string{"c", "a", "b", "a"}, []string{"c", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}
