package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseDocumentID checks parsing never panics and accepted IDs round-trip.
func FuzzParseDocumentID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("'; DROP TABLE documents;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseDocumentID(input)
		if err == nil {
			back, err2 := ParseDocumentID(id.String())
			if err2 != nil || back != id {
				t.Errorf("accepted ID %q does not round-trip", input)
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}
