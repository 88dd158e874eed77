package notify

import "strings"

const countryPrefix = "593"

// NormalizePhone converts a client phone into E.164. Local ten-digit numbers
// with a trunk zero and bare nine-digit mobiles get the country prefix.
func NormalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")
	plus := strings.HasPrefix(s, "+")

	var digits strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.' || r == '+':
		default:
			return "", false
		}
	}
	d := digits.String()

	switch {
	case plus && len(d) >= 8 && len(d) <= 15:
		return "+" + d, true
	case len(d) == 10 && d[0] == '0':
		return "+" + countryPrefix + d[1:], true
	case len(d) == 9 && d[0] != '0':
		return "+" + countryPrefix + d, true
	case len(d) == 12 && strings.HasPrefix(d, countryPrefix):
		return "+" + d, true
	default:
		return "", false
	}
}
