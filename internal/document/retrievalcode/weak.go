package retrievalcode

var commonWeak = map[string]struct{}{
	"1010": {}, "2020": {}, "0123": {}, "3210": {}, "1212": {}, "6969": {},
}

// IsWeak reports whether code is predictable: every digit equal, a strictly
// ascending or descending run, or a common weak code.
func IsWeak(code string) bool {
	if len(code) < 2 {
		return true
	}
	if _, ok := commonWeak[code]; ok {
		return true
	}
	same, asc, desc := true, true, true
	for i := 1; i < len(code); i++ {
		d := int(code[i]) - int(code[i-1])
		same = same && d == 0
		asc = asc && d == 1
		desc = desc && d == -1
	}
	return same || asc || desc
}
