package grain

import (
	"strings"
)

// Format renders the amount for humans: thousands separators in the integer
// part, exactly digits fractional digits (truncated, never rounded), and an
// optional suffix. digits outside [0, Decimals] is clamped.
//
//	MustParse("1234.567").Format(2, "g") == "1,234.56g"
func (a Amount) Format(digits int, suffix string) string {
	if digits < 0 {
		digits = 0
	}
	if digits > Decimals {
		digits = Decimals
	}

	s := a.d.Truncate(int32(digits)).StringFixed(int32(digits))
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var b strings.Builder
	b.Grow(len(s) + len(intPart)/3 + len(suffix))
	for i := 0; i < len(intPart); i++ {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(intPart[i])
	}
	b.WriteString(fracPart)
	b.WriteString(suffix)
	return b.String()
}
