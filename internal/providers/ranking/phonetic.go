package ranking

// soundexDigits maps A..Z to their Soundex class. '0' marks letters that are
// dropped (vowels, H, W, Y).
const soundexDigits = "01230120022455012623010202"

// Phonetic returns a four character Soundex code for a place name. The input
// is folded first so accented letters map to their base letter. Every word
// contributes: non-letters separate like vowels do, so "Vila Mariana" and
// "Vila Madalena" get different codes. Empty or letterless input yields "".
func Phonetic(s string) string {
	folded := Fold(s)

	code := make([]byte, 0, 4)
	var last byte
	for i := 0; i < len(folded) && len(code) < 4; i++ {
		ch := folded[i]
		if ch < 'A' || ch > 'Z' {
			last = '0'
			continue
		}
		digit := soundexDigits[ch-'A']

		if len(code) == 0 {
			code = append(code, ch)
			last = digit
			continue
		}

		switch {
		case ch == 'H' || ch == 'W':
			// H and W do not separate equal codes.
		case digit == '0':
			last = '0'
		case digit != last:
			code = append(code, digit)
			last = digit
		}
	}

	if len(code) == 0 {
		return ""
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

// SameSound reports whether two non-empty names share a phonetic code.
func SameSound(a, b string) bool {
	pa := Phonetic(a)
	return pa != "" && pa == Phonetic(b)
}
