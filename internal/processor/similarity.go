// similarity.go - Dice coefficient over character bigrams

package processor

import (
	"strings"
	"unicode"
)

// Similarity returns the Sørensen–Dice coefficient of the two strings'
// character bigram multisets, in [0, 1]. Whitespace is ignored. Equal
// strings score 1; strings shorter than two characters score 0 otherwise.
func Similarity(a, b string) float64 {
	a = stripSpace(a)
	b = stripSpace(b)

	if a == b {
		return 1
	}

	ra := []rune(a)
	rb := []rune(b)
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	bigrams := make(map[string]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		bigrams[string(ra[i:i+2])]++
	}

	intersection := 0
	for i := 0; i < len(rb)-1; i++ {
		bg := string(rb[i : i+2])
		if count := bigrams[bg]; count > 0 {
			bigrams[bg] = count - 1
			intersection++
		}
	}

	return 2.0 * float64(intersection) / float64(len(ra)+len(rb)-2)
}

func stripSpace(s string) string {
	if !strings.ContainsFunc(s, unicode.IsSpace) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
