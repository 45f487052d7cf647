// normalize.go - Text normalization and candidate line extraction

package processor

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// candidateLinePattern accepts lines made only of Hangul syllables, Latin
// letters, digits, whitespace and hyphens. Whitespace includes Unicode
// space separators such as NBSP and the ideographic space U+3000, which
// OCR engines emit between Korean words. Pure digit lines (barcodes, lot
// numbers) also pass.
var candidateLinePattern = regexp.MustCompile(`^[가-힣a-zA-Z0-9\p{Zs}\t\n\v\f\r\x{2028}\x{2029}\x{FEFF}\-]+$`)

// ExtractCandidates splits recognized text into lines, trims them and keeps
// the ones that look like a product name. Order follows the source text.
func ExtractCandidates(text string) []string {
	candidates := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if candidateLinePattern.MatchString(line) {
			candidates = append(candidates, line)
		}
	}
	return candidates
}

// Normalize removes all whitespace, lowercases and folds to NFC so that
// Hangul typed as jamo sequences compares equal to precomposed syllables.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(strings.ToLower(s))
}
