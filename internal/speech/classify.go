package speech

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// pauseGlyphs are the characters scripts use to mark a beat of silence.
const pauseGlyphs = "…‥.-—–―"

// IsSilence reports whether text carries no speakable content, such as an
// empty line or a line made only of ellipses and dashes.
func IsSilence(text string) bool {
	normalized := norm.NFKC.String(text)
	for _, r := range normalized {
		if unicode.IsSpace(r) || strings.ContainsRune(pauseGlyphs, r) {
			continue
		}
		return false
	}
	return true
}
