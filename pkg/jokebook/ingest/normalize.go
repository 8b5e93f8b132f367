package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize prepares text for matching: NFC composition, lowercase,
// typographic quotes folded to ASCII, newlines folded into spaces and
// whitespace runs collapsed.
func Normalize(text string) string {
	text = norm.NFC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(unicode.ToLower(foldQuote(r)))
	}
	return b.String()
}

// foldQuote maps typographic quotes to their ASCII forms so lexicon terms
// like "who's there" match OCR and smart-punctuation input.
func foldQuote(r rune) rune {
	switch r {
	case '\u2018', '\u2019', '\u201B', '\u2032':
		return '\''
	case '\u201C', '\u201D', '\u201F', '\u2033':
		return '"'
	}
	return r
}
