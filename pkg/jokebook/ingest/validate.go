package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
)

const (
	minJokeLen       = 15
	openEndedMaxLen  = 100
	minTitleLen      = 5
	fallbackTitleLen = 50
	longJokeLen      = 50
	minAnswerLen     = 3
)

var wordPattern = regexp.MustCompile(`[a-zA-Z]+`)

// jokeMarkers are words that tend to appear in setups and punchlines.
var jokeMarkers = []string{"why", "how", "what", "when", "said", "asked", "replied", "walks", "because"}

// jokeMarkerStems holds the stemmed markers so that inflections
// ("walked", "asking") count as well.
var jokeMarkerStems = func() map[string]struct{} {
	stems := make(map[string]struct{}, len(jokeMarkers))
	for _, m := range jokeMarkers {
		stems[stem(m)] = struct{}{}
	}
	return stems
}()

// Validation is the verdict for a single fragment.
type Validation struct {
	Title   string
	IsValid bool
}

// Validate decides whether fragment is usable as a joke and derives a title.
func Validate(fragment string) Validation {
	text := strings.TrimSpace(fragment)
	if utf8.RuneCountInString(text) < minJokeLen {
		return Validation{}
	}
	if looksIncomplete(text) {
		return Validation{}
	}
	title, ok := deriveTitle(text)
	if !ok {
		return Validation{}
	}
	return Validation{Title: title, IsValid: true}
}

// FilterValid keeps the fragments that pass Validate, in order.
func FilterValid(fragments []string) []string {
	var out []string
	for _, f := range fragments {
		if Validate(f).IsValid {
			out = append(out, f)
		}
	}
	return out
}

// IsCompleteJoke is a softer heuristic than Validate. It is used to rank
// review-queue candidates, not to reject them.
func IsCompleteJoke(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	terminal := hasTerminalPunctuation(text)

	if i := strings.Index(text, "?"); i >= 0 {
		answer := strings.TrimSpace(text[i+1:])
		if utf8.RuneCountInString(answer) >= minAnswerLen {
			return true
		}
	}
	if countSentences(text) >= 2 {
		return true
	}
	if countLines(text) >= 2 {
		return true
	}
	if terminal && hasJokeMarker(text) {
		return true
	}
	return terminal && utf8.RuneCountInString(text) >= longJokeLen
}

func looksIncomplete(text string) bool {
	if hasEllipsis(text) {
		return true
	}
	return endsOpen(text) && utf8.RuneCountInString(text) < openEndedMaxLen
}

func hasEllipsis(text string) bool {
	return strings.Contains(text, "...") || strings.Contains(text, "…")
}

// endsOpen reports whether text stops on a letter without closing punctuation.
func endsOpen(text string) bool {
	last, _ := utf8.DecodeLastRuneInString(text)
	return unicode.IsLetter(last) && !hasTerminalPunctuation(text)
}

func hasTerminalPunctuation(text string) bool {
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?")
}

// deriveTitle takes the first sentence, falling back to the first 50 runes.
func deriveTitle(text string) (string, bool) {
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		if title := collapseSpace(text[:i+1]); utf8.RuneCountInString(title) >= minTitleLen {
			return title, true
		}
	}

	title := text
	if utf8.RuneCountInString(title) > fallbackTitleLen {
		title = string([]rune(title)[:fallbackTitleLen])
	}
	title = collapseSpace(title)
	if utf8.RuneCountInString(title) < minTitleLen {
		return "", false
	}
	return title, true
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func countSentences(text string) int {
	n := 0
	for _, s := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

func countLines(text string) int {
	return countNonBlank(strings.Split(text, "\n"))
}

func hasJokeMarker(text string) bool {
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if _, ok := jokeMarkerStems[stem(w)]; ok {
			return true
		}
	}
	return false
}

// stem reduces word to its English Snowball stem, or returns it unchanged
// when stemming fails.
func stem(word string) string {
	stemmed, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stemmed
}
