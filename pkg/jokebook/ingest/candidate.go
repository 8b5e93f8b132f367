package ingest

import (
	"strings"
	"unicode/utf8"
)

// Candidate is a fragment suspected to hold one complete joke. It lives
// only for the duration of an import and is never persisted itself.
type Candidate struct {
	Content        string
	SuggestedTitle string
	IsComplete     bool
	Confidence     float64
	Issues         []string
	SuggestedFix   string

	Valid     bool
	Duplicate bool
	Strategy  string // segmentation strategy that produced the fragment
}

// Issue descriptions attached to candidates.
const (
	IssueTooShort   = "too short to be a complete joke"
	IssueEllipsis   = "contains an ellipsis; text may be cut off"
	IssueOpenEnding = "ends mid-sentence without closing punctuation"
	IssueNoTitle    = "no usable title"
	IssueDuplicate  = "matches a joke already in the collection"
)

// Assess validates fragment and records why it may be unusable, so that
// callers can route it to a review queue instead of dropping it.
func Assess(fragment string) Candidate {
	text := strings.TrimSpace(fragment)
	v := Validate(text)

	c := Candidate{
		Content:        text,
		SuggestedTitle: v.Title,
		Valid:          v.IsValid,
		IsComplete:     IsCompleteJoke(text),
	}

	length := utf8.RuneCountInString(text)
	if length < minJokeLen {
		c.addIssue(IssueTooShort, "merge it with the neighbouring fragment or expand the setup")
	}
	if hasEllipsis(text) {
		c.addIssue(IssueEllipsis, "fill in the words the ellipsis stands for")
	}
	if endsOpen(text) && length < openEndedMaxLen {
		c.addIssue(IssueOpenEnding, "finish the punchline and add closing punctuation")
	}
	if length >= minJokeLen && !v.IsValid && len(c.Issues) == 0 {
		c.addIssue(IssueNoTitle, "add a short first sentence to use as a title")
	}
	if c.SuggestedTitle == "" {
		c.SuggestedTitle = fallbackTitle(text)
	}

	c.Confidence = c.score(hasTerminalPunctuation(text))
	return c
}

// MarkDuplicate flags the candidate as already present in the collection.
func (c *Candidate) MarkDuplicate() {
	if c.Duplicate {
		return
	}
	c.Duplicate = true
	c.addIssue(IssueDuplicate, "")
	c.Confidence = clamp01(c.Confidence - 0.1)
}

// NeedsReview reports whether a user should look at the candidate before
// it is accepted.
func (c Candidate) NeedsReview() bool {
	return !c.Valid || !c.IsComplete
}

func (c *Candidate) addIssue(issue, fix string) {
	c.Issues = append(c.Issues, issue)
	if c.SuggestedFix == "" && fix != "" {
		c.SuggestedFix = fix
	}
}

func (c Candidate) score(terminal bool) float64 {
	conf := 0.4
	if c.Valid {
		conf += 0.3
	}
	if c.IsComplete {
		conf += 0.2
	}
	if terminal {
		conf += 0.1
	}
	conf -= 0.1 * float64(len(c.Issues))
	return clamp01(conf)
}

// fallbackTitle gives review-queue candidates something to display.
func fallbackTitle(text string) string {
	text = collapseSpace(text)
	if utf8.RuneCountInString(text) > fallbackTitleLen {
		text = string([]rune(text)[:fallbackTitleLen])
	}
	return strings.TrimSpace(text)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
