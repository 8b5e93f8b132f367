// Package classify scores jokes against the comedy lexicon.
//
// Two independent scorers share one read-only lexicon:
//   - Classifier: weighted keyword coverage per taxonomy category, with a
//     length boost and a suggestion threshold. Output is multi-label and
//     never empty; text that matches nothing is filed under "Other".
//   - Analyzer: style tags, dominant tone, craft signals and a structure
//     score computed from plain substring cues.
//
// Both are stateless after construction and safe for concurrent use.
package classify

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/jokebook/pkg/jokebook/lexicon"
)

const (
	// OtherCategory is the catch-all bucket.
	OtherCategory = "Other"

	// FallbackConfidence is assigned to the synthetic Other match.
	FallbackConfidence = 0.2

	fallbackReasoning = "No strong category signals; filed under Other for review."

	maxLengthBoost     = 0.15
	lengthBoostDivisor = 800.0
)

// Thresholds controls which matches are emitted and how they are used.
type Thresholds struct {
	Suggestion    float64 // minimum confidence for a match to be emitted
	AutoOrganize  float64 // minimum confidence for a solid folder assignment
	MultiCategory float64 // minimum confidence for a secondary category tag
	OtherFloor    float64 // below this the organizer forces Other
}

// DefaultThresholds returns the standard threshold set.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Suggestion:    0.25,
		AutoOrganize:  0.55,
		MultiCategory: 0.35,
		OtherFloor:    0.15,
	}
}

// CategoryMatch is one category suggestion for a piece of text.
type CategoryMatch struct {
	Category        string
	Confidence      float64
	Reasoning       string
	MatchedKeywords []string

	StyleTags      []string
	EmotionalTone  string
	CraftSignals   []string
	StructureScore float64

	baseWeight float64
}

// Result bundles category matches with the style analysis they carry.
type Result struct {
	Matches []CategoryMatch
	Style   StyleAnalysis
}

// Primary returns the highest-confidence match.
func (r Result) Primary() CategoryMatch {
	return r.Matches[0]
}

// Classifier scores text against the lexicon taxonomy.
type Classifier struct {
	lex        *lexicon.Lexicon
	thresholds Thresholds
	analyzer   *Analyzer
}

// NewClassifier creates a classifier. A nil lexicon means lexicon.Default.
func NewClassifier(lex *lexicon.Lexicon, thresholds Thresholds) *Classifier {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Classifier{
		lex:        lex,
		thresholds: thresholds,
		analyzer:   NewAnalyzer(lex),
	}
}

// Thresholds returns the thresholds the classifier was built with.
func (c *Classifier) Thresholds() Thresholds { return c.thresholds }

// Analyzer returns the style analyzer sharing this classifier's lexicon.
func (c *Classifier) Analyzer() *Analyzer { return c.analyzer }

// Categorize returns matches sorted by descending confidence. The result is
// never empty. text should be normalized (see ingest.Normalize).
func (c *Classifier) Categorize(text string) []CategoryMatch {
	return c.Classify(text).Matches
}

// Classify runs the category scorer and the style analyzer on text.
func (c *Classifier) Classify(text string) Result {
	style := c.analyzer.AnalyzeStyle(text)
	boost := lengthBoost(text)

	var matches []CategoryMatch
	for _, cat := range c.lex.Categories() {
		var score float64
		var hits []string
		for _, kw := range cat.Keywords {
			if kw.Match(text) {
				score += kw.Weight
				hits = append(hits, kw.Term)
			}
		}
		if len(hits) == 0 {
			continue
		}

		confidence := min(1.0, score/cat.WeightSum()+boost)
		if confidence < c.thresholds.Suggestion {
			continue
		}
		matches = append(matches, CategoryMatch{
			Category:        cat.Name,
			Confidence:      confidence,
			MatchedKeywords: hits,
			baseWeight:      cat.BaseWeight,
		})
	}

	if len(matches) == 0 {
		matches = []CategoryMatch{{
			Category:   OtherCategory,
			Confidence: FallbackConfidence,
			Reasoning:  fallbackReasoning,
		}}
	} else {
		sort.SliceStable(matches, func(i, j int) bool {
			a, b := matches[i], matches[j]
			if a.Confidence != b.Confidence {
				return a.Confidence > b.Confidence
			}
			if a.baseWeight != b.baseWeight {
				return a.baseWeight > b.baseWeight
			}
			return a.Category < b.Category
		})
		for i := range matches {
			matches[i].Reasoning = Reasoning(matches[i], style)
		}
	}

	for i := range matches {
		matches[i].StyleTags = style.Tags
		matches[i].EmotionalTone = style.Tone
		matches[i].CraftSignals = style.CraftSignals
		matches[i].StructureScore = style.StructureScore
	}
	return Result{Matches: matches, Style: style}
}

// AboveThreshold returns the categories of matches whose confidence is at
// least threshold, preserving order.
func AboveThreshold(matches []CategoryMatch, threshold float64) []string {
	var out []string
	for _, m := range matches {
		if m.Confidence >= threshold {
			out = append(out, m.Category)
		}
	}
	return out
}

// ConfidenceMap returns category → confidence for matches.
func ConfidenceMap(matches []CategoryMatch) map[string]float64 {
	out := make(map[string]float64, len(matches))
	for _, m := range matches {
		out[m.Category] = m.Confidence
	}
	return out
}

// Band maps a confidence to a human-readable certainty label.
func Band(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return "very confident"
	case confidence >= 0.5:
		return "confident"
	case confidence >= 0.35:
		return "moderately confident"
	default:
		return "suggested"
	}
}

// Reasoning explains a match, e.g.
// "confident Knock-Knock: matched knock knock, who's there; style leans Wordplay".
func Reasoning(m CategoryMatch, style StyleAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", Band(m.Confidence), m.Category)
	if len(m.MatchedKeywords) > 0 {
		fmt.Fprintf(&b, ": matched %s", strings.Join(m.MatchedKeywords, ", "))
	}
	if style.Hook != "" {
		fmt.Fprintf(&b, "; style leans %s", style.Hook)
	}
	return b.String()
}

func lengthBoost(text string) float64 {
	return min(maxLengthBoost, float64(utf8.RuneCountInString(text))/lengthBoostDivisor)
}
