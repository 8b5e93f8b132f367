package classify

import (
	"sort"
	"strings"

	"github.com/cognicore/jokebook/pkg/jokebook/lexicon"
)

const maxStyleTags = 4

// StyleAnalysis describes how a joke is told rather than what it is about.
type StyleAnalysis struct {
	Tags           []string // up to four style tags, most cues first
	Tone           string   // dominant tone, empty if none detected
	CraftSignals   []string // craft techniques present, in lexicon order
	StructureScore float64  // 0–1 heuristic for how joke-shaped the text is
	Hook           string   // first tag, else tone; used in reasoning strings
}

// Analyzer scores text against the style, tone and craft cue tables.
type Analyzer struct {
	lex *lexicon.Lexicon
}

// NewAnalyzer creates a style analyzer. A nil lexicon means lexicon.Default.
func NewAnalyzer(lex *lexicon.Lexicon) *Analyzer {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Analyzer{lex: lex}
}

type cueHits struct {
	name string
	hits int
}

// AnalyzeStyle expects normalized text (see ingest.Normalize).
func (a *Analyzer) AnalyzeStyle(text string) StyleAnalysis {
	text = strings.ToLower(text)

	var out StyleAnalysis

	tags := countCues(text, a.lex.StyleCues())
	for i := 0; i < len(tags) && i < maxStyleTags; i++ {
		out.Tags = append(out.Tags, tags[i].name)
	}

	if tones := countCues(text, a.lex.Tones()); len(tones) > 0 {
		out.Tone = tones[0].name
	}

	for _, signal := range a.lex.CraftSignals() {
		for _, cue := range signal.Cues {
			if strings.Contains(text, cue) {
				out.CraftSignals = append(out.CraftSignals, signal.Name)
				break
			}
		}
	}

	out.StructureScore = structureScore(text)

	switch {
	case len(out.Tags) > 0:
		out.Hook = out.Tags[0]
	case out.Tone != "":
		out.Hook = out.Tone
	}
	return out
}

// countCues returns the entries with at least one hit, most hits first and
// ties ordered by name.
func countCues(text string, entries []lexicon.Cue) []cueHits {
	var out []cueHits
	for _, e := range entries {
		n := 0
		for _, cue := range e.Cues {
			n += strings.Count(text, cue)
		}
		if n > 0 {
			out = append(out, cueHits{name: e.Name, hits: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].hits != out[j].hits {
			return out[i].hits > out[j].hits
		}
		return out[i].name < out[j].name
	})
	return out
}

func structureScore(text string) float64 {
	score := 0.0
	if strings.Contains(text, "setup") {
		score += 0.15
	}
	if strings.Contains(text, "punchline") {
		score += 0.15
	}
	if strings.Contains(text, "tag") {
		score += 0.1
	}
	score += min(0.2, 0.05*float64(strings.Count(text, "?")))
	return clamp01(score)
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
