package ingest

import (
	"iter"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minFragmentLen  = 5  // shortest fragment a split strategy keeps
	minSentenceRun  = 25 // sentence buffer length that triggers an emit
	minWholeTextLen = 3  // shortest input the whole-text fallback accepts
)

var (
	numberedMarker = regexp.MustCompile(`(?m)^[ \t]*\d+[.)][ \t]*`)
	blankLine      = regexp.MustCompile(`\n[ \t\r]*\n`)
)

// splitStrategy is one link of the segmentation chain.
type splitStrategy struct {
	name  string
	split func(text string) []string
}

// strategies are tried in order; the first that yields a fragment wins.
var strategies = []splitStrategy{
	{name: "numbered", split: splitNumbered},
	{name: "paragraph", split: splitParagraphs},
	{name: "line", split: splitLines},
	{name: "sentence", split: splitSentences},
	{name: "whole", split: splitWhole},
}

// Segmentation is the outcome of running the strategy chain on one input.
type Segmentation struct {
	Strategy  string
	Fragments []string
}

// Segmenter splits raw recognized text into joke-sized fragments.
// The zero value is ready to use and logs through slog.Default.
type Segmenter struct {
	logger *slog.Logger
}

// NewSegmenter creates a segmenter that traces strategy decisions to logger.
func NewSegmenter(logger *slog.Logger) *Segmenter {
	return &Segmenter{logger: logger}
}

func (s *Segmenter) log() *slog.Logger {
	if s == nil || s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

// Candidates returns a lazy sequence of candidate fragments for raw.
// Nothing is computed until the sequence is ranged over; ranging again
// recomputes the same fragments.
func (s *Segmenter) Candidates(raw string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, frag := range s.Segment(raw).Fragments {
			if !yield(frag) {
				return
			}
		}
	}
}

// Segment runs the strategy chain and reports which strategy produced the
// fragments. An input with no usable text yields an empty Segmentation.
func (s *Segmenter) Segment(raw string) Segmentation {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		s.log().Debug("segment: empty input")
		return Segmentation{}
	}

	for _, strategy := range strategies {
		frags := strategy.split(text)
		if len(frags) == 0 {
			s.log().Debug("segment: strategy yielded nothing", "strategy", strategy.name)
			continue
		}
		s.log().Debug("segment: strategy selected", "strategy", strategy.name, "fragments", len(frags))
		return Segmentation{Strategy: strategy.name, Fragments: frags}
	}
	return Segmentation{}
}

// splitNumbered splits "1." / "2)" style lists. Needs at least two markers.
func splitNumbered(text string) []string {
	locs := numberedMarker.FindAllStringIndex(text, -1)
	if len(locs) < 2 {
		return nil
	}

	var parts []string
	parts = append(parts, text[:locs[0][0]])
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts = append(parts, text[loc[1]:end])
	}
	return keepFragments(parts)
}

func splitParagraphs(text string) []string {
	parts := blankLine.Split(text, -1)
	if countNonBlank(parts) < 2 {
		return nil
	}
	return keepFragments(parts)
}

func splitLines(text string) []string {
	parts := strings.Split(text, "\n")
	if countNonBlank(parts) < 2 {
		return nil
	}
	return keepFragments(parts)
}

// splitSentences groups short sentences until each group is long enough
// to plausibly hold a setup and punchline.
func splitSentences(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var out []string
	var buf strings.Builder
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		buf.WriteString(sentence)
		buf.WriteString(". ")
		if utf8.RuneCountInString(buf.String()) >= minSentenceRun {
			out = append(out, strings.TrimSpace(buf.String()))
			buf.Reset()
		}
	}
	if rest := strings.TrimSpace(buf.String()); utf8.RuneCountInString(rest) >= minFragmentLen {
		out = append(out, rest)
	}
	return out
}

func splitWhole(text string) []string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minWholeTextLen {
		return nil
	}
	return []string{text}
}

// keepFragments trims parts and drops the ones shorter than minFragmentLen.
func keepFragments(parts []string) []string {
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) >= minFragmentLen {
			out = append(out, p)
		}
	}
	return out
}

func countNonBlank(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
