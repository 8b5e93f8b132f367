package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/jokebook/pkg/jokebook/internalerr"
)

// Lexicon stores the static comedy vocabulary:
// - Categories: weighted keyword lists used by the category classifier
// - Style cues: tag -> trigger substrings (counted)
// - Tones: tone -> trigger substrings (counted)
// - Craft signals: signal -> trigger substrings (presence only)
//
// A Lexicon is read-only once built. It is shared by reference between
// the classifier and the style analyzer and is safe for concurrent use.
type Lexicon struct {
	categories []Category
	byName     map[string]int
	styleCues  []Cue
	tones      []Cue
	craft      []Cue
}

// Category is one entry of the comedic taxonomy.
type Category struct {
	Name       string
	BaseWeight float64
	Keywords   []Keyword
}

// Keyword is a weighted category trigger matched on word boundaries.
type Keyword struct {
	Term   string
	Weight float64

	pattern *regexp.Regexp
}

// Cue maps a style tag, tone or craft signal to its trigger substrings.
type Cue struct {
	Name string
	Cues []string
}

//go:embed default.yaml
var defaultYAML []byte

var loadDefault = sync.OnceValue(func() *Lexicon {
	lex, err := Parse(defaultYAML)
	if err != nil {
		panic("lexicon: embedded default: " + err.Error())
	}
	return lex
})

// Default returns the embedded lexicon. It is parsed once per process.
func Default() *Lexicon {
	return loadDefault()
}

type fileFormat struct {
	Categories []struct {
		Name       string  `yaml:"name"`
		BaseWeight float64 `yaml:"base_weight"`
		Keywords   []struct {
			Term   string  `yaml:"term"`
			Weight float64 `yaml:"weight"`
		} `yaml:"keywords"`
	} `yaml:"categories"`
	StyleCues    []Cue `yaml:"style_cues"`
	Tones        []Cue `yaml:"tones"`
	CraftSignals []Cue `yaml:"craft_signals"`
}

// LoadFromYAML loads a lexicon from a YAML file.
//
// Expected format:
//
//	categories:
//	  - name: Puns
//	    base_weight: 1.0
//	    keywords:
//	      - {term: pun, weight: 1.0}
//	style_cues:
//	  - name: Wordplay
//	    cues: [pun, play on words]
//	tones:
//	  - name: Playful
//	    cues: [silly, haha]
//	craft_signals:
//	  - name: Callback
//	    cues: [like i said]
//
// Notes:
// - All terms and cues are lowercased
// - A cue name listed twice is merged (union of cues, first-seen order)
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}
	return lex, nil
}

// Parse builds a lexicon from YAML bytes and validates it.
func Parse(data []byte) (*Lexicon, error) {
	var raw fileFormat
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	lex := &Lexicon{byName: make(map[string]int, len(raw.Categories))}
	for _, rc := range raw.Categories {
		name := strings.TrimSpace(rc.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category with empty name", internalerr.ErrInvalidConfig)
		}
		if _, dup := lex.byName[name]; dup {
			return nil, fmt.Errorf("%w: category %q defined twice", internalerr.ErrInvalidConfig, name)
		}
		if rc.BaseWeight <= 0 {
			return nil, fmt.Errorf("%w: category %q base weight must be positive", internalerr.ErrInvalidConfig, name)
		}

		cat := Category{Name: name, BaseWeight: rc.BaseWeight}
		for _, rk := range rc.Keywords {
			if rk.Weight <= 0 || rk.Weight > 1 {
				return nil, fmt.Errorf("%w: keyword %q in %q: weight %v outside (0,1]",
					internalerr.ErrInvalidConfig, rk.Term, name, rk.Weight)
			}
			kw, ok := newKeyword(rk.Term, rk.Weight)
			if !ok {
				continue
			}
			cat.Keywords = append(cat.Keywords, kw)
		}

		lex.byName[name] = len(lex.categories)
		lex.categories = append(lex.categories, cat)
	}

	lex.styleCues = mergeCues(raw.StyleCues)
	lex.tones = mergeCues(raw.Tones)
	lex.craft = mergeCues(raw.CraftSignals)

	return lex, nil
}

func newKeyword(term string, weight float64) (Keyword, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return Keyword{}, false
	}
	kw := Keyword{Term: term, Weight: weight}
	// A pattern that fails to compile leaves pattern nil; Match then falls
	// back to plain containment.
	if re, err := regexp.Compile(`(?i)` + wordBoundaries(term)); err == nil {
		kw.pattern = re
	}
	return kw, true
}

// wordBoundaries quotes term and anchors each end with \b only where that
// end is a word character; "c++" must still match before a space.
func wordBoundaries(term string) string {
	pat := regexp.QuoteMeta(term)
	if isWordByte(term[0]) {
		pat = `\b` + pat
	}
	if isWordByte(term[len(term)-1]) {
		pat += `\b`
	}
	return pat
}

// isWordByte mirrors the ASCII \w class used by regexp's \b.
func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// mergeCues lowercases cues and folds repeated names into the first
// occurrence, keeping every cue from every entry.
func mergeCues(entries []Cue) []Cue {
	var out []Cue
	index := make(map[string]int)
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Cue{Name: name})
		}
		for _, c := range e.Cues {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" || containsString(out[i].Cues, c) {
				continue
			}
			out[i].Cues = append(out[i].Cues, c)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Match reports whether the keyword occurs in text as a whole word,
// ignoring case.
func (k Keyword) Match(text string) bool {
	if k.pattern == nil {
		return strings.Contains(strings.ToLower(text), k.Term)
	}
	return k.pattern.MatchString(text)
}

// WeightSum returns the total keyword weight of the category, floored at 1.0.
func (c Category) WeightSum() float64 {
	sum := 0.0
	for _, kw := range c.Keywords {
		sum += kw.Weight
	}
	if sum < 1.0 {
		return 1.0
	}
	return sum
}

// HasTerm reports whether term is one of the category's keywords.
func (c Category) HasTerm(term string) bool {
	for _, kw := range c.Keywords {
		if kw.Term == term {
			return true
		}
	}
	return false
}

// Categories returns the taxonomy in definition order. Callers must not
// modify the returned slice.
func (l *Lexicon) Categories() []Category { return l.categories }

// Category looks up a category by exact name.
func (l *Lexicon) Category(name string) (Category, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Category{}, false
	}
	return l.categories[i], true
}

// StyleCues returns the style tag cues in definition order.
func (l *Lexicon) StyleCues() []Cue { return l.styleCues }

// Tones returns the tone cues in definition order.
func (l *Lexicon) Tones() []Cue { return l.tones }

// CraftSignals returns the craft signal cues in definition order.
func (l *Lexicon) CraftSignals() []Cue { return l.craft }

// Stats returns counts describing the lexicon contents.
func (l *Lexicon) Stats() LexiconStats {
	stats := LexiconStats{
		Categories:   len(l.categories),
		StyleTags:    len(l.styleCues),
		Tones:        len(l.tones),
		CraftSignals: len(l.craft),
	}
	for _, c := range l.categories {
		stats.Keywords += len(c.Keywords)
	}
	return stats
}

// LexiconStats holds statistics about lexicon contents.
type LexiconStats struct {
	Categories   int // Number of taxonomy categories
	Keywords     int // Total weighted keywords across categories
	StyleTags    int // Number of style tags after merging
	Tones        int // Number of tones
	CraftSignals int // Number of craft signals
}
