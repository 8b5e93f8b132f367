package ingest

import (
	"github.com/antzucaro/matchr"
)

// DefaultFingerprintLen is the number of normalized runes compared when
// looking for duplicate content.
const DefaultFingerprintLen = 100

// Entry is the part of a stored joke the duplicate detector looks at.
type Entry struct {
	Title   string
	Content string
}

// Fingerprint returns the normalized prefix of content used for duplicate
// detection. A non-positive prefixLen means DefaultFingerprintLen.
func Fingerprint(content string, prefixLen int) string {
	if prefixLen <= 0 {
		prefixLen = DefaultFingerprintLen
	}
	norm := Normalize(content)
	runes := []rune(norm)
	if len(runes) > prefixLen {
		return string(runes[:prefixLen])
	}
	return norm
}

// IsDuplicate reports whether content or title already appears in existing.
// It scans existing once; batch imports should build a DuplicateIndex instead.
func IsDuplicate(content, title string, existing []Entry) bool {
	fp := Fingerprint(content, DefaultFingerprintLen)
	normTitle := Normalize(title)
	for _, e := range existing {
		if fp != "" && Fingerprint(e.Content, DefaultFingerprintLen) == fp {
			return true
		}
		if normTitle != "" && Normalize(e.Title) == normTitle {
			return true
		}
	}
	return false
}

// DuplicateIndex keeps the fingerprints and titles of an existing
// collection in memory so each lookup avoids re-reading the store.
// It is not safe for concurrent use.
type DuplicateIndex struct {
	prefixLen    int
	similarity   float64
	fingerprints map[string]struct{}
	titles       map[string]struct{}
	ordered      []string // fingerprints in insertion order, for fuzzy scans
}

// DuplicateOption configures a DuplicateIndex.
type DuplicateOption func(*DuplicateIndex)

// WithPrefixLength sets how many normalized runes make up a fingerprint.
func WithPrefixLength(n int) DuplicateOption {
	return func(d *DuplicateIndex) {
		if n > 0 {
			d.prefixLen = n
		}
	}
}

// WithSimilarity enables near-duplicate detection: content whose
// fingerprint has a Jaro-Winkler similarity of at least threshold with an
// indexed fingerprint is treated as a duplicate. Zero disables it.
func WithSimilarity(threshold float64) DuplicateOption {
	return func(d *DuplicateIndex) {
		d.similarity = threshold
	}
}

// NewDuplicateIndex indexes existing entries.
func NewDuplicateIndex(existing []Entry, opts ...DuplicateOption) *DuplicateIndex {
	d := &DuplicateIndex{
		prefixLen:    DefaultFingerprintLen,
		fingerprints: make(map[string]struct{}, len(existing)),
		titles:       make(map[string]struct{}, len(existing)),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, e := range existing {
		d.Add(e.Content, e.Title)
	}
	return d
}

// Contains reports whether content or title matches an indexed entry.
func (d *DuplicateIndex) Contains(content, title string) bool {
	if t := Normalize(title); t != "" {
		if _, ok := d.titles[t]; ok {
			return true
		}
	}

	fp := Fingerprint(content, d.prefixLen)
	if fp == "" {
		return false
	}
	if _, ok := d.fingerprints[fp]; ok {
		return true
	}
	if d.similarity <= 0 {
		return false
	}
	for _, other := range d.ordered {
		if matchr.JaroWinkler(fp, other, false) >= d.similarity {
			return true
		}
	}
	return false
}

// Add indexes a new entry so later lookups in the same batch see it.
func (d *DuplicateIndex) Add(content, title string) {
	if fp := Fingerprint(content, d.prefixLen); fp != "" {
		if _, ok := d.fingerprints[fp]; !ok {
			d.fingerprints[fp] = struct{}{}
			d.ordered = append(d.ordered, fp)
		}
	}
	if t := Normalize(title); t != "" {
		d.titles[t] = struct{}{}
	}
}

// Len returns the number of distinct fingerprints indexed.
func (d *DuplicateIndex) Len() int {
	return len(d.fingerprints)
}
