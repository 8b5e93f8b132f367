package ingest

import (
	"strings"
	"testing"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("My Dog  is so\nlazy.", 0)
	b := Fingerprint("my dog is so lazy.", 0)
	if a != b {
		t.Errorf("fingerprints should match: %q vs %q", a, b)
	}

	long := strings.Repeat("x", 300)
	if got := len([]rune(Fingerprint(long, 0))); got != DefaultFingerprintLen {
		t.Errorf("fingerprint length = %d, want %d", got, DefaultFingerprintLen)
	}
	if got := len([]rune(Fingerprint(long, 10))); got != 10 {
		t.Errorf("custom prefix length = %d, want 10", got)
	}
}

func TestIsDuplicate(t *testing.T) {
	existing := []Entry{
		{Title: "Lazy dog", Content: "My dog is so lazy he filed for workers comp."},
		{Title: "", Content: "I told my wife she was drawing her eyebrows too high."},
	}

	cases := []struct {
		name    string
		content string
		title   string
		want    bool
	}{
		{"same content different spacing", "  MY DOG is so lazy\nhe filed for workers comp.", "", true},
		{"same title", "Completely different text here.", "  lazy   DOG ", true},
		{"new joke", "Why did the chicken cross the road?", "Chicken", false},
		{"empty title ignored", "Another new joke entirely.", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDuplicate(tc.content, tc.title, existing); got != tc.want {
				t.Errorf("IsDuplicate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIsDuplicateEmptyExisting(t *testing.T) {
	if IsDuplicate("anything at all", "title", nil) {
		t.Error("nothing can duplicate an empty collection")
	}
}

func TestDuplicateIndexGrows(t *testing.T) {
	idx := NewDuplicateIndex(nil)
	joke := "My dog is so lazy he filed for workers comp."

	if idx.Contains(joke, "") {
		t.Fatal("empty index should not contain anything")
	}
	idx.Add(joke, "")
	if !idx.Contains(joke, "") {
		t.Error("second import of the same content should be a duplicate")
	}
	if !idx.Contains("my dog is so LAZY he filed for workers comp.", "") {
		t.Error("case-insensitive repeat should be a duplicate")
	}

	idx.Add(joke, "")
	if idx.Len() != 1 {
		t.Errorf("re-adding should not grow the index, len=%d", idx.Len())
	}
}

func TestDuplicateIndexMatchesExistingTitles(t *testing.T) {
	idx := NewDuplicateIndex([]Entry{{Title: "Airport Bit", Content: "Have you ever noticed airports?"}})
	if !idx.Contains("something else", "airport bit") {
		t.Error("title match should be a duplicate")
	}
	if idx.Contains("", "") {
		t.Error("empty content and title should never match")
	}
}

func TestDuplicateIndexPrefixLength(t *testing.T) {
	base := "Have you ever noticed that airports are just malls with anxiety"
	idx := NewDuplicateIndex([]Entry{{Content: base + " and gates."}}, WithPrefixLength(30))

	if !idx.Contains(base+" and a different ending entirely.", "") {
		t.Error("shared 30-rune prefix should be a duplicate")
	}
}

func TestDuplicateIndexSimilarity(t *testing.T) {
	existing := []Entry{{Content: "Why did the chicken cross the road? To get to the other side!"}}
	near := "Why did the chicken cross the road? To get to the other side."

	exact := NewDuplicateIndex(existing)
	if exact.Contains(near, "") {
		t.Error("exact mode should not flag near duplicates")
	}

	fuzzy := NewDuplicateIndex(existing, WithSimilarity(0.95))
	if !fuzzy.Contains(near, "") {
		t.Error("fuzzy mode should flag near duplicates")
	}
	if fuzzy.Contains("Knock knock. Who's there? Banana.", "") {
		t.Error("unrelated joke should not be flagged")
	}
}
