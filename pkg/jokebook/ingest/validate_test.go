package ingest

import (
	"math"
	"slices"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	long := strings.Repeat("and then the horse kept talking ", 4) + "about taxes"

	cases := []struct {
		name      string
		in        string
		wantValid bool
		wantTitle string
	}{
		{"too short", "Hi.", false, ""},
		{"exactly fourteen", "Fourteen chars", false, ""},
		{"question joke", "Why did the chicken cross the road? To get to the other side!", true, "Why did the chicken cross the road?"},
		{"ellipsis", "I went to the store and then...", false, ""},
		{"unicode ellipsis", "My uncle told me a secret… never mind.", false, ""},
		{"open ending", "This one just keeps going and never ends", false, ""},
		{"long open ending", long, true, strings.TrimSpace(long[:50])},
		{"short first sentence", "Hm. Then I realized something important!", true, "Hm. Then I realized something important!"},
		{"closing paren", "(he never came back to the bar)", true, "(he never came back to the bar)"},
		{"no usable title", "a             .", false, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(tc.in)
			if got.IsValid != tc.wantValid {
				t.Fatalf("Validate(%q).IsValid = %v, want %v", tc.in, got.IsValid, tc.wantValid)
			}
			if got.Title != tc.wantTitle {
				t.Errorf("Validate(%q).Title = %q, want %q", tc.in, got.Title, tc.wantTitle)
			}
		})
	}
}

func TestValidateShortInputsAlwaysInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "Hi.", "Knock knock!", "   padded.      "} {
		if Validate(in).IsValid {
			t.Errorf("Validate(%q) should be invalid", in)
		}
	}
}

func TestFilterValid(t *testing.T) {
	in := []string{
		"Hi.",
		"I told my wife she was drawing her eyebrows too high. She looked surprised.",
		"and then...",
		"My dog is so lazy he filed for workers comp.",
	}
	want := []string{in[1], in[3]}

	if got := FilterValid(in); !slices.Equal(got, want) {
		t.Errorf("FilterValid = %q, want %q", got, want)
	}
	if got := FilterValid(nil); len(got) != 0 {
		t.Errorf("FilterValid(nil) = %q", got)
	}
}

func TestIsCompleteJoke(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Why? Because.", true},
		{"Short one.", false},
		{"I walked into a bar", false},
		{"A man walked into a bar.", true},
		{"She replied instantly.", true},
		{"Line one\nline two", true},
		{"First part. Second part.", true},
		{"An unremarkable statement that is long enough to count.", true},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsCompleteJoke(tc.in); got != tc.want {
			t.Errorf("IsCompleteJoke(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAssessValidJoke(t *testing.T) {
	c := Assess("  Why did the chicken cross the road? To get to the other side!  ")

	if !c.Valid || !c.IsComplete {
		t.Fatalf("expected valid complete candidate, got %+v", c)
	}
	if len(c.Issues) != 0 {
		t.Errorf("expected no issues, got %v", c.Issues)
	}
	if c.SuggestedFix != "" {
		t.Errorf("expected no fix, got %q", c.SuggestedFix)
	}
	if c.Confidence < 0.99 || c.Confidence > 1 {
		t.Errorf("expected confidence ~1.0, got %v", c.Confidence)
	}
	if c.Content != "Why did the chicken cross the road? To get to the other side!" {
		t.Errorf("content should be trimmed, got %q", c.Content)
	}
	if c.NeedsReview() {
		t.Error("valid complete candidate should not need review")
	}
}

func TestAssessTooShort(t *testing.T) {
	c := Assess("Hi.")

	if c.Valid {
		t.Fatal("Hi. should be invalid")
	}
	if !slices.Equal(c.Issues, []string{IssueTooShort}) {
		t.Errorf("issues = %v", c.Issues)
	}
	if c.SuggestedFix == "" {
		t.Error("expected a suggested fix")
	}
	if math.Abs(c.Confidence-0.4) > 1e-9 {
		t.Errorf("confidence = %v, want 0.4", c.Confidence)
	}
	if c.SuggestedTitle != "Hi." {
		t.Errorf("review candidates should still get a display title, got %q", c.SuggestedTitle)
	}
	if !c.NeedsReview() {
		t.Error("invalid candidate needs review")
	}
}

func TestAssessEllipsis(t *testing.T) {
	c := Assess("I went to the store and then...")

	if c.Valid {
		t.Fatal("ellipsis fragment should be invalid")
	}
	if !slices.Contains(c.Issues, IssueEllipsis) {
		t.Errorf("expected ellipsis issue, got %v", c.Issues)
	}
	if c.SuggestedFix != "fill in the words the ellipsis stands for" {
		t.Errorf("unexpected fix %q", c.SuggestedFix)
	}
}

func TestAssessOpenEndingAndNoTitle(t *testing.T) {
	c := Assess("This one just keeps going and never ends")
	if !slices.Contains(c.Issues, IssueOpenEnding) {
		t.Errorf("expected open-ending issue, got %v", c.Issues)
	}

	c = Assess("a             .")
	if !slices.Equal(c.Issues, []string{IssueNoTitle}) {
		t.Errorf("expected only no-title issue, got %v", c.Issues)
	}
}

func TestAssessConfidenceBounds(t *testing.T) {
	inputs := []string{"", "x", "...", "Hi...", "a b c d e f g h i j k l m n o p", "Why? Because!"}
	for _, in := range inputs {
		c := Assess(in)
		if c.Confidence < 0 || c.Confidence > 1 {
			t.Errorf("Assess(%q).Confidence = %v out of range", in, c.Confidence)
		}
	}
}

func TestMarkDuplicate(t *testing.T) {
	c := Assess("My dog is so lazy he filed for workers comp.")
	before := c.Confidence

	c.MarkDuplicate()
	c.MarkDuplicate()

	if !c.Duplicate {
		t.Fatal("candidate should be marked duplicate")
	}
	if n := len(c.Issues); n != 1 {
		t.Errorf("duplicate issue should be recorded once, got %d", n)
	}
	if c.Confidence >= before {
		t.Errorf("confidence should drop, before %v after %v", before, c.Confidence)
	}
}
