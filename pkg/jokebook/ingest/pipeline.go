package ingest

import "log/slog"

// Pipeline orchestrates the import flow:
// raw text → segmentation → assessment → duplicate suppression
type Pipeline struct {
	segmenter *Segmenter
	logger    *slog.Logger
}

// NewPipeline creates an import pipeline. A nil logger means slog.Default.
func NewPipeline(segmenter *Segmenter, logger *slog.Logger) *Pipeline {
	if segmenter == nil {
		segmenter = NewSegmenter(logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{segmenter: segmenter, logger: logger}
}

// ProcessedImport is the result of running one raw text through the pipeline.
type ProcessedImport struct {
	Strategy   string
	Accepted   []Candidate // valid and new; ready to persist
	Review     []Candidate // failed validation; carry issues for the user
	Duplicates []Candidate // already in the collection
}

// Total returns the number of fragments the segmenter produced.
func (p ProcessedImport) Total() int {
	return len(p.Accepted) + len(p.Review) + len(p.Duplicates)
}

// Process segments raw and sorts every fragment into accepted, review or
// duplicate. Accepted candidates are added to index so a repeat inside the
// same batch is caught.
func (p *Pipeline) Process(raw string, index *DuplicateIndex) ProcessedImport {
	if index == nil {
		index = NewDuplicateIndex(nil)
	}

	seg := p.segmenter.Segment(raw)
	out := ProcessedImport{Strategy: seg.Strategy}

	for _, frag := range seg.Fragments {
		c := Assess(frag)
		c.Strategy = seg.Strategy

		title := ""
		if c.Valid {
			title = c.SuggestedTitle
		}
		switch {
		case index.Contains(c.Content, title):
			c.MarkDuplicate()
			out.Duplicates = append(out.Duplicates, c)
		case c.Valid:
			index.Add(c.Content, title)
			out.Accepted = append(out.Accepted, c)
		default:
			out.Review = append(out.Review, c)
		}
	}

	p.logger.Debug("import processed",
		"strategy", out.Strategy,
		"accepted", len(out.Accepted),
		"review", len(out.Review),
		"duplicates", len(out.Duplicates),
	)
	return out
}
