package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cognicore/jokebook/pkg/jokebook/classify"
	"github.com/cognicore/jokebook/pkg/jokebook/ingest"
	"github.com/cognicore/jokebook/pkg/jokebook/lexicon"
	"github.com/cognicore/jokebook/pkg/jokebook/store"
	"github.com/cognicore/jokebook/pkg/jokebook/store/memstore"
	"github.com/cognicore/jokebook/pkg/jokebook/store/sqlite"
)

// Loader constructs pipeline components from a Config.
type Loader struct {
	Logger *slog.Logger
}

// Components holds everything built from a Config.
type Components struct {
	Lexicon    *lexicon.Lexicon
	Classifier *classify.Classifier
	Analyzer   *classify.Analyzer
	Segmenter  *ingest.Segmenter
	Pipeline   *ingest.Pipeline
	Thresholds classify.Thresholds
	Duplicates []ingest.DuplicateOption
	Workers    int
}

// Load builds the components described by cfg.
func (l *Loader) Load(cfg *Config) (*Components, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lex := lexicon.Default()
	if cfg.LexiconPath != "" {
		loaded, err := lexicon.LoadFromYAML(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		lex = loaded
	}

	th := classify.Thresholds(cfg.Thresholds)
	classifier := classify.NewClassifier(lex, th)
	segmenter := ingest.NewSegmenter(logger)

	stats := lex.Stats()
	logger.Debug("components loaded",
		"lexicon", lexiconSource(cfg.LexiconPath),
		"categories", stats.Categories,
		"keywords", stats.Keywords,
		"workers", cfg.Organize.Workers,
	)

	return &Components{
		Lexicon:    lex,
		Classifier: classifier,
		Analyzer:   classifier.Analyzer(),
		Segmenter:  segmenter,
		Pipeline:   ingest.NewPipeline(segmenter, logger),
		Thresholds: th,
		Duplicates: []ingest.DuplicateOption{
			ingest.WithPrefixLength(cfg.Duplicates.PrefixLength),
			ingest.WithSimilarity(cfg.Duplicates.Similarity),
		},
		Workers: cfg.Organize.Workers,
	}, nil
}

// OpenStore opens the store backend named by s.
func OpenStore(ctx context.Context, s Storage) (store.Store, error) {
	switch s.Driver {
	case DriverMemory:
		return memstore.New(), nil
	case DriverSQLite:
		return sqlite.OpenSQLite(ctx, s.Path)
	}
	return nil, fmt.Errorf("open store: unknown driver %q", s.Driver)
}

func lexiconSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
