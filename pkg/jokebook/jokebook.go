package jokebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cognicore/jokebook/pkg/jokebook/capture"
	"github.com/cognicore/jokebook/pkg/jokebook/classify"
	"github.com/cognicore/jokebook/pkg/jokebook/config"
	"github.com/cognicore/jokebook/pkg/jokebook/ingest"
	"github.com/cognicore/jokebook/pkg/jokebook/internalerr"
	"github.com/cognicore/jokebook/pkg/jokebook/observe"
	"github.com/cognicore/jokebook/pkg/jokebook/organize"
	"github.com/cognicore/jokebook/pkg/jokebook/store"
)

// Jokebook is the main facade: it imports raw text into the store and
// classifies and organizes what is stored.
type Jokebook struct {
	store       store.Store
	pipeline    *ingest.Pipeline
	classifier  *classify.Classifier
	organizer   *organize.Organizer
	recognizer  capture.TextRecognizer
	transcriber capture.Transcriber
	dupOpts     []ingest.DuplicateOption
	metrics     *observe.Metrics
	logger      *slog.Logger
}

// Options configures a Jokebook instance. Only Store is required.
type Options struct {
	Store       store.Store
	Pipeline    *ingest.Pipeline
	Classifier  *classify.Classifier
	Recognizer  capture.TextRecognizer
	Transcriber capture.Transcriber
	Duplicates  []ingest.DuplicateOption
	Metrics     *observe.Metrics
	Logger      *slog.Logger
	Workers     int
}

// New creates a Jokebook with the given dependencies.
func New(opts Options) *Jokebook {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = ingest.NewPipeline(nil, logger)
	}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = classify.NewClassifier(nil, classify.DefaultThresholds())
	}
	recognizer := opts.Recognizer
	if recognizer == nil {
		recognizer = capture.FileRecognizer{}
	}
	transcriber := opts.Transcriber
	if transcriber == nil {
		transcriber = capture.TranscriptReader{}
	}

	return &Jokebook{
		store:      opts.Store,
		pipeline:   pipeline,
		classifier: classifier,
		organizer: organize.New(classifier, opts.Store,
			organize.WithLogger(logger),
			organize.WithMetrics(opts.Metrics),
			organize.WithWorkers(opts.Workers),
		),
		recognizer:  recognizer,
		transcriber: transcriber,
		dupOpts:     opts.Duplicates,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// Open builds a Jokebook from configuration, opening the configured store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observe.Metrics) (*Jokebook, error) {
	comp, err := (&config.Loader{Logger: logger}).Load(cfg)
	if err != nil {
		return nil, err
	}
	st, err := config.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return New(Options{
		Store:      st,
		Pipeline:   comp.Pipeline,
		Classifier: comp.Classifier,
		Duplicates: comp.Duplicates,
		Metrics:    metrics,
		Logger:     logger,
		Workers:    comp.Workers,
	}), nil
}

// Close cleanly shuts down the Jokebook instance
func (k *Jokebook) Close() error {
	return k.store.Close()
}

// Sources recorded on imported jokes.
const (
	SourceText  = "text"
	SourceImage = "image"
	SourceAudio = "audio"
)

// ImportResult reports one import.
type ImportResult struct {
	Strategy   string
	Saved      []store.Joke       // new jokes, filed under Recently Added
	Review     []ingest.Candidate // fragments that need the user's attention
	Duplicates []ingest.Candidate // fragments already in the collection
}

// ImportText segments raw, validates each fragment, drops duplicates of the
// stored collection and saves the rest.
func (k *Jokebook) ImportText(ctx context.Context, raw, source string) (ImportResult, error) {
	start := time.Now()

	existing, err := k.store.ListJokes(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: list jokes: %w", err)
	}
	entries := make([]ingest.Entry, len(existing))
	for i, j := range existing {
		entries[i] = ingest.Entry{Title: j.Title, Content: j.Content}
	}
	index := ingest.NewDuplicateIndex(entries, k.dupOpts...)

	processed := k.pipeline.Process(raw, index)
	res := ImportResult{
		Strategy:   processed.Strategy,
		Review:     processed.Review,
		Duplicates: processed.Duplicates,
	}

	if len(processed.Accepted) > 0 {
		folder, created, err := k.recentlyAdded(ctx)
		if err != nil {
			return ImportResult{}, err
		}
		var batch store.Batch
		if created {
			batch.Folders = []store.Folder{folder}
		}
		for _, c := range processed.Accepted {
			batch.Jokes = append(batch.Jokes, store.Joke{
				ID:       store.NewID(),
				Title:    c.SuggestedTitle,
				Content:  c.Content,
				Source:   source,
				FolderID: folder.ID,
			})
		}
		if err := k.store.Commit(ctx, batch); err != nil {
			return ImportResult{}, fmt.Errorf("import: save: %w", err)
		}
		res.Saved = batch.Jokes
	}

	k.metrics.RecordImport(ctx, len(res.Saved), len(res.Review), len(res.Duplicates), time.Since(start))
	k.logger.Info("import complete",
		"source", source,
		"strategy", res.Strategy,
		"saved", len(res.Saved),
		"review", len(res.Review),
		"duplicates", len(res.Duplicates),
	)
	return res, nil
}

// recentlyAdded finds the Recently Added folder. created is true when it
// does not exist yet and must be written with the batch.
func (k *Jokebook) recentlyAdded(ctx context.Context) (store.Folder, bool, error) {
	folders, err := k.store.ListFolders(ctx)
	if err != nil {
		return store.Folder{}, false, fmt.Errorf("import: list folders: %w", err)
	}
	for _, f := range folders {
		if f.Name == organize.RecentlyAdded {
			return f, false, nil
		}
	}
	return store.Folder{ID: store.NewID(), Name: organize.RecentlyAdded}, true, nil
}

// ImportImage recognizes the text in image and imports it.
func (k *Jokebook) ImportImage(ctx context.Context, image []byte) (ImportResult, error) {
	text, err := k.recognizer.RecognizeText(ctx, image)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import image: %w", err)
	}
	return k.ImportText(ctx, text, SourceImage)
}

// ImportAudio transcribes the recording at path and imports the transcript.
func (k *Jokebook) ImportAudio(ctx context.Context, path string) (ImportResult, error) {
	tr, err := k.transcriber.Transcribe(ctx, path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import audio: %w", err)
	}
	k.logger.Debug("transcribed", "path", path, "confidence", tr.Confidence)
	return k.ImportText(ctx, tr.Text, SourceAudio)
}

// Classify scores a stored joke without changing it.
func (k *Jokebook) Classify(ctx context.Context, id string) (classify.Result, error) {
	j, found, err := k.store.GetJoke(ctx, id)
	if err != nil {
		return classify.Result{}, fmt.Errorf("classify %s: %w", id, err)
	}
	if !found {
		return classify.Result{}, fmt.Errorf("classify %s: %w", id, internalerr.ErrNotFound)
	}
	return k.ClassifyText(j.Content), nil
}

// ClassifyText scores arbitrary text.
func (k *Jokebook) ClassifyText(text string) classify.Result {
	return k.classifier.Classify(ingest.Normalize(text))
}

// Organize files every stored joke into its category folder.
func (k *Jokebook) Organize(ctx context.Context) (organize.Result, error) {
	jokes, err := k.store.ListJokes(ctx)
	if err != nil {
		return organize.Result{}, fmt.Errorf("organize: list jokes: %w", err)
	}
	folders, err := k.store.ListFolders(ctx)
	if err != nil {
		return organize.Result{}, fmt.Errorf("organize: list folders: %w", err)
	}
	return k.organizer.AutoOrganize(ctx, jokes, folders)
}

// Jokes returns every stored joke.
func (k *Jokebook) Jokes(ctx context.Context) ([]store.Joke, error) {
	return k.store.ListJokes(ctx)
}

// Folders returns every folder with its members.
func (k *Jokebook) Folders(ctx context.Context) ([]store.Folder, error) {
	return k.store.ListFolders(ctx)
}

// IsCaptureFailure reports whether err came from the OCR or speech
// collaborator rather than from the pipeline or store.
func IsCaptureFailure(err error) bool {
	for _, target := range []error{
		capture.ErrInvalidImage, capture.ErrNoTextFound,
		capture.ErrNotAuthorized, capture.ErrFileNotFound,
		capture.ErrUnsupportedFormat, capture.ErrNoSpeech,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
