// Package organize files classified jokes into folders.
//
// AutoOrganize classifies every joke of a batch, decides between a solid
// assignment, a suggestion that needs review, and the Other bucket, creates
// any missing category folders, and writes the classification back onto each
// record in a single store commit.
package organize

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/jokebook/pkg/jokebook/classify"
	"github.com/cognicore/jokebook/pkg/jokebook/ingest"
	"github.com/cognicore/jokebook/pkg/jokebook/observe"
	"github.com/cognicore/jokebook/pkg/jokebook/store"
)

// RecentlyAdded is the folder guaranteed to exist after every run.
const RecentlyAdded = "Recently Added"

// DefaultWorkers bounds parallel classification when no option is given.
const DefaultWorkers = 4

// Organizer assigns jokes to category folders.
type Organizer struct {
	classifier *classify.Classifier
	store      store.Store
	logger     *slog.Logger
	metrics    *observe.Metrics
	workers    int
	now        func() time.Time
}

// Option configures an Organizer.
type Option func(*Organizer)

// WithLogger sets the logger. Default slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Organizer) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records run statistics on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Organizer) { o.metrics = m }
}

// WithWorkers bounds how many jokes are classified concurrently.
func WithWorkers(n int) Option {
	return func(o *Organizer) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithClock overrides the classified-at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Organizer) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates an Organizer. A nil store keeps results in memory only.
func New(c *classify.Classifier, st store.Store, opts ...Option) *Organizer {
	if c == nil {
		c = classify.NewClassifier(nil, classify.DefaultThresholds())
	}
	o := &Organizer{
		classifier: c,
		store:      st,
		logger:     slog.Default(),
		workers:    DefaultWorkers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Result reports one AutoOrganize run.
type Result struct {
	Organized int // jokes assigned to a folder
	Suggested int // assignments below the auto-organize threshold

	Jokes          []store.Joke   // updated records, in input order
	Folders        []store.Folder // every known folder after the run
	CreatedFolders []string       // names of folders created by this run

	// SaveErr is the persistence failure, if any. The in-memory results
	// above are still valid and may be committed again by the caller.
	SaveErr error
}

// AutoOrganize classifies jokes, assigns each to the folder named after its
// category (creating it when absent) and commits the updates. A save failure
// is logged and reported in Result.SaveErr; only context cancellation makes
// AutoOrganize return an error.
func (o *Organizer) AutoOrganize(ctx context.Context, jokes []store.Joke, folders []store.Folder) (Result, error) {
	start := time.Now()

	results, err := o.classifyAll(ctx, jokes)
	if err != nil {
		return Result{}, err
	}

	th := o.classifier.Thresholds()
	idx := newFolderIndex(folders, o.now)
	classifiedAt := o.now()

	res := Result{Jokes: make([]store.Joke, len(jokes))}
	assigned := make(map[string]string, len(jokes)) // joke id -> folder id
	for i, j := range jokes {
		cr := results[i]
		best := cr.Primary()

		category := best.Category
		solid := best.Confidence >= th.AutoOrganize
		if !solid {
			res.Suggested++
			if best.Confidence < th.OtherFloor {
				category = classify.OtherCategory
			}
		}

		folder := idx.findOrCreate(category)

		j = store.CopyJoke(j)
		j.FolderID = folder.ID
		j.Category = category
		j.Categories = classify.AboveThreshold(cr.Matches, th.MultiCategory)
		j.CategoryConfidences = classify.ConfidenceMap(cr.Matches)
		j.StyleTags = slices.Clone(cr.Style.Tags)
		j.Tone = cr.Style.Tone
		j.CraftNotes = slices.Clone(cr.Style.CraftSignals)
		j.StructureScore = cr.Style.StructureScore
		j.NeedsReview = !solid
		j.ClassifiedAt = classifiedAt

		res.Jokes[i] = j
		res.Organized++
		if j.ID != "" {
			assigned[j.ID] = folder.ID
		}

		o.logger.Debug("joke organized",
			"id", j.ID,
			"category", category,
			"confidence", best.Confidence,
			"solid", solid,
		)
	}

	idx.findOrCreate(RecentlyAdded)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res.CreatedFolders = idx.createdNames()
	res.Folders = idx.withMembers(assigned)

	if o.store != nil {
		batch := store.Batch{Jokes: withIDs(res.Jokes), Folders: idx.created()}
		if err := o.store.Commit(ctx, batch); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, ctxErr
			}
			res.SaveErr = fmt.Errorf("organize: save: %w", err)
			o.logger.Warn("organize results not saved",
				"jokes", len(batch.Jokes),
				"folders", len(batch.Folders),
				"error", err,
			)
		}
	}

	o.metrics.RecordOrganize(ctx, res.Organized-res.Suggested, res.Suggested,
		len(res.CreatedFolders), res.SaveErr != nil, time.Since(start))
	o.logger.Info("organize complete",
		"organized", res.Organized,
		"suggested", res.Suggested,
		"folders_created", len(res.CreatedFolders),
	)
	return res, nil
}

// classifyAll runs the classifier over jokes on a bounded worker pool.
// results[i] belongs to jokes[i].
func (o *Organizer) classifyAll(ctx context.Context, jokes []store.Joke) ([]classify.Result, error) {
	results := make([]classify.Result, len(jokes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i := range jokes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.classifier.Classify(ingest.Normalize(jokes[i].Content))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// errgroup only reports worker errors; a cancel after the last worker
	// started still counts.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// withIDs drops records the store cannot address.
func withIDs(jokes []store.Joke) []store.Joke {
	out := make([]store.Joke, 0, len(jokes))
	for _, j := range jokes {
		if j.ID != "" {
			out = append(out, j)
		}
	}
	return out
}

// folderIndex is the find-or-create critical section over folder names.
type folderIndex struct {
	mu      sync.Mutex
	byName  map[string]int
	folders []store.Folder
	fresh   []int // indexes into folders created during this run
	now     func() time.Time
}

func newFolderIndex(existing []store.Folder, now func() time.Time) *folderIndex {
	idx := &folderIndex{
		byName:  make(map[string]int, len(existing)+1),
		folders: make([]store.Folder, 0, len(existing)+1),
		now:     now,
	}
	for _, f := range existing {
		if _, dup := idx.byName[f.Name]; dup {
			continue
		}
		idx.byName[f.Name] = len(idx.folders)
		idx.folders = append(idx.folders, store.CopyFolder(f))
	}
	return idx
}

func (x *folderIndex) findOrCreate(name string) store.Folder {
	x.mu.Lock()
	defer x.mu.Unlock()

	if i, ok := x.byName[name]; ok {
		return x.folders[i]
	}
	f := store.Folder{ID: store.NewID(), Name: name, CreatedAt: x.now()}
	x.byName[name] = len(x.folders)
	x.fresh = append(x.fresh, len(x.folders))
	x.folders = append(x.folders, f)
	return f
}

func (x *folderIndex) created() []store.Folder {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]store.Folder, len(x.fresh))
	for i, fi := range x.fresh {
		out[i] = x.folders[fi]
	}
	return out
}

func (x *folderIndex) createdNames() []string {
	var names []string
	for _, f := range x.created() {
		names = append(names, f.Name)
	}
	return names
}

// withMembers returns every folder with JokeIDs updated for the jokes
// assigned in this run.
func (x *folderIndex) withMembers(assigned map[string]string) []store.Folder {
	x.mu.Lock()
	defer x.mu.Unlock()

	out := make([]store.Folder, len(x.folders))
	for i, f := range x.folders {
		f = store.CopyFolder(f)
		kept := f.JokeIDs[:0]
		for _, id := range f.JokeIDs {
			if _, moved := assigned[id]; !moved {
				kept = append(kept, id)
			}
		}
		f.JokeIDs = kept
		out[i] = f
	}

	pos := make(map[string]int, len(out))
	for i, f := range out {
		pos[f.ID] = i
	}
	ids := make([]string, 0, len(assigned))
	for id := range assigned {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		i := pos[assigned[id]]
		out[i].JokeIDs = append(out[i].JokeIDs, id)
	}
	return out
}
