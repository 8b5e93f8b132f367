package store

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Store is the storage collaborator for jokes and folders.
type Store interface {
	Close() error

	// Jokes
	ListJokes(ctx context.Context) ([]Joke, error)
	GetJoke(ctx context.Context, id string) (Joke, bool, error)
	SaveJoke(ctx context.Context, j Joke) (Joke, error)
	DeleteJoke(ctx context.Context, id string) error

	// Folders
	ListFolders(ctx context.Context) ([]Folder, error)
	CreateFolder(ctx context.Context, name string) (Folder, error)
	SaveFolder(ctx context.Context, f Folder) error
	DeleteFolder(ctx context.Context, id string) error

	// Commit writes a batch atomically: either every record persists or
	// none does and an error is returned.
	Commit(ctx context.Context, b Batch) error
}

// Joke is a persisted piece of material together with the classification
// fields written back by the organizer.
type Joke struct {
	ID         string
	Title      string
	Content    string
	Source     string // text, image, audio
	CreatedAt  time.Time
	ModifiedAt time.Time
	FolderID   string

	Category            string
	Categories          []string
	CategoryConfidences map[string]float64
	StyleTags           []string
	Tone                string
	CraftNotes          []string
	StructureScore      float64
	NeedsReview         bool
	ClassifiedAt        time.Time
}

// Folder groups jokes. JokeIDs is derived by the store from the jokes'
// FolderID and is ignored on save.
type Folder struct {
	ID        string
	Name      string
	CreatedAt time.Time
	JokeIDs   []string
}

// Batch is a set of writes applied together by Commit. Every record must
// carry an ID (see NewID).
type Batch struct {
	Jokes   []Joke
	Folders []Folder
}

// Empty reports whether the batch has nothing to write.
func (b Batch) Empty() bool {
	return len(b.Jokes) == 0 && len(b.Folders) == 0
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a new lexically sortable record ID.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// CopyJoke returns a deep copy of j.
func CopyJoke(j Joke) Joke {
	j.Categories = copyStrings(j.Categories)
	j.StyleTags = copyStrings(j.StyleTags)
	j.CraftNotes = copyStrings(j.CraftNotes)
	if j.CategoryConfidences != nil {
		m := make(map[string]float64, len(j.CategoryConfidences))
		for k, v := range j.CategoryConfidences {
			m[k] = v
		}
		j.CategoryConfidences = m
	}
	return j
}

// CopyFolder returns a deep copy of f.
func CopyFolder(f Folder) Folder {
	f.JokeIDs = copyStrings(f.JokeIDs)
	return f
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
