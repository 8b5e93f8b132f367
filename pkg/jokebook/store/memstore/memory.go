package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/jokebook/pkg/jokebook/internalerr"
	"github.com/cognicore/jokebook/pkg/jokebook/store"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	jokes     map[string]store.Joke
	folders   map[string]store.Folder
	nameIndex map[string]string // folder name -> id
	failNext  error
	now       func() time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		jokes:     make(map[string]store.Joke),
		folders:   make(map[string]store.Folder),
		nameIndex: make(map[string]string),
		now:       time.Now,
	}
}

// FailNextCommit makes the next Commit return err without writing anything.
// Tests use it to exercise save-failure paths.
func (s *Store) FailNextCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// ListJokes returns all jokes ordered by creation time, then ID.
func (s *Store) ListJokes(ctx context.Context) ([]store.Joke, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Joke, 0, len(s.jokes))
	for _, j := range s.jokes {
		out = append(out, store.CopyJoke(j))
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}

// GetJoke returns a joke by ID.
func (s *Store) GetJoke(ctx context.Context, id string) (store.Joke, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jokes[id]
	if !ok {
		return store.Joke{}, false, nil
	}
	return store.CopyJoke(j), true, nil
}

// SaveJoke inserts a joke (assigning an ID when empty) or replaces it.
func (s *Store) SaveJoke(ctx context.Context, j store.Joke) (store.Joke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j.ID == "" {
		j.ID = store.NewID()
	}
	if err := s.checkFolderLocked(j); err != nil {
		return store.Joke{}, err
	}
	j = s.stampLocked(j)
	s.jokes[j.ID] = store.CopyJoke(j)
	return store.CopyJoke(j), nil
}

// DeleteJoke removes a joke.
func (s *Store) DeleteJoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jokes[id]; !ok {
		return fmt.Errorf("delete joke %s: %w", id, internalerr.ErrNotFound)
	}
	delete(s.jokes, id)
	return nil
}

// ListFolders returns all folders ordered by name, with JokeIDs filled in.
func (s *Store) ListFolders(ctx context.Context) ([]store.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make(map[string][]string)
	for _, j := range s.jokes {
		if j.FolderID != "" {
			members[j.FolderID] = append(members[j.FolderID], j.ID)
		}
	}

	out := make([]store.Folder, 0, len(s.folders))
	for _, f := range s.folders {
		f = store.CopyFolder(f)
		f.JokeIDs = members[f.ID]
		sort.Strings(f.JokeIDs)
		out = append(out, f)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

// CreateFolder creates a folder. Folder names are unique.
func (s *Store) CreateFolder(ctx context.Context, name string) (store.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return store.Folder{}, fmt.Errorf("create folder: empty name: %w", internalerr.ErrInvalidInput)
	}
	if _, exists := s.nameIndex[name]; exists {
		return store.Folder{}, fmt.Errorf("create folder %q: %w", name, internalerr.ErrDuplicate)
	}

	f := store.Folder{ID: store.NewID(), Name: name, CreatedAt: s.now()}
	s.putFolderLocked(f)
	return f, nil
}

// SaveFolder inserts or renames a folder.
func (s *Store) SaveFolder(ctx context.Context, f store.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveFolderLocked(f)
}

// DeleteFolder removes a folder and detaches its jokes.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders[id]
	if !ok {
		return fmt.Errorf("delete folder %s: %w", id, internalerr.ErrNotFound)
	}
	delete(s.folders, id)
	delete(s.nameIndex, f.Name)
	for jid, j := range s.jokes {
		if j.FolderID == id {
			j.FolderID = ""
			s.jokes[jid] = j
		}
	}
	return nil
}

// Commit applies the batch atomically. Folders are written before jokes so
// a batch may introduce a folder and assign jokes to it.
func (s *Store) Commit(ctx context.Context, b store.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}

	// Validate against a scratch copy so a bad record leaves nothing behind.
	staged := &Store{
		jokes:     make(map[string]store.Joke, len(s.jokes)),
		folders:   make(map[string]store.Folder, len(s.folders)),
		nameIndex: make(map[string]string, len(s.nameIndex)),
		now:       s.now,
	}
	for k, v := range s.jokes {
		staged.jokes[k] = v
	}
	for k, v := range s.folders {
		staged.folders[k] = v
	}
	for k, v := range s.nameIndex {
		staged.nameIndex[k] = v
	}

	for _, f := range b.Folders {
		if f.ID == "" {
			return fmt.Errorf("commit: folder %q without id: %w", f.Name, internalerr.ErrInvalidInput)
		}
		if err := staged.saveFolderLocked(f); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	for _, j := range b.Jokes {
		if j.ID == "" {
			return fmt.Errorf("commit: joke %q without id: %w", j.Title, internalerr.ErrInvalidInput)
		}
		if err := staged.checkFolderLocked(j); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		j = staged.stampLocked(j)
		staged.jokes[j.ID] = store.CopyJoke(j)
	}

	s.jokes = staged.jokes
	s.folders = staged.folders
	s.nameIndex = staged.nameIndex
	return nil
}

func (s *Store) stampLocked(j store.Joke) store.Joke {
	now := s.now()
	if prev, ok := s.jokes[j.ID]; ok && j.CreatedAt.IsZero() {
		j.CreatedAt = prev.CreatedAt
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.ModifiedAt = now
	return j
}

func (s *Store) checkFolderLocked(j store.Joke) error {
	if j.FolderID == "" {
		return nil
	}
	if _, ok := s.folders[j.FolderID]; !ok {
		return fmt.Errorf("joke %s: folder %s: %w", j.ID, j.FolderID, internalerr.ErrNotFound)
	}
	return nil
}

func (s *Store) saveFolderLocked(f store.Folder) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return fmt.Errorf("save folder: empty name: %w", internalerr.ErrInvalidInput)
	}
	if f.ID == "" {
		f.ID = store.NewID()
	}
	if owner, exists := s.nameIndex[f.Name]; exists && owner != f.ID {
		return fmt.Errorf("save folder %q: %w", f.Name, internalerr.ErrDuplicate)
	}
	if prev, ok := s.folders[f.ID]; ok {
		delete(s.nameIndex, prev.Name)
		if f.CreatedAt.IsZero() {
			f.CreatedAt = prev.CreatedAt
		}
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
	}
	s.putFolderLocked(f)
	return nil
}

func (s *Store) putFolderLocked(f store.Folder) {
	f.JokeIDs = nil
	s.folders[f.ID] = f
	s.nameIndex[f.Name] = f.ID
}
