package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cognicore/jokebook/pkg/jokebook/internalerr"
	"github.com/cognicore/jokebook/pkg/jokebook/store"
)

func openTest(t *testing.T) (store.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "jokes.db")
	st, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, dbPath
}

// TestSchemaCreationIdempotent tests that running initSchema multiple times is safe
func TestSchemaCreationIdempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Open database: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if err := initSchema(ctx, db); err != nil {
			t.Fatalf("initSchema iteration %d: %v", i, err)
		}
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&count)
	if err != nil {
		t.Fatalf("Count tables: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 tables (folders, jokes), got %d", count)
	}
}

func TestJokeRoundTripWithClassification(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	folder, err := st.CreateFolder(ctx, "Puns")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}

	classified := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)
	saved, err := st.SaveJoke(ctx, store.Joke{
		Title:               "I used to be a banker.",
		Content:             "I used to be a banker. Then I lost interest.",
		Source:              "text",
		FolderID:            folder.ID,
		Category:            "Puns",
		Categories:          []string{"Puns", "One-Liners"},
		CategoryConfidences: map[string]float64{"Puns": 0.62, "One-Liners": 0.4},
		StyleTags:           []string{"Wordplay"},
		Tone:                "Deadpan",
		CraftNotes:          []string{"Misdirection"},
		StructureScore:      0.3,
		NeedsReview:         true,
		ClassifiedAt:        classified,
	})
	if err != nil {
		t.Fatalf("SaveJoke: %v", err)
	}

	got, ok, err := st.GetJoke(ctx, saved.ID)
	if err != nil || !ok {
		t.Fatalf("GetJoke: ok=%v err=%v", ok, err)
	}
	if got.Title != saved.Title || got.Content != saved.Content || got.Source != "text" {
		t.Errorf("text fields mismatch: %+v", got)
	}
	if got.FolderID != folder.ID || got.Category != "Puns" || got.Tone != "Deadpan" {
		t.Errorf("classification mismatch: %+v", got)
	}
	if len(got.Categories) != 2 || got.Categories[1] != "One-Liners" {
		t.Errorf("categories = %v", got.Categories)
	}
	if got.CategoryConfidences["Puns"] != 0.62 {
		t.Errorf("confidences = %v", got.CategoryConfidences)
	}
	if len(got.StyleTags) != 1 || len(got.CraftNotes) != 1 {
		t.Errorf("tags = %v craft = %v", got.StyleTags, got.CraftNotes)
	}
	if !got.NeedsReview || got.StructureScore != 0.3 {
		t.Errorf("review/score = %v/%v", got.NeedsReview, got.StructureScore)
	}
	if !got.ClassifiedAt.Equal(classified) {
		t.Errorf("ClassifiedAt = %v, want %v", got.ClassifiedAt, classified)
	}

	if _, ok, err := st.GetJoke(ctx, "missing"); ok || err != nil {
		t.Errorf("missing joke: ok=%v err=%v", ok, err)
	}
}

func TestUnclassifiedJokeHasZeroFields(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	saved, err := st.SaveJoke(ctx, store.Joke{Content: "plain"})
	if err != nil {
		t.Fatalf("SaveJoke: %v", err)
	}
	got, _, _ := st.GetJoke(ctx, saved.ID)
	if got.FolderID != "" || !got.ClassifiedAt.IsZero() || len(got.Categories) != 0 {
		t.Errorf("expected zero classification, got %+v", got)
	}
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	saved, _ := st.SaveJoke(ctx, store.Joke{Content: "v1"})
	updated, err := st.SaveJoke(ctx, store.Joke{ID: saved.ID, Content: "v2"})
	if err != nil {
		t.Fatalf("SaveJoke update: %v", err)
	}
	got, _, _ := st.GetJoke(ctx, saved.ID)
	if got.Content != "v2" {
		t.Errorf("content = %q", got.Content)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt.UTC()) {
		t.Errorf("CreatedAt changed: %v -> %v", saved.CreatedAt, got.CreatedAt)
	}
	if updated.ModifiedAt.Before(saved.ModifiedAt) {
		t.Error("ModifiedAt should not go backwards")
	}
}

func TestFolderNamesUnique(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	if _, err := st.CreateFolder(ctx, "Riddles"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if _, err := st.CreateFolder(ctx, "Riddles"); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := st.CreateFolder(ctx, ""); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListFoldersWithMembers(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	riddles, _ := st.CreateFolder(ctx, "Riddles")
	_, _ = st.CreateFolder(ctx, "Anti-Jokes")
	j, _ := st.SaveJoke(ctx, store.Joke{Content: "what has keys but no locks? a piano.", FolderID: riddles.ID})

	folders, err := st.ListFolders(ctx)
	if err != nil {
		t.Fatalf("ListFolders: %v", err)
	}
	if len(folders) != 2 || folders[0].Name != "Anti-Jokes" {
		t.Fatalf("folders = %+v", folders)
	}
	if len(folders[1].JokeIDs) != 1 || folders[1].JokeIDs[0] != j.ID {
		t.Errorf("Riddles members = %v", folders[1].JokeIDs)
	}
}

func TestDeleteFolderSetsNull(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	f, _ := st.CreateFolder(ctx, "Political")
	j, _ := st.SaveJoke(ctx, store.Joke{Content: "a senator walks in", FolderID: f.ID})

	if err := st.DeleteFolder(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	got, ok, _ := st.GetJoke(ctx, j.ID)
	if !ok || got.FolderID != "" {
		t.Errorf("joke should survive detached, got ok=%v folder=%q", ok, got.FolderID)
	}
	if err := st.DeleteFolder(ctx, f.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.DeleteJoke(ctx, j.ID); err != nil {
		t.Errorf("DeleteJoke: %v", err)
	}
	if err := st.DeleteJoke(ctx, j.ID); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitAtomicity(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	folder := store.Folder{ID: store.NewID(), Name: "Puns"}
	good := store.Joke{ID: store.NewID(), Content: "ok", FolderID: folder.ID}
	bad := store.Joke{ID: store.NewID(), Content: "dangling", FolderID: "no-such-folder"}

	err := st.Commit(ctx, store.Batch{Folders: []store.Folder{folder}, Jokes: []store.Joke{good, bad}})
	if !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from foreign key, got %v", err)
	}
	if jokes, _ := st.ListJokes(ctx); len(jokes) != 0 {
		t.Errorf("rolled back commit left %d jokes", len(jokes))
	}
	if folders, _ := st.ListFolders(ctx); len(folders) != 0 {
		t.Errorf("rolled back commit left %d folders", len(folders))
	}

	if err := st.Commit(ctx, store.Batch{Folders: []store.Folder{folder}, Jokes: []store.Joke{good}}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got, ok, _ := st.GetJoke(ctx, good.ID)
	if !ok || got.FolderID != folder.ID {
		t.Errorf("committed joke = %+v", got)
	}
}

func TestCommitRejectsMissingIDs(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	err := st.Commit(ctx, store.Batch{Folders: []store.Folder{{Name: "Puns"}}})
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	st, dbPath := openTest(t)

	saved, _ := st.SaveJoke(ctx, store.Joke{Content: "persistent"})
	st.Close()

	reopened, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.GetJoke(ctx, saved.ID)
	if err != nil || !ok || got.Content != "persistent" {
		t.Errorf("after reopen: ok=%v err=%v joke=%+v", ok, err, got)
	}
}

func TestListJokesOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	st, _ := openTest(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, content := range []string{"third", "first", "second"} {
		offsets := []time.Duration{2 * time.Second, 100 * time.Millisecond, 120 * time.Millisecond}
		if _, err := st.SaveJoke(ctx, store.Joke{Content: content, CreatedAt: base.Add(offsets[i])}); err != nil {
			t.Fatalf("SaveJoke: %v", err)
		}
	}
	jokes, err := st.ListJokes(ctx)
	if err != nil {
		t.Fatalf("ListJokes: %v", err)
	}
	if len(jokes) != 3 || jokes[0].Content != "first" || jokes[1].Content != "second" || jokes[2].Content != "third" {
		t.Errorf("order = %v", contents(jokes))
	}
}

func contents(jokes []store.Joke) []string {
	out := make([]string, len(jokes))
	for i, j := range jokes {
		out[i] = j.Content
	}
	return out
}
