package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/jokebook/pkg/jokebook/internalerr"
	"github.com/cognicore/jokebook/pkg/jokebook/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens a SQLite database with WAL mode and foreign keys enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, internalerr.ErrStoreUnavailable, err)
	}

	// Foreign key enforcement is per connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w: %v", path, internalerr.ErrStoreUnavailable, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w: %v", path, internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &sqliteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS folders (
	id TEXT PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS jokes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	modified_at TEXT NOT NULL,
	folder_id TEXT REFERENCES folders(id) ON DELETE SET NULL,
	category TEXT NOT NULL DEFAULT '',
	categories TEXT NOT NULL DEFAULT '[]',
	confidences TEXT NOT NULL DEFAULT '{}',
	style_tags TEXT NOT NULL DEFAULT '[]',
	tone TEXT NOT NULL DEFAULT '',
	craft_notes TEXT NOT NULL DEFAULT '[]',
	structure_score REAL NOT NULL DEFAULT 0,
	needs_review INTEGER NOT NULL DEFAULT 0,
	classified_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_jokes_folder ON jokes(folder_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

const jokeColumns = `id, title, content, source, created_at, modified_at, folder_id,
	category, categories, confidences, style_tags, tone, craft_notes,
	structure_score, needs_review, classified_at`

// ListJokes returns all jokes ordered by creation time, then ID.
func (s *sqliteStore) ListJokes(ctx context.Context) ([]store.Joke, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jokeColumns+` FROM jokes ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list jokes: %w", err)
	}
	defer rows.Close()

	var jokes []store.Joke
	for rows.Next() {
		j, err := scanJoke(rows)
		if err != nil {
			return nil, fmt.Errorf("list jokes: %w", err)
		}
		jokes = append(jokes, j)
	}
	return jokes, rows.Err()
}

// GetJoke retrieves a joke by ID
func (s *sqliteStore) GetJoke(ctx context.Context, id string) (store.Joke, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jokeColumns+` FROM jokes WHERE id = ?`, id)
	j, err := scanJoke(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Joke{}, false, nil
	}
	if err != nil {
		return store.Joke{}, false, fmt.Errorf("get joke %s: %w", id, err)
	}
	return j, true, nil
}

// SaveJoke inserts or updates a joke, assigning an ID when empty.
func (s *sqliteStore) SaveJoke(ctx context.Context, j store.Joke) (store.Joke, error) {
	if j.ID == "" {
		j.ID = store.NewID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.Joke{}, err
	}
	defer tx.Rollback()

	j, err = upsertJoke(ctx, tx, j, s.now())
	if err != nil {
		return store.Joke{}, fmt.Errorf("save joke %s: %w", j.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return store.Joke{}, err
	}
	return j, nil
}

// DeleteJoke removes a joke
func (s *sqliteStore) DeleteJoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jokes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete joke %s: %w", id, err)
	}
	return requireAffected(res, "delete joke "+id)
}

// ListFolders returns all folders ordered by name with their joke IDs.
func (s *sqliteStore) ListFolders(ctx context.Context) ([]store.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM folders ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	var folders []store.Folder
	index := make(map[string]int)
	for rows.Next() {
		var f store.Folder
		var created string
		if err := rows.Scan(&f.ID, &f.Name, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list folders: %w", err)
		}
		f.CreatedAt = parseTime(created)
		index[f.ID] = len(folders)
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	members, err := s.db.QueryContext(ctx, `SELECT folder_id, id FROM jokes WHERE folder_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list folder members: %w", err)
	}
	defer members.Close()
	for members.Next() {
		var folderID, jokeID string
		if err := members.Scan(&folderID, &jokeID); err != nil {
			return nil, fmt.Errorf("list folder members: %w", err)
		}
		if i, ok := index[folderID]; ok {
			folders[i].JokeIDs = append(folders[i].JokeIDs, jokeID)
		}
	}
	return folders, members.Err()
}

// CreateFolder creates a folder with a unique name.
func (s *sqliteStore) CreateFolder(ctx context.Context, name string) (store.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Folder{}, fmt.Errorf("create folder: empty name: %w", internalerr.ErrInvalidInput)
	}

	f := store.Folder{ID: store.NewID(), Name: name, CreatedAt: s.now()}
	_, err := s.db.ExecContext(ctx, `INSERT INTO folders (id, name, created_at) VALUES (?, ?, ?)`,
		f.ID, f.Name, formatTime(f.CreatedAt))
	if err != nil {
		return store.Folder{}, fmt.Errorf("create folder %q: %w", name, classify(err))
	}
	return f, nil
}

// SaveFolder inserts or renames a folder.
func (s *sqliteStore) SaveFolder(ctx context.Context, f store.Folder) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertFolder(ctx, tx, f, s.now()); err != nil {
		return fmt.Errorf("save folder %q: %w", f.Name, err)
	}
	return tx.Commit()
}

// DeleteFolder removes a folder; its jokes are detached by the foreign key.
func (s *sqliteStore) DeleteFolder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete folder %s: %w", id, err)
	}
	return requireAffected(res, "delete folder "+id)
}

// Commit writes folders then jokes in a single transaction.
func (s *sqliteStore) Commit(ctx context.Context, b store.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	for _, f := range b.Folders {
		if f.ID == "" {
			return fmt.Errorf("commit: folder %q without id: %w", f.Name, internalerr.ErrInvalidInput)
		}
		if err := upsertFolder(ctx, tx, f, now); err != nil {
			return fmt.Errorf("commit: folder %q: %w", f.Name, err)
		}
	}
	for _, j := range b.Jokes {
		if j.ID == "" {
			return fmt.Errorf("commit: joke %q without id: %w", j.Title, internalerr.ErrInvalidInput)
		}
		if _, err := upsertJoke(ctx, tx, j, now); err != nil {
			return fmt.Errorf("commit: joke %s: %w", j.ID, err)
		}
	}
	return tx.Commit()
}

func upsertFolder(ctx context.Context, tx *sql.Tx, f store.Folder, now time.Time) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return fmt.Errorf("empty name: %w", internalerr.ErrInvalidInput)
	}
	if f.ID == "" {
		f.ID = store.NewID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO folders (id, name, created_at) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name;
`, f.ID, f.Name, formatTime(f.CreatedAt))
	return classify(err)
}

func upsertJoke(ctx context.Context, tx *sql.Tx, j store.Joke, now time.Time) (store.Joke, error) {
	if j.CreatedAt.IsZero() {
		var created string
		err := tx.QueryRowContext(ctx, `SELECT created_at FROM jokes WHERE id = ?`, j.ID).Scan(&created)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			j.CreatedAt = now
		case err != nil:
			return j, err
		default:
			j.CreatedAt = parseTime(created)
		}
	}
	j.ModifiedAt = now

	categories, err := json.Marshal(nonNil(j.Categories))
	if err != nil {
		return j, err
	}
	confidences, err := json.Marshal(j.CategoryConfidences)
	if err != nil {
		return j, err
	}
	styleTags, err := json.Marshal(nonNil(j.StyleTags))
	if err != nil {
		return j, err
	}
	craft, err := json.Marshal(nonNil(j.CraftNotes))
	if err != nil {
		return j, err
	}

	var folderID sql.NullString
	if j.FolderID != "" {
		folderID = sql.NullString{String: j.FolderID, Valid: true}
	}
	var classifiedAt string
	if !j.ClassifiedAt.IsZero() {
		classifiedAt = formatTime(j.ClassifiedAt)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO jokes (`+jokeColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	title=excluded.title,
	content=excluded.content,
	source=excluded.source,
	modified_at=excluded.modified_at,
	folder_id=excluded.folder_id,
	category=excluded.category,
	categories=excluded.categories,
	confidences=excluded.confidences,
	style_tags=excluded.style_tags,
	tone=excluded.tone,
	craft_notes=excluded.craft_notes,
	structure_score=excluded.structure_score,
	needs_review=excluded.needs_review,
	classified_at=excluded.classified_at;
`,
		j.ID, j.Title, j.Content, j.Source,
		formatTime(j.CreatedAt), formatTime(j.ModifiedAt), folderID,
		j.Category, string(categories), string(confidences), string(styleTags),
		j.Tone, string(craft), j.StructureScore, j.NeedsReview, classifiedAt,
	)
	if err != nil {
		return j, classify(err)
	}
	return j, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJoke(r rowScanner) (store.Joke, error) {
	var (
		j                                     store.Joke
		created, modified, classifiedAt       string
		folderID                              sql.NullString
		categories, confidences, tags, crafts string
	)
	err := r.Scan(&j.ID, &j.Title, &j.Content, &j.Source, &created, &modified, &folderID,
		&j.Category, &categories, &confidences, &tags, &j.Tone, &crafts,
		&j.StructureScore, &j.NeedsReview, &classifiedAt)
	if err != nil {
		return store.Joke{}, err
	}

	j.CreatedAt = parseTime(created)
	j.ModifiedAt = parseTime(modified)
	j.ClassifiedAt = parseTime(classifiedAt)
	j.FolderID = folderID.String

	if err := json.Unmarshal([]byte(categories), &j.Categories); err != nil {
		return store.Joke{}, err
	}
	if err := json.Unmarshal([]byte(confidences), &j.CategoryConfidences); err != nil {
		return store.Joke{}, err
	}
	if err := json.Unmarshal([]byte(tags), &j.StyleTags); err != nil {
		return store.Joke{}, err
	}
	if err := json.Unmarshal([]byte(crafts), &j.CraftNotes); err != nil {
		return store.Joke{}, err
	}
	return j, nil
}

// classify maps SQLite constraint failures onto the store sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", internalerr.ErrDuplicate, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", internalerr.ErrNotFound, err)
	}
	return err
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, internalerr.ErrNotFound)
	}
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
