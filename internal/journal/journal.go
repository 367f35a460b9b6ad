// Package journal records what a conversation did to the outside world:
// turns, saved documents, created tasks and remote completions.
//
// Entries live in SQLite with an FTS5 index so the MCP front end can search
// them. The default database is in-memory and dies with the process; a
// file path makes the journal survive restarts.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is overridable in tests.
var timeNow = time.Now

// InMemory selects a process-local database.
const InMemory = ":memory:"

// Kind classifies an entry.
type Kind string

const (
	KindTurn         Kind = "turn"
	KindDocument     Kind = "document"
	KindTasks        Kind = "tasks"
	KindTaskComplete Kind = "task_complete"
	KindAuth         Kind = "auth_required"
	KindError        Kind = "error"
)

// Entry is one journal record.
type Entry struct {
	ID        int64  `json:"id"`
	Kind      Kind   `json:"kind"`
	Project   string `json:"project,omitempty"`
	Summary   string `json:"summary"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Journal is safe for concurrent use. A nil *Journal discards writes and
// returns empty reads, so components can run without one.
type Journal struct {
	db *sql.DB
}

// Open opens the journal at path, creating it if needed. An empty path or
// InMemory opens an in-memory database.
func Open(path string) (*Journal, error) {
	inMemory := path == "" || path == InMemory
	dsn := InMemory
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("journal: create data dir: %w", err)
		}
		dsn = path
	}

	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// Every pooled connection to :memory: would be a separate database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS entries (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT NOT NULL,
			project    TEXT NOT NULL DEFAULT '',
			summary    TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_kind    ON entries(kind);
		CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			summary,
			detail,
			project,
			content='entries',
			content_rowid='id'
		);

		CREATE TRIGGER IF NOT EXISTS entries_fts_insert AFTER INSERT ON entries BEGIN
			INSERT INTO entries_fts(rowid, summary, detail, project)
			VALUES (new.id, new.summary, new.detail, new.project);
		END;
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends e and returns its ID. ID and CreatedAt on e are ignored.
func (j *Journal) Record(ctx context.Context, e Entry) (int64, error) {
	if j == nil {
		return 0, nil
	}
	if e.Kind == "" || strings.TrimSpace(e.Summary) == "" {
		return 0, fmt.Errorf("journal: kind and summary are required")
	}
	res, err := j.db.ExecContext(ctx,
		`INSERT INTO entries (kind, project, summary, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		string(e.Kind), e.Project, e.Summary, e.Detail, timeNow().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("journal: record: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest entries first. kind filters when non-empty.
func (j *Journal) Recent(ctx context.Context, kind Kind, limit int) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	limit = clampLimit(limit)
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, project, summary, detail, created_at
		FROM entries
		WHERE (? = '' OR kind = ?)
		ORDER BY id DESC
		LIMIT ?`,
		string(kind), string(kind), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return scanEntries(rows)
}

// Search runs a full-text query over summaries, details and project names,
// best matches first. Query words are matched literally.
func (j *Journal) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	q := sanitizeFTS(query)
	if q == "" {
		return j.Recent(ctx, "", limit)
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT e.id, e.kind, e.project, e.summary, e.detail, e.created_at
		FROM entries_fts f
		JOIN entries e ON e.id = f.rowid
		WHERE entries_fts MATCH ?
		ORDER BY f.rank
		LIMIT ?`,
		q, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("journal: search: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Project, &e.Summary, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, 200)
}

// sanitizeFTS quotes each word so user input cannot inject FTS5 syntax.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}
