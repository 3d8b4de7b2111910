// Package sqlite persists notes in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/meteora/pkg/codec"
	"github.com/aretw0/meteora/pkg/core"
)

// SchemaVersion is the database layout written by this package.
const SchemaVersion = 1

const schema = `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		priority REAL NOT NULL DEFAULT 0,
		deadline_kind TEXT NOT NULL DEFAULT 'eternal',
		deadline_at TEXT,
		every_days INTEGER NOT NULL DEFAULT 0,
		done INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS tags (
		name TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS note_tags (
		note_id TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		PRIMARY KEY (note_id, tag)
	);

	CREATE TABLE IF NOT EXISTS links (
		source TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
		target TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
		PRIMARY KEY (source, target)
	);

	CREATE TABLE IF NOT EXISTS scratchpad (
		position INTEGER PRIMARY KEY,
		text TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS logbook (
		day TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		PRIMARY KEY (day, position)
	);

	CREATE INDEX IF NOT EXISTS idx_links_target ON links(target);
`

// Repository implements core.Repository on SQLite.
type Repository struct {
	config Config
	db     *sql.DB

	mu       sync.RWMutex
	lastSave *time.Time
}

var _ core.Repository = (*Repository)(nil)

// Config holds the configuration for the SQLite repository.
type Config struct {
	// Path is a database file or ":memory:".
	Path     string
	ReadOnly bool
	Logger   *slog.Logger
}

// NewRepository creates a SQLite repository. The database is opened by Initialize.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{config: config}
}

// Initialize opens the database and creates or checks the schema.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.Path == "" {
		return errors.New("sqlite path is required")
	}
	if r.db != nil {
		return nil
	}
	if r.config.Path != ":memory:" && !r.config.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(r.config.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := r.config.Path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	if r.config.ReadOnly {
		dsn = "file:" + r.config.Path + "?mode=ro&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if r.config.Path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	r.db = db

	if r.config.ReadOnly {
		return r.checkVersion(ctx)
	}
	return r.migrate(ctx)
}

func (r *Repository) migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?) ON CONFLICT(key) DO NOTHING`,
		fmt.Sprint(SchemaVersion))
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return r.checkVersion(ctx)
}

func (r *Repository) checkVersion(ctx context.Context) error {
	var version int
	err := r.db.QueryRowContext(ctx, `SELECT CAST(value AS INTEGER) FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return core.Corrupt(r.config.Path, fmt.Errorf("%w: database has version %d", codec.ErrSchema, version))
	}
	return nil
}

// Close releases the database.
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Load reads every table into a snapshot.
func (r *Repository) Load(ctx context.Context) (core.Snapshot, error) {
	if r.db == nil {
		return core.Snapshot{}, errors.New("database is not initialized")
	}
	var snap core.Snapshot

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, body, created_at, priority, deadline_kind, deadline_at, every_days, done
		FROM notes
		ORDER BY id
	`)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("failed to query notes: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var (
			n                 core.Note
			created, kind     string
			deadlineAt        sql.NullString
			everyDays, isDone int
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &created, &n.Priority, &kind, &deadlineAt, &everyDays, &isDone); err != nil {
			rows.Close()
			return core.Snapshot{}, fmt.Errorf("failed to scan note: %w", err)
		}
		if err := decodeNote(&n, created, kind, deadlineAt, everyDays); err != nil {
			rows.Close()
			return core.Snapshot{}, core.Corrupt(r.config.Path, fmt.Errorf("note %s: %w", n.ID, err))
		}
		n.Done = isDone != 0
		index[n.ID] = len(snap.Notes)
		snap.Notes = append(snap.Notes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return core.Snapshot{}, fmt.Errorf("error iterating notes: %w", err)
	}

	if err := r.eachPair(ctx, `SELECT note_id, tag FROM note_tags ORDER BY note_id, tag`, func(id, tag string) {
		if i, ok := index[id]; ok {
			snap.Notes[i].Tags = append(snap.Notes[i].Tags, tag)
		}
	}); err != nil {
		return core.Snapshot{}, err
	}
	if err := r.eachPair(ctx, `SELECT source, target FROM links ORDER BY source, target`, func(src, dst string) {
		if i, ok := index[src]; ok {
			snap.Notes[i].Links = append(snap.Notes[i].Links, dst)
		}
	}); err != nil {
		return core.Snapshot{}, err
	}

	if snap.Tags, err = r.column(ctx, `SELECT name FROM tags ORDER BY name`); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Scratchpad, err = r.column(ctx, `SELECT text FROM scratchpad ORDER BY position`); err != nil {
		return core.Snapshot{}, err
	}
	if snap.Logbook, err = r.logbook(ctx); err != nil {
		return core.Snapshot{}, err
	}

	r.config.Logger.Debug("sqlite loaded", "path", r.config.Path, "notes", len(snap.Notes))
	return snap, nil
}

func decodeNote(n *core.Note, created, kind string, deadlineAt sql.NullString, everyDays int) error {
	var err error
	if n.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	var at time.Time
	if deadlineAt.Valid {
		if at, err = time.Parse(time.RFC3339Nano, deadlineAt.String); err != nil {
			return fmt.Errorf("deadline_at: %w", err)
		}
	}
	n.Deadline, err = core.NewDeadline(core.DeadlineKind(kind), at, everyDays)
	return err
}

func (r *Repository) eachPair(ctx context.Context, query string, fn func(a, b string)) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		fn(a, b)
	}
	return rows.Err()
}

func (r *Repository) column(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) logbook(ctx context.Context) (map[string][]core.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT day, text, tags FROM logbook ORDER BY day, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query logbook: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]core.LogEntry)
	for rows.Next() {
		var day, text, tags string
		if err := rows.Scan(&day, &text, &tags); err != nil {
			return nil, fmt.Errorf("failed to scan logbook: %w", err)
		}
		e := core.LogEntry{Text: text}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return nil, core.Corrupt(r.config.Path, fmt.Errorf("logbook %s: %w", day, err))
		}
		out[day] = append(out[day], e)
	}
	return out, rows.Err()
}

// Save replaces the database contents with snap in one transaction.
func (r *Repository) Save(ctx context.Context, snap core.Snapshot) (err error) {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if r.db == nil {
		return errors.New("database is not initialized")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"links", "note_tags", "notes", "tags", "scratchpad", "logbook"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, tag := range snap.Tags {
		if _, err = tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT DO NOTHING`, tag); err != nil {
			return fmt.Errorf("failed to insert tag %s: %w", tag, err)
		}
	}
	for _, n := range snap.Notes {
		kind, at, every := core.DeadlineFields(n.Deadline)
		var deadlineAt sql.NullString
		if !at.IsZero() {
			deadlineAt = sql.NullString{String: at.UTC().Format(time.RFC3339Nano), Valid: true}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notes (id, title, body, created_at, priority, deadline_kind, deadline_at, every_days, done)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			n.ID, n.Title, n.Body, n.CreatedAt.UTC().Format(time.RFC3339Nano), n.Priority,
			string(kind), deadlineAt, every, n.Done)
		if err != nil {
			return fmt.Errorf("failed to insert note %s: %w", n.ID, err)
		}
		for _, tag := range n.Tags {
			if _, err = tx.ExecContext(ctx, `INSERT INTO note_tags (note_id, tag) VALUES (?, ?)`, n.ID, tag); err != nil {
				return fmt.Errorf("failed to tag note %s: %w", n.ID, err)
			}
		}
	}
	// Links reference both endpoints, so they go in after every note.
	for _, n := range snap.Notes {
		for _, target := range n.Links {
			if _, err = tx.ExecContext(ctx, `INSERT INTO links (source, target) VALUES (?, ?)`, n.ID, target); err != nil {
				return fmt.Errorf("failed to link %s to %s: %w", n.ID, target, err)
			}
		}
	}
	for i, text := range snap.Scratchpad {
		if _, err = tx.ExecContext(ctx, `INSERT INTO scratchpad (position, text) VALUES (?, ?)`, i, text); err != nil {
			return fmt.Errorf("failed to insert scratch: %w", err)
		}
	}
	for day, entries := range snap.Logbook {
		for i, e := range entries {
			tags, merr := json.Marshal(nonNil(e.Tags))
			if merr != nil {
				return fmt.Errorf("failed to encode log entry tags: %w", merr)
			}
			if _, err = tx.ExecContext(ctx, `INSERT INTO logbook (day, position, text, tags) VALUES (?, ?, ?, ?)`, day, i, e.Text, string(tags)); err != nil {
				return fmt.Errorf("failed to insert log entry: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	now := time.Now()
	r.mu.Lock()
	r.lastSave = &now
	r.mu.Unlock()
	r.config.Logger.Debug("sqlite saved", "path", r.config.Path, "notes", len(snap.Notes))
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path          string     `json:"path"`
	SchemaVersion int        `json:"schema_version"`
	Open          bool       `json:"open"`
	ReadOnly      bool       `json:"read_only"`
	LastSave      *time.Time `json:"last_save,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RepositoryState{
		Path:          r.config.Path,
		SchemaVersion: SchemaVersion,
		Open:          r.db != nil,
		ReadOnly:      r.config.ReadOnly,
		LastSave:      r.lastSave,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "sqlite"
}
