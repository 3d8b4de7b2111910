package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

const (
	// DefaultSystemDir holds the tag registry, the journal and the index.
	DefaultSystemDir = ".meteora"

	noteExt = ".md"
)

// Repository implements core.Repository as a vault: a directory with one
// Markdown file per note. It also implements core.Watchable and core.NoteLoader.
type Repository struct {
	Path   string
	cache  *cache
	config Config

	mu            sync.RWMutex
	watcherActive bool
	lastReconcile *time.Time
	lastSave      *time.Time
}

var (
	_ core.Repository = (*Repository)(nil)
	_ core.Watchable  = (*Repository)(nil)
	_ core.NoteLoader = (*Repository)(nil)
)

// Config holds the configuration for the vault repository.
type Config struct {
	Path      string
	SystemDir string // e.g. ".meteora"
	MustExist bool
	ReadOnly  bool
	Logger    *slog.Logger
	// ErrorHandler receives runtime watcher failures, which are otherwise only logged.
	ErrorHandler func(error)
	// Sealer, when set, encrypts note bodies and the journal at rest.
	Sealer *seal.Sealer
}

// NewRepository creates a new vault repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{
		Path:   config.Path,
		config: config,
		cache:  newCache(config.Path, config.SystemDir),
	}
}

// Initialize creates the vault and system directories.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist || r.config.ReadOnly {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", r.Path)
		}
	}
	if r.config.ReadOnly {
		return r.cache.Load()
	}

	if err := os.MkdirAll(r.systemPath(), 0755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}
	if err := r.ensureIgnore(); err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	return r.cache.Load()
}

// ensureIgnore keeps the index out of version control when the vault is a repository.
func (r *Repository) ensureIgnore() error {
	path := filepath.Join(r.systemPath(), ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return writeFileAtomic(path, []byte("index.json\n"), 0644)
}

func (r *Repository) systemPath() string {
	return filepath.Join(r.Path, r.config.SystemDir)
}

// Load reads every note file plus the tag registry and the journal.
//
// Workflow:
//  1. Walk the vault for *.md files, skipping hidden directories.
//  2. Parse frontmatter and body, opening sealed bodies.
//  3. Stamp each file in the index so the watcher can ignore unchanged files.
//  4. Read .meteora/tags.yaml and .meteora/journal.yaml.
func (r *Repository) Load(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot
	seen := make(map[string]bool)

	err := r.walkNotes(func(rel, id, path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, info, err := readStat(path)
		if err != nil {
			return err
		}
		n, err := parseNote(id, data, r.config.Sealer)
		if err != nil {
			return core.Corrupt(path, err)
		}
		snap.Notes = append(snap.Notes, n)
		seen[rel] = true
		r.cache.Stamp(rel, id, info)
		return nil
	})
	if err != nil {
		return core.Snapshot{}, err
	}
	r.cache.Prune(seen)

	tags, err := r.readTags()
	if err != nil {
		return core.Snapshot{}, err
	}
	snap.Tags = tags

	j, err := r.readJournal()
	if err != nil {
		return core.Snapshot{}, err
	}
	snap.Scratchpad = j.Scratchpad
	snap.Logbook = j.logbook()

	r.persistCache()
	r.config.Logger.Debug("vault loaded", "path", r.Path, "notes", len(snap.Notes))
	return snap, nil
}

// LoadNote reads a single note file.
func (r *Repository) LoadNote(ctx context.Context, id string) (core.Note, error) {
	path, err := r.notePath(id)
	if err != nil {
		return core.Note{}, err
	}
	data, info, err := readStat(path)
	if os.IsNotExist(err) {
		return core.Note{}, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return core.Note{}, err
	}
	n, err := parseNote(id, data, r.config.Sealer)
	if err != nil {
		return core.Note{}, core.Corrupt(path, err)
	}
	r.cache.Stamp(r.relPath(path), id, info)
	return n, nil
}

// Save writes every note, removes files of notes no longer present and
// rewrites the tag registry and the journal. Unchanged files are not touched.
func (r *Repository) Save(ctx context.Context, snap core.Snapshot) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := os.MkdirAll(r.systemPath(), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}

	keep := make(map[string]bool, len(snap.Notes))
	for _, n := range snap.Notes {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := r.notePath(n.ID)
		if err != nil {
			return err
		}
		rel := r.relPath(path)
		keep[rel] = true

		if err := r.writeNote(path, n); err != nil {
			return err
		}
		if info, err := os.Stat(path); err == nil {
			r.cache.Stamp(rel, n.ID, info)
		}
	}

	var stale []string
	if err := r.walkNotes(func(rel, id, path string) error {
		if !keep[rel] {
			stale = append(stale, path)
		}
		return nil
	}); err != nil {
		return err
	}
	// Unindex first so the watcher treats these removals as our own.
	r.cache.Prune(keep)
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		r.config.Logger.Debug("removed note file", "path", path)
	}

	if err := r.writeTags(snap.Tags); err != nil {
		return err
	}
	if err := r.writeJournal(newJournal(snap)); err != nil {
		return err
	}
	r.persistCache()

	now := time.Now()
	r.mu.Lock()
	r.lastSave = &now
	r.mu.Unlock()
	return nil
}

func (r *Repository) writeNote(path string, n core.Note) error {
	if r.config.Sealer != nil && r.sameNote(path, n) {
		// Sealing is randomized; compare the opened content instead of bytes.
		return nil
	}
	data, err := serializeNote(n, r.config.Sealer)
	if err != nil {
		return err
	}
	if _, err := writeIfChanged(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write note %s: %w", n.ID, err)
	}
	return nil
}

func (r *Repository) sameNote(path string, n core.Note) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	current, err := parseNote(n.ID, data, r.config.Sealer)
	if err != nil {
		return false
	}
	a, errA := serializeNote(current, nil)
	b, errB := serializeNote(n, nil)
	return errA == nil && errB == nil && string(a) == string(b)
}

func (r *Repository) persistCache() {
	if r.config.ReadOnly {
		return
	}
	if err := r.cache.Save(); err != nil {
		r.config.Logger.Warn("failed to save index", "error", err)
	}
}

// walkNotes calls fn for every note file, skipping hidden directories
// (including the system directory) and temp files.
func (r *Repository) walkNotes(fn func(rel, id, path string) error) error {
	err := filepath.WalkDir(r.Path, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			if path == r.Path && os.IsNotExist(err) {
				return iofs.SkipAll
			}
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != r.Path && strings.HasPrefix(name, ".") {
				return iofs.SkipDir
			}
			return nil
		}
		if filepath.Ext(name) != noteExt || strings.HasPrefix(name, TempFilePrefix) || strings.HasPrefix(name, ".") {
			return nil
		}
		rel := r.relPath(path)
		return fn(rel, strings.TrimSuffix(rel, noteExt), path)
	})
	if err != nil {
		var le *core.LoadError
		if errors.As(err, &le) {
			return err
		}
		return fmt.Errorf("failed to walk vault: %w", err)
	}
	return nil
}

// notePath maps a note ID to its file. IDs are slash-separated relative
// paths without extension; they may not escape the vault or name hidden files.
func (r *Repository) notePath(id string) (string, error) {
	if id == "" {
		return "", core.ErrEmptyID
	}
	if !iofs.ValidPath(id) {
		return "", fmt.Errorf("invalid note ID %q", id)
	}
	for _, segment := range strings.Split(id, "/") {
		if strings.HasPrefix(segment, ".") {
			return "", fmt.Errorf("invalid note ID %q: hidden path", id)
		}
	}
	return filepath.Join(r.Path, filepath.FromSlash(id)+noteExt), nil
}

func (r *Repository) relPath(path string) string {
	rel, err := filepath.Rel(r.Path, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func readStat(path string) ([]byte, os.FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}
