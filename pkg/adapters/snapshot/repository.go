// Package snapshot stores the whole note store as one JSON document.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/meteora/pkg/codec"
	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

// BackupSuffix is appended to the path of the previous save.
const BackupSuffix = ".bak"

const tempPrefix = "meteora-tmp-"

// Repository implements core.Repository and core.BackupLoader on a single file.
type Repository struct {
	config Config

	mu       sync.RWMutex
	lastSave *time.Time
}

var (
	_ core.Repository   = (*Repository)(nil)
	_ core.BackupLoader = (*Repository)(nil)
)

// Config holds the configuration for the snapshot repository.
type Config struct {
	Path     string
	ReadOnly bool
	Logger   *slog.Logger
	// Sealer, when set, seals the whole document.
	Sealer *seal.Sealer
}

// NewRepository creates a snapshot repository.
func NewRepository(config Config) *Repository {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{config: config}
}

// Path returns the snapshot file.
func (r *Repository) Path() string {
	return r.config.Path
}

// BackupPath returns the file holding the previous save.
func (r *Repository) BackupPath() string {
	return r.config.Path + BackupSuffix
}

// Initialize creates the parent directory.
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.Path == "" {
		return errors.New("snapshot path is required")
	}
	if r.config.ReadOnly {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.config.Path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file is an empty store.
func (r *Repository) Load(ctx context.Context) (core.Snapshot, error) {
	snap, err := r.read(r.config.Path)
	if errors.Is(err, os.ErrNotExist) {
		r.config.Logger.Debug("no snapshot yet", "path", r.config.Path)
		return core.Snapshot{}, nil
	}
	return snap, err
}

// LoadBackup reads the previous save.
func (r *Repository) LoadBackup(ctx context.Context) (core.Snapshot, error) {
	snap, err := r.read(r.BackupPath())
	if errors.Is(err, os.ErrNotExist) {
		return core.Snapshot{}, core.ErrNoBackup
	}
	return snap, err
}

func (r *Repository) read(path string) (core.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Snapshot{}, err
	}
	snap, err := codec.Unmarshal(data, r.config.Sealer)
	if err != nil {
		return core.Snapshot{}, &core.LoadError{Source: path, Err: err}
	}
	return snap, nil
}

// Save writes the snapshot. The previous file, if any, becomes the backup.
//
// Workflow:
//  1. Encode (and seal) the document into a temp file next to the target.
//  2. Rename the current file to the backup path.
//  3. Rename the temp file into place.
func (r *Repository) Save(ctx context.Context, snap core.Snapshot) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()
	data, err := codec.Marshal(snap, now, r.config.Sealer)
	if err != nil {
		return err
	}

	tmp, err := writeTemp(r.config.Path, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp) // no-op after a successful rename

	if err := os.Rename(r.config.Path, r.BackupPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to rotate backup: %w", err)
	}
	if err := os.Rename(tmp, r.config.Path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}

	r.mu.Lock()
	r.lastSave = &now
	r.mu.Unlock()
	r.config.Logger.Debug("snapshot saved", "path", r.config.Path, "notes", len(snap.Notes))
	return nil
}

func writeTemp(target string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), nil
}

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path      string     `json:"path"`
	HasBackup bool       `json:"has_backup"`
	ReadOnly  bool       `json:"read_only"`
	Sealed    bool       `json:"sealed"`
	LastSave  *time.Time `json:"last_save,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, err := os.Stat(r.BackupPath())
	return RepositoryState{
		Path:      r.config.Path,
		HasBackup: err == nil,
		ReadOnly:  r.config.ReadOnly,
		Sealed:    r.config.Sealer != nil,
		LastSave:  r.lastSave,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "snapshot"
}
