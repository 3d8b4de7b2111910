package core

import "context"

// Repository defines the contract for loading and saving the whole store.
// Adhering to this interface allows the core to be independent of the
// underlying storage mechanism (vault files, SQL, S3, etc).
type Repository interface {
	// Initialize ensures the underlying storage is ready (e.g., create directories, schema migration).
	Initialize(ctx context.Context) error

	// Load reads the persisted state. Malformed data is reported as a *LoadError.
	Load(ctx context.Context) (Snapshot, error)

	// Save persists the state, replacing whatever was stored before.
	Save(ctx context.Context, snap Snapshot) error
}

// BackupLoader is implemented by repositories that keep the previous save.
type BackupLoader interface {
	// LoadBackup reads the previous save. It returns ErrNoBackup when none exists.
	LoadBackup(ctx context.Context) (Snapshot, error)
}

// Watchable is implemented by repositories that can report external changes.
type Watchable interface {
	// Watch emits an Event for each changed note matching pattern until ctx is done.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// NoteLoader is implemented by repositories that can read a single note, so a
// watcher can refresh one note without a full reload.
type NoteLoader interface {
	LoadNote(ctx context.Context, id string) (Note, error)
}
