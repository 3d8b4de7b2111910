package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/meteora/pkg/core"
)

// DefaultWatchPattern matches every note in the vault.
const DefaultWatchPattern = "**"

// Watch reports external changes to note files whose vault-relative path
// matches pattern (doublestar syntax). The watcher restarts on failure and
// the channel is closed once ctx is done.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" || pattern == "*" {
		pattern = DefaultWatchPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	events := make(chan core.Event)
	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return newWatchWorker(r, pattern, events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     5,
			MaxDuration:     5 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("meteora-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start watcher: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := sup.Stop(stopCtx)
		close(events)
		return err
	}, lifecycle.WithErrorHandler(r.reportError))

	return events, nil
}

// Reconcile compares the vault with the index and returns the changes made
// while nobody was watching. The index is updated accordingly.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	var events []core.Event
	now := time.Now().Unix()
	seen := make(map[string]bool)

	err := r.walkNotes(func(rel, id, path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		seen[rel] = true
		info, err := os.Stat(path)
		if err != nil {
			return nil
		}
		if r.cache.Fresh(rel, info) {
			return nil
		}
		eType := core.EventCreate
		if r.cache.Has(rel) {
			eType = core.EventModify
		}
		events = append(events, core.Event{Type: eType, ID: id, Timestamp: now})
		r.cache.Stamp(rel, id, info)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Range(func(rel string, entry *indexEntry) bool {
		if !seen[rel] {
			events = append(events, core.Event{Type: core.EventDelete, ID: entry.ID, Timestamp: now})
		}
		return true
	})
	r.cache.Prune(seen)
	r.persistCache()
	r.recordReconcile()
	return events, nil
}

// recursiveAdd registers the vault and every visible subdirectory.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(r.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != r.Path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// shouldIgnore filters out hidden paths, temp files, non-notes, paths not
// matching pattern and removals we made ourselves. Our own writes are filtered
// later, once the debounce delay has let Save stamp them.
func (r *Repository) shouldIgnore(event fsnotify.Event, pattern string) bool {
	rel := r.relPath(event.Name)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return true
	}
	for _, segment := range strings.Split(rel, "/") {
		if strings.HasPrefix(segment, ".") || strings.HasPrefix(segment, TempFilePrefix) {
			return true
		}
	}
	if filepath.Ext(rel) != noteExt {
		return true
	}
	if ok, _ := doublestar.Match(pattern, rel); !ok {
		return true
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// Files we removed ourselves are already gone from the index.
		return !r.cache.Has(rel)
	}
	return false
}

// isCurrent reports whether the file of id still has the stamp we recorded,
// meaning the last change to it was our own write or read.
func (r *Repository) isCurrent(id string) bool {
	path, err := r.notePath(id)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return r.cache.Fresh(r.relPath(path), info)
}

func (r *Repository) mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	default:
		return ""
	}
}

func (r *Repository) resolveID(path string) (string, error) {
	rel := r.relPath(path)
	if strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside the vault", path)
	}
	return strings.TrimSuffix(rel, noteExt), nil
}

// forget drops a deleted file from the index so a later Reconcile does not
// report it twice.
func (r *Repository) forget(id string) {
	if path, err := r.notePath(id); err == nil {
		r.cache.Delete(r.relPath(path))
	}
}

func (r *Repository) reportError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("watcher failure", "error", err)
}
