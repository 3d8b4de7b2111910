package core

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"
)

// DefaultEventBuffer is the size of the watch broker buffer.
const DefaultEventBuffer = 100

// Mutation changes a Store. It must not retain the store after returning.
type Mutation func(s *Store) error

// Service owns the note store and serializes every change to it.
//
// Mutations run against a private clone which replaces the published store only
// on success, so readers never see a partially applied change and a published
// store is never written again. Background producers use Enqueue; their
// mutations are applied at the next Flush, which callers issue at a frame
// boundary (one HTTP request, one watch tick).
type Service struct {
	repo    Repository
	logger  *slog.Logger
	clock   func() time.Time
	weights Weights

	eventBufferSize int

	mu      sync.RWMutex
	store   *Store
	version uint64
	saved   uint64

	qmu   sync.Mutex
	queue []Mutation
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock injects the time source used for ranking.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithWeights sets the ranking weights.
func WithWeights(w Weights) Option {
	return func(s *Service) {
		s.weights = w
	}
}

// WithEventBuffer sets the watch broker buffer. Zero means DefaultEventBuffer.
func WithEventBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.eventBufferSize = size
		}
	}
}

// NewService creates a Service with an empty store backed by repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:            repo,
		logger:          slog.Default(),
		clock:           time.Now,
		weights:         DefaultWeights(),
		eventBufferSize: DefaultEventBuffer,
		store:           NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the injected clock reading.
func (s *Service) Now() time.Time {
	return s.clock()
}

// Weights returns the ranking weights in use.
func (s *Service) Weights() Weights {
	return s.weights
}

func (s *Service) current() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Update applies fn atomically. On error the store is unchanged.
func (s *Service) Update(ctx context.Context, fn Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.store.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.store = next
	s.version++
	return nil
}

// Enqueue schedules fn for the next Flush. It is safe to call from any goroutine.
func (s *Service) Enqueue(fn Mutation) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	s.queue = append(s.queue, fn)
}

// Pending returns the number of queued mutations.
func (s *Service) Pending() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return len(s.queue)
}

// Flush applies queued mutations in order and publishes the result once.
// Each mutation is atomic on its own: a failing one is skipped and its error
// is logged and returned joined with the others.
func (s *Service) Flush(ctx context.Context) error {
	s.qmu.Lock()
	queue := s.queue
	s.queue = nil
	s.qmu.Unlock()

	if len(queue) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.store.Clone()
	applied := 0
	var errs []error
	for i, fn := range queue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("flush interrupted, %d mutations dropped: %w", len(queue)-i, err))
			break
		}
		trial := next.Clone()
		if err := fn(trial); err != nil {
			s.logger.Warn("queued mutation failed", "error", err)
			errs = append(errs, err)
			continue
		}
		next = trial
		applied++
	}
	if applied > 0 {
		s.store = next
		s.version++
	}
	s.logger.Debug("flushed mutations", "applied", applied, "failed", len(errs))
	return errors.Join(errs...)
}

// View ranks every note at the current time and returns those matching q.
func (s *Service) View(q Query) []Note {
	return Filter(Sorted(s.current().Notes(), s.clock(), s.weights), q)
}

// Note returns a single note.
func (s *Service) Note(id string) (Note, error) {
	return s.current().Get(id)
}

// Len returns the number of notes.
func (s *Service) Len() int {
	return s.current().Len()
}

// Tags returns the registered tags.
func (s *Service) Tags() []Tag {
	return s.current().Tags()
}

// TagUsage counts notes per registered tag.
func (s *Service) TagUsage() map[string]int {
	return s.current().TagUsage()
}

// DependenciesOf yields the notes id links to. The sequence reads the store as
// published when it was called and is unaffected by later changes.
func (s *Service) DependenciesOf(id string) iter.Seq[string] {
	return s.current().Graph().DependenciesOf(id)
}

// DependentsOf yields the notes linking to id.
func (s *Service) DependentsOf(id string) iter.Seq[string] {
	return s.current().Graph().DependentsOf(id)
}

// Edges returns every link.
func (s *Service) Edges() []Link {
	return s.current().Graph().Edges()
}

// Scratches returns the scratchpad sections.
func (s *Service) Scratches() []string {
	return s.current().Scratches()
}

// Logbook returns every logbook day.
func (s *Service) Logbook() map[string][]LogEntry {
	return s.current().Logbook()
}

// Dirty reports whether there are changes since the last Load or Save.
func (s *Service) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version != s.saved
}

// Initialize prepares the repository.
func (s *Service) Initialize(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("no repository configured")
	}
	return s.repo.Initialize(ctx)
}

// Load replaces the store with the repository contents.
// Malformed data yields a *LoadError; the current store is kept in that case.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("no repository configured")
	}
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	return s.restore(snap, "repository")
}

// LoadBackup replaces the store with the previous save, if the repository keeps one.
func (s *Service) LoadBackup(ctx context.Context) error {
	bl, ok := s.repo.(BackupLoader)
	if !ok {
		return ErrNoBackup
	}
	snap, err := bl.LoadBackup(ctx)
	if err != nil {
		return err
	}
	if err := s.restore(snap, "backup"); err != nil {
		return err
	}
	// The repository still holds the broken save.
	s.mu.Lock()
	s.version++
	s.mu.Unlock()
	return nil
}

func (s *Service) restore(snap Snapshot, source string) error {
	next := NewStore()
	pruned, err := next.Restore(snap)
	if err != nil {
		return &LoadError{Source: source, Err: err}
	}
	if pruned > 0 {
		s.logger.Warn("pruned dangling links", "source", source, "count", pruned)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = next
	s.version++
	s.saved = s.version
	s.logger.Debug("store loaded", "source", source, "notes", next.Len())
	return nil
}

// Reset discards every note and starts with an empty store.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = NewStore()
	s.version++
}

// Save persists the current store.
func (s *Service) Save(ctx context.Context) error {
	if s.repo == nil {
		return fmt.Errorf("no repository configured")
	}
	s.mu.RLock()
	snap := s.store.Snapshot()
	version := s.version
	s.mu.RUnlock()

	if err := s.repo.Save(ctx, snap); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	s.mu.Lock()
	s.saved = max(s.saved, version)
	s.mu.Unlock()
	s.logger.Debug("store saved", "notes", len(snap.Notes))
	return nil
}

// Watch observes changes in the repository if supported.
//
// Events are decoupled from the consumer through a buffered broker. Changed
// notes are reloaded off the caller's goroutine and enqueued, so they appear
// after the next Flush.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.repo.(Watchable)
	if !ok {
		return nil, errors.New("repository does not support watching")
	}
	upstream, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, s.eventBufferSize)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-upstream:
				if !ok {
					return nil
				}
				s.enqueueReload(ctx, e)
				select {
				case out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		s.logger.Error("watch broker failed", "error", err)
	}))
	return out, nil
}

func (s *Service) enqueueReload(ctx context.Context, e Event) {
	if e.ID == "" {
		return
	}
	if e.Type == EventDelete {
		s.Enqueue(func(st *Store) error {
			if !st.Has(e.ID) {
				return nil
			}
			return st.Delete(e.ID)
		})
		return
	}

	nl, ok := s.repo.(NoteLoader)
	if !ok {
		return
	}
	n, err := nl.LoadNote(ctx, e.ID)
	if err != nil {
		s.logger.Warn("reload failed", "id", e.ID, "error", err)
		return
	}
	n = n.Clone()
	s.Enqueue(func(st *Store) error {
		n.Links = slices.DeleteFunc(n.Links, func(target string) bool {
			return target == n.ID || !st.Has(target)
		})
		_, err := st.Put(n)
		return err
	})
}

// Close releases the repository's resources when it holds any, such as a
// database pool.
func (s *Service) Close() error {
	switch c := s.repo.(type) {
	case interface{ Close() error }:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}
