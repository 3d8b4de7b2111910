package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Snapshot is the persistable state of a Store.
type Snapshot struct {
	Notes      []Note
	Tags       []string
	Scratchpad []string
	// Logbook maps a calendar day (YYYY-MM-DD) to its entries.
	Logbook map[string][]LogEntry
}

// LogEntry is a dated journal line.
type LogEntry struct {
	Text string
	Tags []string
}

// Store holds notes, the tag registry and the link graph.
// It is not safe for concurrent use; Service serializes access.
//
// Every method either fully applies or returns an error before mutating.
type Store struct {
	notes      map[string]Note
	tags       map[string]struct{}
	graph      *LinkGraph
	scratchpad []string
	logbook    map[string][]LogEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		notes:   make(map[string]Note),
		tags:    make(map[string]struct{}),
		graph:   NewLinkGraph(),
		logbook: make(map[string][]LogEntry),
	}
}

// Len returns the number of notes.
func (s *Store) Len() int {
	return len(s.notes)
}

// Get returns a copy of the note with the given ID.
func (s *Store) Get(id string) (Note, error) {
	n, ok := s.notes[id]
	if !ok {
		return Note{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n.Clone(), nil
}

// Has reports whether a note exists.
func (s *Store) Has(id string) bool {
	_, ok := s.notes[id]
	return ok
}

// Notes returns copies of all notes ordered by ID.
func (s *Store) Notes() []Note {
	out := make([]Note, 0, len(s.notes))
	for _, id := range slices.Sorted(maps.Keys(s.notes)) {
		out = append(out, s.notes[id].Clone())
	}
	return out
}

// Graph exposes the link graph for read-only queries.
func (s *Store) Graph() *LinkGraph {
	return s.graph
}

// Put creates or replaces a note. Priority is clamped, progress re-derived from
// the body, and unknown tags are registered. Every link target must exist.
func (s *Store) Put(n Note) (Note, error) {
	n = n.Clone()
	n.normalize()

	if n.ID == "" {
		return Note{}, ErrEmptyID
	}
	for _, target := range n.Links {
		if target == n.ID {
			return Note{}, fmt.Errorf("%w: %s", ErrSelfLink, n.ID)
		}
		if !s.Has(target) {
			return Note{}, fmt.Errorf("link %s -> %s: %w", n.ID, target, ErrNotFound)
		}
	}

	if old, ok := s.notes[n.ID]; ok {
		for _, target := range old.Links {
			s.graph.RemoveEdge(n.ID, target)
		}
	}
	for _, target := range n.Links {
		s.graph.AddEdge(n.ID, target)
	}
	for _, tag := range n.Tags {
		s.tags[tag] = struct{}{}
	}
	s.notes[n.ID] = n
	return n.Clone(), nil
}

// Delete removes a note. Edges incident to it are removed first, in both
// directions, so every remaining edge endpoint exists.
func (s *Store) Delete(id string) error {
	if !s.Has(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, source := range s.graph.RemoveNode(id) {
		src := s.notes[source]
		src.Links = removeSorted(src.Links, id)
		s.notes[source] = src
	}
	delete(s.notes, id)
	return nil
}

// Link adds source->target.
func (s *Store) Link(source, target string) error {
	if source == target {
		return fmt.Errorf("%w: %s", ErrSelfLink, source)
	}
	src, ok := s.notes[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, source)
	}
	if !s.Has(target) {
		return fmt.Errorf("%w: %s", ErrNotFound, target)
	}
	src.Links = insertSorted(slices.Clone(src.Links), target)
	s.notes[source] = src
	s.graph.AddEdge(source, target)
	return nil
}

// Unlink removes source->target. Removing a missing edge is not an error.
func (s *Store) Unlink(source, target string) error {
	src, ok := s.notes[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, source)
	}
	src.Links = removeSorted(slices.Clone(src.Links), target)
	s.notes[source] = src
	s.graph.RemoveEdge(source, target)
	return nil
}

// Tags returns the registered tags ordered by name.
func (s *Store) Tags() []Tag {
	out := make([]Tag, 0, len(s.tags))
	for _, name := range slices.Sorted(maps.Keys(s.tags)) {
		out = append(out, NewTag(name))
	}
	return out
}

// TagUsage counts the notes carrying each registered tag. Unused tags map to 0.
func (s *Store) TagUsage() map[string]int {
	usage := make(map[string]int, len(s.tags))
	for name := range s.tags {
		usage[name] = 0
	}
	for _, n := range s.notes {
		for _, tag := range n.Tags {
			usage[tag]++
		}
	}
	return usage
}

// AddTag registers a tag.
func (s *Store) AddTag(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyTag
	}
	if _, ok := s.tags[name]; ok {
		return fmt.Errorf("%w: %s", ErrTagExists, name)
	}
	s.tags[name] = struct{}{}
	return nil
}

// RenameTag renames a tag everywhere it is used.
func (s *Store) RenameTag(from, to string) error {
	to = strings.TrimSpace(to)
	if _, ok := s.tags[from]; !ok {
		return fmt.Errorf("%w: %s", ErrTagNotFound, from)
	}
	if to == "" {
		return ErrEmptyTag
	}
	if _, ok := s.tags[to]; ok {
		return fmt.Errorf("%w: %s", ErrTagExists, to)
	}
	for id, n := range s.notes {
		if n.HasTag(from) {
			n.Tags = insertSorted(removeSorted(slices.Clone(n.Tags), from), to)
			s.notes[id] = n
		}
	}
	s.retagLog(from, func(tags []string) []string {
		return insertSorted(removeSorted(tags, from), to)
	})
	delete(s.tags, from)
	s.tags[to] = struct{}{}
	return nil
}

// DeleteTag unregisters a tag and removes it from every note and logbook
// entry. Notes are kept.
func (s *Store) DeleteTag(name string) error {
	if _, ok := s.tags[name]; !ok {
		return fmt.Errorf("%w: %s", ErrTagNotFound, name)
	}
	for id, n := range s.notes {
		if n.HasTag(name) {
			n.Tags = removeSorted(slices.Clone(n.Tags), name)
			s.notes[id] = n
		}
	}
	s.retagLog(name, func(tags []string) []string {
		return removeSorted(tags, name)
	})
	delete(s.tags, name)
	return nil
}

// retagLog rewrites the tags of every logbook entry carrying tag.
func (s *Store) retagLog(tag string, edit func([]string) []string) {
	for _, entries := range s.logbook {
		for i, e := range entries {
			if slices.Contains(e.Tags, tag) {
				entries[i].Tags = edit(e.Tags)
			}
		}
	}
}

// AddScratch appends a scratchpad section and returns its index.
func (s *Store) AddScratch(text string) int {
	s.scratchpad = append(s.scratchpad, text)
	return len(s.scratchpad) - 1
}

// Scratches returns the scratchpad sections.
func (s *Store) Scratches() []string {
	return slices.Clone(s.scratchpad)
}

// RemoveScratch deletes the section at index i.
func (s *Store) RemoveScratch(i int) error {
	if i < 0 || i >= len(s.scratchpad) {
		return fmt.Errorf("%w: scratch %d", ErrIndexOutOfRange, i)
	}
	s.scratchpad = slices.Delete(s.scratchpad, i, i+1)
	return nil
}

// PromoteScratch turns the section at index i into a new note.
func (s *Store) PromoteScratch(i int, now time.Time) (Note, error) {
	if i < 0 || i >= len(s.scratchpad) {
		return Note{}, fmt.Errorf("%w: scratch %d", ErrIndexOutOfRange, i)
	}
	n, err := s.Put(NewNote("", s.scratchpad[i], now))
	if err != nil {
		return Note{}, err
	}
	s.scratchpad = slices.Delete(s.scratchpad, i, i+1)
	return n, nil
}

// AddLogEntry appends an entry to the logbook day containing at.
func (s *Store) AddLogEntry(at time.Time, e LogEntry) {
	day := at.Format(time.DateOnly)
	e.Tags = normalizeSet(e.Tags)
	s.logbook[day] = append(s.logbook[day], e)
	for _, tag := range e.Tags {
		s.tags[tag] = struct{}{}
	}
}

// LogDay returns the entries for the day containing at.
func (s *Store) LogDay(at time.Time) []LogEntry {
	return cloneEntries(s.logbook[at.Format(time.DateOnly)])
}

// Logbook returns a copy of every logbook day.
func (s *Store) Logbook() map[string][]LogEntry {
	out := make(map[string][]LogEntry, len(s.logbook))
	for day, entries := range s.logbook {
		out[day] = cloneEntries(entries)
	}
	return out
}

// LogDays returns the days that have entries, oldest first.
func (s *Store) LogDays() []string {
	return slices.Sorted(maps.Keys(s.logbook))
}

// Clone returns an independent deep copy.
func (s *Store) Clone() *Store {
	c := &Store{
		notes:      make(map[string]Note, len(s.notes)),
		tags:       maps.Clone(s.tags),
		graph:      s.graph.Clone(),
		scratchpad: slices.Clone(s.scratchpad),
		logbook:    make(map[string][]LogEntry, len(s.logbook)),
	}
	for id, n := range s.notes {
		c.notes[id] = n.Clone()
	}
	for day, entries := range s.logbook {
		c.logbook[day] = cloneEntries(entries)
	}
	return c
}

// Snapshot exports the store for persistence.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Notes:      s.Notes(),
		Tags:       slices.Sorted(maps.Keys(s.tags)),
		Scratchpad: slices.Clone(s.scratchpad),
		Logbook:    make(map[string][]LogEntry, len(s.logbook)),
	}
	for day, entries := range s.logbook {
		snap.Logbook[day] = cloneEntries(entries)
	}
	return snap
}

// Restore replaces the store contents with snap. Self links and links to
// unknown notes are pruned and counted. Empty or duplicate IDs make the
// snapshot corrupt; in that case the store is left untouched.
func (s *Store) Restore(snap Snapshot) (pruned int, err error) {
	next := NewStore()
	for _, tag := range snap.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			next.tags[tag] = struct{}{}
		}
	}

	for _, n := range snap.Notes {
		n = n.Clone()
		n.Links = nil
		n.normalize()
		if n.ID == "" {
			return 0, fmt.Errorf("%w: note without ID", ErrCorrupt)
		}
		if next.Has(n.ID) {
			return 0, fmt.Errorf("%w: duplicate note ID %s", ErrCorrupt, n.ID)
		}
		if _, err := next.Put(n); err != nil {
			return 0, err
		}
	}

	for _, n := range snap.Notes {
		for _, target := range n.Links {
			if err := next.Link(strings.TrimSpace(n.ID), strings.TrimSpace(target)); err != nil {
				pruned++
			}
		}
	}

	next.scratchpad = slices.Clone(snap.Scratchpad)
	for day, entries := range snap.Logbook {
		for _, e := range entries {
			e.Tags = normalizeSet(e.Tags)
			next.logbook[day] = append(next.logbook[day], e)
			for _, tag := range e.Tags {
				next.tags[tag] = struct{}{}
			}
		}
	}

	*s = *next
	return pruned, nil
}

func cloneEntries(entries []LogEntry) []LogEntry {
	if entries == nil {
		return nil
	}
	out := make([]LogEntry, len(entries))
	for i, e := range entries {
		out[i] = LogEntry{Text: e.Text, Tags: slices.Clone(e.Tags)}
	}
	return out
}
