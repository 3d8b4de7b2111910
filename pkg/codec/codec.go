// Package codec defines the versioned JSON form of a store snapshot. It is
// shared by the snapshot file, the S3 object and the HTTP API.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

// Version is the current document schema version.
const Version = 1

// ErrSchema is returned for documents written by an unknown schema version.
var ErrSchema = errors.New("unsupported schema version")

// Document is the on-disk representation of core.Snapshot.
type Document struct {
	Version    int                   `json:"version"`
	SavedAt    time.Time             `json:"saved_at"`
	Notes      []Note                `json:"notes"`
	Tags       []string              `json:"tags"`
	Scratchpad []string              `json:"scratchpad,omitempty"`
	Logbook    map[string][]LogEntry `json:"logbook,omitempty"`
}

// Note is the wire form of core.Note. Progress is derived and only written for
// readers; it is ignored on input.
type Note struct {
	ID       string    `json:"id"`
	Title    string    `json:"title,omitempty"`
	Body     string    `json:"body"`
	Created  time.Time `json:"created"`
	Priority float64   `json:"priority"`
	Deadline Deadline  `json:"deadline"`
	Progress float64   `json:"progress"`
	Tags     []string  `json:"tags"`
	Links    []string  `json:"links"`
	Done     bool      `json:"done,omitempty"`
}

// Deadline is the wire form of core.Deadline.
type Deadline struct {
	Kind      core.DeadlineKind `json:"kind"`
	At        *time.Time        `json:"at,omitempty"`
	EveryDays int               `json:"every_days,omitempty"`
}

// LogEntry is the wire form of core.LogEntry.
type LogEntry struct {
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

// FromDeadline converts a core deadline.
func FromDeadline(d core.Deadline) Deadline {
	kind, at, every := core.DeadlineFields(d)
	out := Deadline{Kind: kind, EveryDays: every}
	if !at.IsZero() {
		out.At = &at
	}
	return out
}

// Deadline converts back to a core deadline.
func (d Deadline) Deadline() (core.Deadline, error) {
	var at time.Time
	if d.At != nil {
		at = *d.At
	}
	return core.NewDeadline(d.Kind, at, d.EveryDays)
}

// FromNote converts a core note.
func FromNote(n core.Note) Note {
	return Note{
		ID:       n.ID,
		Title:    n.Title,
		Body:     n.Body,
		Created:  n.CreatedAt,
		Priority: n.Priority,
		Deadline: FromDeadline(n.Deadline),
		Progress: n.Progress,
		Tags:     nonNil(n.Tags),
		Links:    nonNil(n.Links),
		Done:     n.Done,
	}
}

// Note converts back to a core note.
func (n Note) Note() (core.Note, error) {
	d, err := n.Deadline.Deadline()
	if err != nil {
		return core.Note{}, fmt.Errorf("note %s: %w", n.ID, err)
	}
	return core.Note{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		CreatedAt: n.Created,
		Priority:  n.Priority,
		Deadline:  d,
		Tags:      n.Tags,
		Links:     n.Links,
		Done:      n.Done,
	}, nil
}

// FromSnapshot converts a core snapshot.
func FromSnapshot(snap core.Snapshot, savedAt time.Time) Document {
	doc := Document{
		Version:    Version,
		SavedAt:    savedAt.UTC(),
		Notes:      make([]Note, 0, len(snap.Notes)),
		Tags:       nonNil(snap.Tags),
		Scratchpad: snap.Scratchpad,
	}
	for _, n := range snap.Notes {
		doc.Notes = append(doc.Notes, FromNote(n))
	}
	if len(snap.Logbook) > 0 {
		doc.Logbook = make(map[string][]LogEntry, len(snap.Logbook))
		for day, entries := range snap.Logbook {
			for _, e := range entries {
				doc.Logbook[day] = append(doc.Logbook[day], LogEntry{Text: e.Text, Tags: e.Tags})
			}
		}
	}
	return doc
}

// Snapshot converts back to a core snapshot.
func (d Document) Snapshot() (core.Snapshot, error) {
	if d.Version < 1 || d.Version > Version {
		return core.Snapshot{}, fmt.Errorf("%w: %d", ErrSchema, d.Version)
	}
	snap := core.Snapshot{
		Notes:      make([]core.Note, 0, len(d.Notes)),
		Tags:       d.Tags,
		Scratchpad: d.Scratchpad,
		Logbook:    make(map[string][]core.LogEntry, len(d.Logbook)),
	}
	for _, dto := range d.Notes {
		n, err := dto.Note()
		if err != nil {
			return core.Snapshot{}, err
		}
		snap.Notes = append(snap.Notes, n)
	}
	for day, entries := range d.Logbook {
		if _, err := time.Parse(time.DateOnly, day); err != nil {
			return core.Snapshot{}, fmt.Errorf("logbook day %q: %w", day, err)
		}
		for _, e := range entries {
			snap.Logbook[day] = append(snap.Logbook[day], core.LogEntry{Text: e.Text, Tags: e.Tags})
		}
	}
	return snap, nil
}

// Marshal encodes snap as indented JSON. With a sealer, the whole document is
// sealed into a single line.
func Marshal(snap core.Snapshot, savedAt time.Time, sealer *seal.Sealer) ([]byte, error) {
	data, err := json.MarshalIndent(FromSnapshot(snap, savedAt), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if sealer == nil {
		return data, nil
	}
	sealed, err := sealer.Seal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to seal snapshot: %w", err)
	}
	return []byte(sealed + "\n"), nil
}

// Unmarshal decodes data written by Marshal. Every failure means the data is
// unusable and is reported as core.ErrCorrupt.
func Unmarshal(data []byte, sealer *seal.Sealer) (core.Snapshot, error) {
	text := strings.TrimSpace(string(data))
	if seal.IsSealed(text) {
		if sealer == nil {
			return core.Snapshot{}, fmt.Errorf("%w: data is sealed and no passphrase is configured", core.ErrCorrupt)
		}
		plain, err := sealer.Open(text)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("%w: %w", core.ErrCorrupt, err)
		}
		data = plain
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %w", core.ErrCorrupt, err)
	}
	snap, err := doc.Snapshot()
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("%w: %w", core.ErrCorrupt, err)
	}
	return snap, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
