package core

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/meteora/pkg/markdown"
)

// Priority bounds. Values outside are clamped when a note is stored.
const (
	MinPriority = 0.0
	MaxPriority = 10.0
)

// Note is the central entity of the domain.
// Tags and Links are kept sorted and free of duplicates by the Store.
type Note struct {
	ID        string
	Title     string
	Body      string
	CreatedAt time.Time
	Priority  float64
	Deadline  Deadline
	// Progress is derived from the body checklist and always lies in [0,1].
	Progress float64
	Tags     []string
	Links    []string
	Done     bool
}

// NewNote creates a note with a fresh ID.
func NewNote(title, body string, createdAt time.Time) Note {
	return Note{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      body,
		CreatedAt: createdAt,
		Deadline:  Eternal{},
	}
}

// HasTag reports whether the note carries tag.
func (n Note) HasTag(tag string) bool {
	_, found := slices.BinarySearch(n.Tags, tag)
	return found
}

// LinksTo reports whether the note has an outgoing link to id.
func (n Note) LinksTo(id string) bool {
	_, found := slices.BinarySearch(n.Links, id)
	return found
}

// DisplayTitle returns the explicit title, or one derived from the body.
func (n Note) DisplayTitle() string {
	if t := strings.TrimSpace(n.Title); t != "" {
		return t
	}
	return markdown.Analyze(n.Body).Title
}

// Clone returns a deep copy.
func (n Note) Clone() Note {
	n.Tags = slices.Clone(n.Tags)
	n.Links = slices.Clone(n.Links)
	return n
}

// normalize enforces the value invariants of a note in place.
func (n *Note) normalize() {
	n.ID = strings.TrimSpace(n.ID)
	if n.Deadline == nil {
		n.Deadline = Eternal{}
	}
	n.Priority = ClampPriority(n.Priority)
	n.Progress = clampUnit(markdown.Analyze(n.Body).Progress)
	n.Tags = normalizeSet(n.Tags)
	n.Links = normalizeSet(n.Links)
}

// ClampPriority bounds p to [MinPriority, MaxPriority]. NaN becomes MinPriority.
func ClampPriority(p float64) float64 {
	if math.IsNaN(p) {
		return MinPriority
	}
	return math.Max(MinPriority, math.Min(MaxPriority, p))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func insertSorted(set []string, v string) []string {
	i, found := slices.BinarySearch(set, v)
	if found {
		return set
	}
	return slices.Insert(set, i, v)
}

func removeSorted(set []string, v string) []string {
	i, found := slices.BinarySearch(set, v)
	if !found {
		return set
	}
	return slices.Delete(set, i, i+1)
}
