package core

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// Weights tunes the effective score of a note.
type Weights struct {
	// PriorityWeight multiplies the raw priority.
	PriorityWeight float64
	// MaxUrgency is reached once a deadline is due or overdue.
	MaxUrgency float64
	// Horizon is the remaining time at which urgency equals half of MaxUrgency.
	Horizon time.Duration
	// ProgressDiscount is subtracted in full from a completed note.
	ProgressDiscount float64
}

// DefaultWeights returns the standard tuning.
func DefaultWeights() Weights {
	return Weights{
		PriorityWeight:   1,
		MaxUrgency:       10,
		Horizon:          7 * 24 * time.Hour,
		ProgressDiscount: 3,
	}
}

func (w Weights) horizon() time.Duration {
	if w.Horizon <= 0 {
		return DefaultWeights().Horizon
	}
	return w.Horizon
}

// Urgency returns the time-derived weight of a deadline at now.
//
// Eternal deadlines yield 0. A fixed deadline yields
// MaxUrgency * H / (H + remaining) while in the future and MaxUrgency once due.
// Periodic deadlines use their next occurrence at or after now.
func Urgency(d Deadline, now time.Time, w Weights) float64 {
	due, ok := DueAt(d, now)
	if !ok {
		return 0
	}
	remaining := due.Sub(now)
	if remaining <= 0 {
		return finite(w.MaxUrgency)
	}
	h := w.horizon().Hours()
	return finite(w.MaxUrgency * h / (h + remaining.Hours()))
}

// Score returns the effective score of a note at now.
func Score(n Note, now time.Time, w Weights) float64 {
	return finite(ClampPriority(n.Priority)*w.PriorityWeight +
		Urgency(n.Deadline, now, w) -
		clampUnit(n.Progress)*w.ProgressDiscount)
}

// Rank orders notes by descending score and returns their IDs.
// Ties go to the older note, then to the smaller ID.
func Rank(notes []Note, now time.Time, w Weights) []string {
	ranked := Sorted(notes, now, w)
	ids := make([]string, len(ranked))
	for i, n := range ranked {
		ids[i] = n.ID
	}
	return ids
}

// Sorted returns a ranked copy of notes. The input slice is not modified.
func Sorted(notes []Note, now time.Time, w Weights) []Note {
	type scored struct {
		note  Note
		score float64
	}
	items := make([]scored, len(notes))
	for i, n := range notes {
		items[i] = scored{note: n, score: Score(n, now, w)}
	}
	slices.SortFunc(items, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := a.note.CreatedAt.Compare(b.note.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.note.ID, b.note.ID)
	})
	out := make([]Note, len(items))
	for i, it := range items {
		out[i] = it.note
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
