package core

import "strings"

// Query selects the visible subset of notes.
type Query struct {
	// Tags are ORed: a note passes if it carries any of them. Empty passes all.
	Tags []string
	// Text is matched case-insensitively against title and body.
	Text string
	// HideDone drops finished notes.
	HideDone bool
}

// IsZero reports whether the query selects every note.
func (q Query) IsZero() bool {
	return len(q.Tags) == 0 && q.Text == "" && !q.HideDone
}

// Filter returns the notes matching q, preserving input order.
func Filter(notes []Note, q Query) []Note {
	text := strings.ToLower(q.Text)
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if q.HideDone && n.Done {
			continue
		}
		if !matchesTags(n, q.Tags) {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(n.Title), text) &&
			!strings.Contains(strings.ToLower(n.Body), text) {
			continue
		}
		out = append(out, n)
	}
	return out
}

func matchesTags(n Note, active []string) bool {
	if len(active) == 0 {
		return true
	}
	for _, tag := range n.Tags {
		for _, want := range active {
			if tag == want {
				return true
			}
		}
	}
	return false
}
