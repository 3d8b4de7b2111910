package core

import (
	"testing"
)

func ids(notes []Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	notes := []Note{
		{ID: "1", Title: "Foo report", Tags: []string{"work"}},
		{ID: "2", Title: "groceries", Body: "buy FOOD", Tags: []string{"home"}},
		{ID: "3", Title: "plan", Body: "nothing here", Tags: []string{"work"}, Done: true},
		{ID: "4", Title: "untagged foo"},
	}

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"empty query keeps all in order", Query{}, []string{"1", "2", "3", "4"}},
		{"single tag", Query{Tags: []string{"work"}}, []string{"1", "3"}},
		{"tags are ORed", Query{Tags: []string{"work", "home"}}, []string{"1", "2", "3"}},
		{"text is case-insensitive over title and body", Query{Text: "foo"}, []string{"1", "2", "4"}},
		{"tag AND text", Query{Tags: []string{"work"}, Text: "FOO"}, []string{"1"}},
		{"hide done", Query{Tags: []string{"work"}, HideDone: true}, []string{"1"}},
		{"no match is empty, not an error", Query{Tags: []string{"nope"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(notes, tt.q))
			if len(got) != len(tt.want) {
				t.Fatalf("Filter = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Filter = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}
