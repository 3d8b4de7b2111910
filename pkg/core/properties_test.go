package core_test

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/aretw0/meteora/pkg/core"
)

var tagPool = []string{"work", "home", "idea", "later"}

func deadlineGen() *rapid.Generator[core.Deadline] {
	return rapid.Custom(func(t *rapid.T) core.Deadline {
		offset := time.Duration(rapid.Int64Range(-30*24, 30*24).Draw(t, "offsetHours")) * time.Hour
		switch rapid.IntRange(0, 2).Draw(t, "kind") {
		case 0:
			return core.Eternal{}
		case 1:
			return core.Fixed{At: now.Add(offset)}
		default:
			return core.Periodic{Start: now.Add(offset), EveryDays: rapid.IntRange(0, 14).Draw(t, "every")}
		}
	})
}

func notesGen() *rapid.Generator[[]core.Note] {
	return rapid.Custom(func(t *rapid.T) []core.Note {
		count := rapid.IntRange(0, 12).Draw(t, "count")
		notes := make([]core.Note, count)
		for i := range notes {
			notes[i] = core.Note{
				ID:        fmt.Sprintf("n%02d", i),
				Title:     rapid.StringMatching(`[a-zA-Z ]{0,8}(foo|FOO|Foo)?`).Draw(t, "title"),
				Body:      rapid.StringMatching(`[a-z ]{0,16}`).Draw(t, "body"),
				CreatedAt: now.Add(-time.Duration(rapid.IntRange(0, 100).Draw(t, "age")) * time.Hour),
				Priority:  rapid.Float64Range(core.MinPriority, core.MaxPriority).Draw(t, "priority"),
				Progress:  rapid.Float64Range(0, 1).Draw(t, "progress"),
				Deadline:  deadlineGen().Draw(t, "deadline"),
				Tags:      rapid.SliceOfDistinct(rapid.SampledFrom(tagPool), func(s string) string { return s }).Draw(t, "tags"),
				Done:      rapid.Bool().Draw(t, "done"),
			}
		}
		return notes
	})
}

func TestProperty_EternalUrgencyIsConstant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := time.Unix(rapid.Int64Range(0, 4e9).Draw(t, "a"), 0)
		b := time.Unix(rapid.Int64Range(0, 4e9).Draw(t, "b"), 0)
		w := core.DefaultWeights()
		if core.Urgency(core.Eternal{}, a, w) != core.Urgency(core.Eternal{}, b, w) {
			t.Fatalf("eternal urgency differs between %s and %s", a, b)
		}
	})
}

func TestProperty_FixedUrgencyNonDecreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		due := now.Add(time.Duration(rapid.Int64Range(-1000, 1000).Draw(t, "dueHours")) * time.Hour)
		earlier := now.Add(time.Duration(rapid.Int64Range(-2000, 2000).Draw(t, "earlierMinutes")) * time.Minute)
		later := earlier.Add(time.Duration(rapid.Int64Range(0, 5000).Draw(t, "stepMinutes")) * time.Minute)

		w := core.DefaultWeights()
		d := core.Fixed{At: due}
		if u1, u2 := core.Urgency(d, earlier, w), core.Urgency(d, later, w); u2 < u1 {
			t.Fatalf("urgency decreased from %v to %v approaching %s", u1, u2, due)
		}
	})
}

func TestProperty_EmptyFilterKeepsEverything(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		notes := notesGen().Draw(t, "notes")
		if got := noteIDs(core.Filter(notes, core.Query{})); !slices.Equal(got, noteIDs(notes)) {
			t.Fatalf("Filter(notes, {}) = %v, want %v", got, noteIDs(notes))
		}
	})
}

func TestProperty_FilterTagAndText(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		notes := notesGen().Draw(t, "notes")
		got := core.Filter(notes, core.Query{Tags: []string{"work"}, Text: "foo"})

		var want []string
		for _, n := range notes {
			text := strings.ToLower(n.Title + "\x00" + n.Body)
			if slices.Contains(n.Tags, "work") && strings.Contains(text, "foo") {
				want = append(want, n.ID)
			}
		}
		if ids := noteIDs(got); !slices.Equal(ids, want) {
			t.Fatalf("Filter = %v, want %v", ids, want)
		}
	})
}

func TestProperty_RankIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		notes := notesGen().Draw(t, "notes")
		w := core.DefaultWeights()

		first := core.Sorted(notes, now, w)
		second := core.Rank(first, now, w)
		if !slices.Equal(noteIDs(first), second) {
			t.Fatalf("re-ranking changed order: %v -> %v", noteIDs(first), second)
		}
	})
}

func TestProperty_DeleteRemovesIncidentEdges(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 8).Draw(t, "count")
		s := core.NewStore()
		for i := range count {
			if _, err := s.Put(core.Note{ID: fmt.Sprintf("n%d", i)}); err != nil {
				t.Fatal(err)
			}
		}
		edges := rapid.IntRange(0, count*count).Draw(t, "edges")
		for range edges {
			src := rapid.IntRange(0, count-1).Draw(t, "src")
			dst := rapid.IntRange(0, count-1).Draw(t, "dst")
			if src != dst {
				_ = s.Link(fmt.Sprintf("n%d", src), fmt.Sprintf("n%d", dst))
			}
		}

		x := fmt.Sprintf("n%d", rapid.IntRange(0, count-1).Draw(t, "x"))
		if err := s.Delete(x); err != nil {
			t.Fatal(err)
		}

		for _, n := range s.Notes() {
			if n.LinksTo(x) {
				t.Fatalf("%s still links to deleted %s", n.ID, x)
			}
		}
		for _, e := range s.Graph().Edges() {
			if e.Source == x || e.Target == x {
				t.Fatalf("edge %v survived deletion of %s", e, x)
			}
			if !s.Has(e.Source) || !s.Has(e.Target) {
				t.Fatalf("edge %v has a missing endpoint", e)
			}
		}
		if len(slices.Collect(s.Graph().DependentsOf(x))) != 0 || len(slices.Collect(s.Graph().DependenciesOf(x))) != 0 {
			t.Fatalf("graph queries for %s are not empty", x)
		}
	})
}
