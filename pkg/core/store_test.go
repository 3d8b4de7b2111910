package core_test

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/meteora/pkg/core"
)

var created = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func mustPut(t *testing.T, s *core.Store, n core.Note) core.Note {
	t.Helper()
	stored, err := s.Put(n)
	require.NoError(t, err)
	return stored
}

func TestStore_Put(t *testing.T) {
	t.Run("normalizes and registers tags", func(t *testing.T) {
		s := core.NewStore()
		n := mustPut(t, s, core.Note{
			ID:       " a ",
			Body:     "- [x] one\n- [ ] two\n",
			Priority: 42,
			Tags:     []string{"work", " work", "", "home"},
		})

		assert.Equal(t, "a", n.ID)
		assert.Equal(t, core.MaxPriority, n.Priority)
		assert.InDelta(t, 0.5, n.Progress, 1e-9)
		assert.Equal(t, []string{"home", "work"}, n.Tags)
		assert.Equal(t, core.Eternal{}, n.Deadline)
		assert.Len(t, s.Tags(), 2)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := core.NewStore().Put(core.Note{})
		assert.ErrorIs(t, err, core.ErrEmptyID)
	})

	t.Run("rejects self link", func(t *testing.T) {
		_, err := core.NewStore().Put(core.Note{ID: "a", Links: []string{"a"}})
		assert.ErrorIs(t, err, core.ErrSelfLink)
	})

	t.Run("rejects unknown link target", func(t *testing.T) {
		s := core.NewStore()
		_, err := s.Put(core.Note{ID: "a", Links: []string{"ghost"}})
		assert.ErrorIs(t, err, core.ErrNotFound)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("replacing rewires the graph", func(t *testing.T) {
		s := core.NewStore()
		mustPut(t, s, core.Note{ID: "b"})
		mustPut(t, s, core.Note{ID: "c"})
		mustPut(t, s, core.Note{ID: "a", Links: []string{"b"}})
		mustPut(t, s, core.Note{ID: "a", Links: []string{"c"}})

		assert.False(t, s.Graph().HasEdge("a", "b"))
		assert.True(t, s.Graph().HasEdge("a", "c"))
	})

	t.Run("returned copies are detached", func(t *testing.T) {
		s := core.NewStore()
		n := mustPut(t, s, core.Note{ID: "a", Tags: []string{"x"}})
		n.Tags[0] = "mutated"

		got, err := s.Get("a")
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, got.Tags)
	})
}

func TestStore_Delete(t *testing.T) {
	s := core.NewStore()
	mustPut(t, s, core.Note{ID: "x"})
	mustPut(t, s, core.Note{ID: "a", Links: []string{"x"}})
	mustPut(t, s, core.Note{ID: "b", Links: []string{"x", "a"}})
	require.NoError(t, s.Link("x", "a"))

	require.NoError(t, s.Delete("x"))

	assert.False(t, s.Has("x"))
	for _, n := range s.Notes() {
		assert.False(t, n.LinksTo("x"), "note %s still links to x", n.ID)
	}
	assert.Empty(t, slices.Collect(s.Graph().DependentsOf("x")))
	assert.Empty(t, slices.Collect(s.Graph().DependenciesOf("x")))
	assert.Equal(t, []core.Link{{Source: "b", Target: "a"}}, s.Graph().Edges())

	assert.ErrorIs(t, s.Delete("x"), core.ErrNotFound)
}

func TestStore_LinkUnlink(t *testing.T) {
	s := core.NewStore()
	mustPut(t, s, core.Note{ID: "a"})
	mustPut(t, s, core.Note{ID: "b"})

	assert.ErrorIs(t, s.Link("a", "a"), core.ErrSelfLink)
	assert.ErrorIs(t, s.Link("a", "ghost"), core.ErrNotFound)
	assert.ErrorIs(t, s.Link("ghost", "a"), core.ErrNotFound)

	require.NoError(t, s.Link("a", "b"))
	require.NoError(t, s.Link("b", "a"), "cycles are allowed")

	a, _ := s.Get("a")
	assert.Equal(t, []string{"b"}, a.Links)

	require.NoError(t, s.Unlink("a", "b"))
	require.NoError(t, s.Unlink("a", "b"), "unlinking twice is harmless")
	a, _ = s.Get("a")
	assert.Empty(t, a.Links)
	assert.True(t, s.Graph().HasEdge("b", "a"))
}

func TestStore_Tags(t *testing.T) {
	s := core.NewStore()
	mustPut(t, s, core.Note{ID: "a", Tags: []string{"work", "urgent"}})
	mustPut(t, s, core.Note{ID: "b", Tags: []string{"work"}})

	t.Run("add", func(t *testing.T) {
		require.NoError(t, s.AddTag("idea"))
		assert.ErrorIs(t, s.AddTag("idea"), core.ErrTagExists)
		assert.Error(t, s.AddTag("  "))
		assert.Equal(t, 0, s.TagUsage()["idea"])
		assert.Equal(t, 2, s.TagUsage()["work"])
	})

	t.Run("rename propagates", func(t *testing.T) {
		require.NoError(t, s.RenameTag("work", "job"))
		assert.ErrorIs(t, s.RenameTag("work", "x"), core.ErrTagNotFound)
		assert.ErrorIs(t, s.RenameTag("job", "urgent"), core.ErrTagExists)

		a, _ := s.Get("a")
		assert.Equal(t, []string{"job", "urgent"}, a.Tags)
	})

	t.Run("delete keeps notes", func(t *testing.T) {
		require.NoError(t, s.DeleteTag("job"))
		assert.ErrorIs(t, s.DeleteTag("job"), core.ErrTagNotFound)
		assert.Equal(t, 2, s.Len())
		for _, n := range s.Notes() {
			assert.False(t, n.HasTag("job"))
		}
		names := make([]string, 0)
		for _, tag := range s.Tags() {
			names = append(names, tag.Name)
		}
		assert.Equal(t, []string{"idea", "urgent"}, names)
	})
}

func TestStore_TagEditsReachLogbook(t *testing.T) {
	tagNames := func(s *core.Store) []string {
		names := make([]string, 0)
		for _, tag := range s.Tags() {
			names = append(names, tag.Name)
		}
		return names
	}

	t.Run("deleted tag stays gone after restore", func(t *testing.T) {
		s := core.NewStore()
		s.AddLogEntry(created, core.LogEntry{Text: "met Bob", Tags: []string{"old", "people"}})
		require.NoError(t, s.DeleteTag("old"))

		_, err := s.Restore(s.Snapshot())
		require.NoError(t, err)
		assert.Equal(t, []string{"people"}, tagNames(s))
		assert.Equal(t, []string{"people"}, s.LogDay(created)[0].Tags)
	})

	t.Run("renamed tag keeps only the new name", func(t *testing.T) {
		s := core.NewStore()
		s.AddLogEntry(created, core.LogEntry{Text: "shipped", Tags: []string{"old"}})
		c := s.Clone()
		require.NoError(t, s.RenameTag("old", "work"))

		_, err := s.Restore(s.Snapshot())
		require.NoError(t, err)
		assert.Equal(t, []string{"work"}, tagNames(s))
		assert.Equal(t, []string{"work"}, s.LogDay(created)[0].Tags)
		assert.Equal(t, []string{"old"}, c.LogDay(created)[0].Tags)
	})
}

func TestStore_Journal(t *testing.T) {
	s := core.NewStore()

	t.Run("scratchpad promote", func(t *testing.T) {
		s.AddScratch("first")
		i := s.AddScratch("# Second\nbody")
		assert.Equal(t, 1, i)

		n, err := s.PromoteScratch(1, created)
		require.NoError(t, err)
		assert.Equal(t, "# Second\nbody", n.Body)
		assert.Equal(t, "Second", n.DisplayTitle())
		assert.Equal(t, created, n.CreatedAt)
		assert.Equal(t, []string{"first"}, s.Scratches())
		assert.True(t, s.Has(n.ID))

		_, err = s.PromoteScratch(5, created)
		assert.ErrorIs(t, err, core.ErrIndexOutOfRange)
		assert.ErrorIs(t, s.RemoveScratch(-1), core.ErrIndexOutOfRange)
		require.NoError(t, s.RemoveScratch(0))
		assert.Empty(t, s.Scratches())
	})

	t.Run("logbook groups by day", func(t *testing.T) {
		s.AddLogEntry(created, core.LogEntry{Text: "morning", Tags: []string{"daily"}})
		s.AddLogEntry(created.Add(6*time.Hour), core.LogEntry{Text: "afternoon"})
		s.AddLogEntry(created.Add(24*time.Hour), core.LogEntry{Text: "next day"})

		day := s.LogDay(created)
		require.Len(t, day, 2)
		assert.Equal(t, "afternoon", day[1].Text)
		assert.Equal(t, []string{"2024-05-01", "2024-05-02"}, s.LogDays())
		assert.Contains(t, s.TagUsage(), "daily")
	})
}

func TestStore_CloneIsolation(t *testing.T) {
	s := core.NewStore()
	mustPut(t, s, core.Note{ID: "a"})
	mustPut(t, s, core.Note{ID: "b", Links: []string{"a"}})

	c := s.Clone()
	require.NoError(t, c.Delete("a"))
	c.AddScratch("only in clone")

	assert.True(t, s.Has("a"))
	assert.True(t, s.Graph().HasEdge("b", "a"))
	assert.Empty(t, s.Scratches())
}

func TestStore_SnapshotRestore(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		s := core.NewStore()
		mustPut(t, s, core.Note{ID: "a", Tags: []string{"t"}, Deadline: core.Fixed{At: created}})
		mustPut(t, s, core.Note{ID: "b", Links: []string{"a"}})
		require.NoError(t, s.AddTag("unused"))
		s.AddScratch("scratch")
		s.AddLogEntry(created, core.LogEntry{Text: "entry"})

		restored := core.NewStore()
		pruned, err := restored.Restore(s.Snapshot())
		require.NoError(t, err)
		assert.Zero(t, pruned)
		assert.Equal(t, s.Snapshot(), restored.Snapshot())
	})

	t.Run("prunes dangling and self links", func(t *testing.T) {
		s := core.NewStore()
		pruned, err := s.Restore(core.Snapshot{Notes: []core.Note{
			{ID: "a", Links: []string{"a", "b", "ghost"}},
			{ID: "b"},
		}})
		require.NoError(t, err)
		assert.Equal(t, 2, pruned)
		assert.Equal(t, []core.Link{{Source: "a", Target: "b"}}, s.Graph().Edges())
	})

	t.Run("duplicate ids are corrupt and leave the store untouched", func(t *testing.T) {
		s := core.NewStore()
		mustPut(t, s, core.Note{ID: "keep"})

		_, err := s.Restore(core.Snapshot{Notes: []core.Note{{ID: "a"}, {ID: "a"}}})
		assert.ErrorIs(t, err, core.ErrCorrupt)
		assert.True(t, s.Has("keep"))
	})
}
