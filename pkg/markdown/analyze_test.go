package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	t.Run("Checklist Progress", func(t *testing.T) {
		a := Analyze("# Groceries\n\n- [x] milk\n- [ ] eggs\n- [x] bread\n- [ ] tea\n")
		assert.Equal(t, "Groceries", a.Title)
		assert.Equal(t, 2, a.Checked)
		assert.Equal(t, 4, a.Total)
		assert.InDelta(t, 0.5, a.Progress, 1e-9)
	})

	t.Run("No Checklist Means Zero Progress", func(t *testing.T) {
		a := Analyze("just words")
		assert.Equal(t, 0, a.Total)
		assert.Zero(t, a.Progress)
	})

	t.Run("Title Falls Back To First Line", func(t *testing.T) {
		a := Analyze("\n\n- buy a plant\nwater it daily\n")
		assert.Equal(t, "buy a plant", a.Title)
		assert.Equal(t, "water it daily", a.Excerpt)
	})

	t.Run("Collects URLs", func(t *testing.T) {
		a := Analyze("see https://example.com and [docs](https://go.dev)\n\nagain [docs](https://go.dev)")
		assert.ElementsMatch(t, []string{"https://example.com", "https://go.dev"}, a.URLs)
	})

	t.Run("Long Title Is Truncated", func(t *testing.T) {
		long := ""
		for i := 0; i < 100; i++ {
			long += "x"
		}
		a := Analyze(long)
		assert.Equal(t, maxTitleRunes, len([]rune(a.Title)))
	})

	t.Run("Empty Body", func(t *testing.T) {
		a := Analyze("")
		assert.Empty(t, a.Title)
		assert.Empty(t, a.Excerpt)
		assert.Empty(t, a.URLs)
	})
}
