// Package markdown derives note attributes from a Markdown body: a display
// title, checklist progress, referenced URLs and a short excerpt.
package markdown

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	maxTitleRunes   = 80
	maxExcerptRunes = 140
)

var parser = goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser()

// Analysis is the result of Analyze.
type Analysis struct {
	Title string
	// Checked and Total count GFM task list items ("- [x]" / "- [ ]").
	Checked int
	Total   int
	// Progress is Checked/Total, or 0 when the body has no checklist.
	Progress float64
	URLs     []string
	Excerpt  string
}

// Analyze parses body and never fails; unparseable input yields zero values.
func Analyze(body string) Analysis {
	src := []byte(body)
	doc := parser.Parse(text.NewReader(src))

	var a Analysis
	seen := make(map[string]bool)
	addURL := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		a.URLs = append(a.URLs, u)
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *extast.TaskCheckBox:
			a.Total++
			if v.IsChecked {
				a.Checked++
			}
		case *ast.Heading:
			if a.Title == "" {
				a.Title = truncate(linesText(v, src), maxTitleRunes)
			}
		case *ast.Link:
			addURL(string(v.Destination))
		case *ast.AutoLink:
			addURL(string(v.URL(src)))
		}
		return ast.WalkContinue, nil
	})

	if a.Total > 0 {
		a.Progress = float64(a.Checked) / float64(a.Total)
	}
	if a.Title == "" {
		a.Title = truncate(firstLine(body), maxTitleRunes)
	}
	a.Excerpt = excerpt(body, a.Title)
	return a
}

// Progress is a shortcut for Analyze(body).Progress.
func Progress(body string) float64 {
	return Analyze(body).Progress
}

func linesText(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}

func firstLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if line = cleanLine(line); line != "" {
			return line
		}
	}
	return ""
}

// cleanLine strips list, heading and checkbox markers.
func cleanLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "#>")
	line = strings.TrimSpace(line)
	for _, prefix := range []string{"- [ ] ", "- [x] ", "- [X] ", "* ", "- ", "+ "} {
		line = strings.TrimPrefix(line, prefix)
	}
	return strings.TrimSpace(line)
}

func excerpt(body, title string) string {
	var parts []string
	skipped := false
	for _, line := range strings.Split(body, "\n") {
		line = cleanLine(line)
		if line == "" {
			continue
		}
		if !skipped && line == title {
			skipped = true
			continue
		}
		parts = append(parts, line)
	}
	return truncate(strings.Join(strings.Fields(strings.Join(parts, " ")), " "), maxExcerptRunes)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit-1])) + "…"
}
