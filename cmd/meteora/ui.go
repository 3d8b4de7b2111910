package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/meteora/pkg/core"
)

var (
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	scoreStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	okMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
)

// tagChip renders a tag on its derived color with readable text.
func tagChip(name string) string {
	c := core.TagColor(name)
	fg := "#ffffff"
	if c.Luminance() > 0.6 {
		fg = "#000000"
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(c.Hex())).
		Foreground(lipgloss.Color(fg)).
		Padding(0, 1).
		Render(name)
}

func shortID(id string) string {
	if len(id) > 8 && !strings.Contains(id, "/") {
		return id[:8]
	}
	return id
}

func noteLine(n core.Note, score float64) string {
	title := n.DisplayTitle()
	if title == "" {
		title = dimStyle.Render("(untitled)")
	}
	if n.Done {
		title = doneStyle.Render(title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", scoreStyle.Render(fmt.Sprintf("%5.2f", score)), idStyle.Render(shortID(n.ID)), title)
	if n.Progress > 0 {
		fmt.Fprintf(&b, " %s", dimStyle.Render(fmt.Sprintf("[%d%%]", int(n.Progress*100))))
	}
	if _, ok := n.Deadline.(core.Eternal); !ok && n.Deadline != nil {
		fmt.Fprintf(&b, " %s", dimStyle.Render(describeDeadline(n.Deadline)))
	}
	for _, tag := range n.Tags {
		b.WriteString(" ")
		b.WriteString(tagChip(tag))
	}
	return b.String()
}

func describeDeadline(d core.Deadline) string {
	switch d := d.(type) {
	case core.Fixed:
		return "due " + d.At.Local().Format("2006-01-02 15:04")
	case core.Periodic:
		return fmt.Sprintf("every %dd from %s", d.EveryDays, d.Start.Local().Format(time.DateOnly))
	default:
		return "no deadline"
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
