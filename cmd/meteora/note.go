package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/codec"
	"github.com/aretw0/meteora/pkg/core"
)

// noteFlags are the note fields settable from the command line.
type noteFlags struct {
	id       string
	title    string
	body     string
	priority float64
	tags     []string
	untag    []string
	due      string
	every    int
	start    string
	eternal  bool
	done     bool
	undone   bool
}

func (f *noteFlags) register(cmd *cobra.Command, edit bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "Note title")
	flags.StringVar(&f.body, "body", "", "Note body in Markdown; '-' reads stdin")
	flags.Float64VarP(&f.priority, "priority", "p", 0, "Priority from 0 to 10")
	flags.StringSliceVarP(&f.tags, "tag", "t", nil, "Tag to add (repeatable)")
	flags.StringVar(&f.due, "due", "", "Fixed deadline (YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC3339)")
	flags.IntVar(&f.every, "every", 0, "Recur every N days")
	flags.StringVar(&f.start, "start", "", "First occurrence of a recurring deadline (default: now)")
	flags.BoolVar(&f.done, "done", false, "Mark the note as done")
	if edit {
		flags.StringSliceVar(&f.untag, "untag", nil, "Tag to remove (repeatable)")
		flags.BoolVar(&f.eternal, "eternal", false, "Remove the deadline")
		flags.BoolVar(&f.undone, "undone", false, "Mark the note as not done")
	} else {
		flags.StringVar(&f.id, "id", "", "Note ID (default: a new UUID); may be a path such as projects/garden")
	}
}

// apply copies the flags that were set onto n.
func (f *noteFlags) apply(cmd *cobra.Command, n *core.Note, now time.Time) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		n.Title = f.title
	}
	if flags.Changed("body") {
		body, err := readBody(cmd.InOrStdin(), f.body)
		if err != nil {
			return err
		}
		n.Body = body
	}
	if flags.Changed("priority") {
		n.Priority = f.priority
	}
	n.Tags = append(n.Tags, f.tags...)
	for _, tag := range f.untag {
		n.Tags = remove(n.Tags, tag)
	}

	d, err := f.deadline(now)
	if err != nil {
		return err
	}
	if d != nil {
		n.Deadline = d
	}

	switch {
	case f.done && f.undone:
		return errors.New("--done and --undone are exclusive")
	case f.done:
		n.Done = true
	case f.undone:
		n.Done = false
	}
	return nil
}

// deadline returns the deadline selected by the flags, or nil to keep the current one.
func (f *noteFlags) deadline(now time.Time) (core.Deadline, error) {
	set := 0
	for _, b := range []bool{f.due != "", f.every > 0, f.eternal} {
		if b {
			set++
		}
	}
	if set > 1 {
		return nil, errors.New("--due, --every and --eternal are exclusive")
	}

	switch {
	case f.due != "":
		at, err := parseTime(f.due)
		if err != nil {
			return nil, err
		}
		return core.Fixed{At: at}, nil
	case f.every > 0:
		start := now
		if f.start != "" {
			var err error
			if start, err = parseTime(f.start); err != nil {
				return nil, err
			}
		}
		return core.NewDeadline(core.KindPeriodic, start, f.every)
	case f.eternal:
		return core.Eternal{}, nil
	case f.every < 0:
		return nil, fmt.Errorf("--every must be positive, got %d", f.every)
	}
	return nil, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", time.DateOnly}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC3339", s)
}

func readBody(stdin io.Reader, value string) (string, error) {
	if value != "-" {
		return value, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), nil
}

func remove(set []string, v string) []string {
	out := set[:0:0]
	for _, s := range set {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// resolveID accepts a full ID or an unambiguous prefix of one.
func resolveID(st *core.Store, arg string) (string, error) {
	if st.Has(arg) {
		return arg, nil
	}
	ids := make([]string, 0, st.Len())
	for _, n := range st.Notes() {
		ids = append(ids, n.ID)
	}
	return matchPrefix(ids, arg)
}

func matchPrefix(ids []string, arg string) (string, error) {
	var match string
	for _, id := range ids {
		if !strings.HasPrefix(id, arg) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("ambiguous ID prefix %q", arg)
		}
		match = id
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", core.ErrNotFound, arg)
	}
	return match, nil
}

func newAddCmd(a *app) *cobra.Command {
	f := &noteFlags{}
	cmd := &cobra.Command{
		Use:   "add [title words...]",
		Short: "Add a note",
		Long: `Add a note. The title may be given as arguments or with --title; without
one, the first line of the body is shown instead.`,
		Example: `  meteora add File taxes --due 2026-04-30 -p 6 -t money
  meteora add --id projects/garden --body - < garden.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 && !cmd.Flags().Changed("title") {
				if err := cmd.Flags().Set("title", strings.Join(args, " ")); err != nil {
					return err
				}
			}
			var added core.Note
			err := a.commit(cmd.Context(), func(st *core.Store) error {
				now := time.Now()
				n := core.NewNote("", "", now)
				if f.id != "" {
					if st.Has(f.id) {
						return fmt.Errorf("note %s already exists", f.id)
					}
					n.ID = f.id
				}
				if err := f.apply(cmd, &n, now); err != nil {
					return err
				}
				var err error
				added, err = st.Put(n)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added %s\n", okMark, added.ID)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	f := &noteFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a note",
		Args:  cobra.ExactArgs(1),
		Example: `  meteora edit 3f2a --done
  meteora edit 3f2a --every 7 --untag someday`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			err := a.commit(cmd.Context(), func(st *core.Store) error {
				var err error
				if id, err = resolveID(st, args[0]); err != nil {
					return err
				}
				n, err := st.Get(id)
				if err != nil {
					return err
				}
				if err := f.apply(cmd, &n, time.Now()); err != nil {
					return err
				}
				_, err = st.Put(n)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Updated %s\n", okMark, id)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note and every link to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			err := a.commit(cmd.Context(), func(st *core.Store) error {
				var err error
				if id, err = resolveID(st, args[0]); err != nil {
					return err
				}
				return st.Delete(id)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", okMark, id)
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(svc *core.Service) error {
				n, err := findNote(svc, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, codec.FromNote(n))
				}

				score := core.Score(n, svc.Now(), svc.Weights())
				fmt.Fprintln(out, noteLine(n, score))
				fmt.Fprintf(out, "%s %s\n", keyStyle.Render("id:      "), n.ID)
				fmt.Fprintf(out, "%s %s\n", keyStyle.Render("created: "), n.CreatedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "%s %.1f\n", keyStyle.Render("priority:"), n.Priority)
				fmt.Fprintf(out, "%s %s\n", keyStyle.Render("deadline:"), describeDeadline(n.Deadline))
				if len(n.Links) > 0 {
					fmt.Fprintf(out, "%s %s\n", keyStyle.Render("links:   "), strings.Join(n.Links, ", "))
				}
				if n.Body != "" {
					fmt.Fprintf(out, "\n%s\n", strings.TrimRight(n.Body, "\n"))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

// findNote resolves arg against the published store.
func findNote(svc *core.Service, arg string) (core.Note, error) {
	if n, err := svc.Note(arg); err == nil {
		return n, nil
	}
	ids := make([]string, 0, svc.Len())
	for _, n := range svc.View(core.Query{}) {
		ids = append(ids, n.ID)
	}
	id, err := matchPrefix(ids, arg)
	if err != nil {
		return core.Note{}, err
	}
	return svc.Note(id)
}
