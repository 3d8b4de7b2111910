package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/meteora/pkg/core"
)

// run executes the CLI against vault and returns stdout.
func run(t *testing.T, vault string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--vault", vault}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, vault string, args ...string) string {
	t.Helper()
	out, err := run(t, vault, args...)
	require.NoError(t, err, "meteora %s\n%s", strings.Join(args, " "), out)
	return out
}

func listIDs(t *testing.T, vault string, args ...string) []string {
	t.Helper()
	out := mustRun(t, vault, append([]string{"list", "--json"}, args...)...)
	var listed []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed), out)
	ids := make([]string, len(listed))
	for i, n := range listed {
		ids[i] = n.ID
	}
	return ids
}

func newVault(t *testing.T, args ...string) string {
	t.Helper()
	vault := t.TempDir()
	out := mustRun(t, vault, append([]string{"init"}, args...)...)
	assert.Contains(t, out, "Initialized")
	return vault
}

func TestCLI_AddListShow(t *testing.T) {
	vault := newVault(t)
	tomorrow := time.Now().Add(24 * time.Hour).Format(time.RFC3339)

	mustRun(t, vault, "add", "Write", "essay", "--id", "essay", "-p", "5")
	mustRun(t, vault, "add", "--title", "File taxes", "--id", "taxes", "-p", "3", "--due", tomorrow, "-t", "money")

	_, err := os.Stat(filepath.Join(vault, "taxes.md"))
	require.NoError(t, err)

	assert.Equal(t, []string{"taxes", "essay"}, listIDs(t, vault))
	assert.Equal(t, []string{"taxes"}, listIDs(t, vault, "-t", "money"))
	assert.Equal(t, []string{"essay"}, listIDs(t, vault, "-q", "ESSAY"))

	out := mustRun(t, vault, "list")
	assert.Less(t, strings.Index(out, "File taxes"), strings.Index(out, "Write essay"))

	out = mustRun(t, vault, "show", "taxes", "--json")
	var shown struct {
		Title    string   `json:"title"`
		Priority float64  `json:"priority"`
		Tags     []string `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, "File taxes", shown.Title)
	assert.Equal(t, 3.0, shown.Priority)
	assert.Equal(t, []string{"money"}, shown.Tags)

	_, err = run(t, vault, "add", "dup", "--id", "essay")
	assert.Error(t, err)
}

func TestCLI_EditDone(t *testing.T) {
	vault := newVault(t)
	mustRun(t, vault, "add", "Laundry", "--id", "laundry", "-t", "home")
	mustRun(t, vault, "add", "Groceries", "--id", "groceries", "-p", "1")

	mustRun(t, vault, "edit", "laundry", "--done", "--untag", "home", "--every", "7")
	assert.Equal(t, []string{"groceries"}, listIDs(t, vault, "--hide-done"))

	out := mustRun(t, vault, "show", "laundry")
	assert.Contains(t, out, "every 7d")
	assert.NotContains(t, out, "home")

	mustRun(t, vault, "edit", "laundry", "--undone", "--eternal")
	assert.Len(t, listIDs(t, vault, "--hide-done"), 2)

	_, err := run(t, vault, "edit", "laundry", "--due", "2026-01-01", "--eternal")
	assert.Error(t, err)
	_, err = run(t, vault, "edit", "ghost", "--done")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCLI_LinksAndDelete(t *testing.T) {
	vault := newVault(t)
	mustRun(t, vault, "add", "Write essay", "--id", "essay")
	mustRun(t, vault, "add", "Research", "--id", "research")

	mustRun(t, vault, "link", "essay", "research")
	assert.Contains(t, mustRun(t, vault, "deps", "essay"), "Research")
	assert.Contains(t, mustRun(t, vault, "deps", "research", "--reverse"), "Write essay")

	_, err := run(t, vault, "link", "essay", "essay")
	assert.ErrorIs(t, err, core.ErrSelfLink)

	mustRun(t, vault, "delete", "research")
	assert.Contains(t, mustRun(t, vault, "deps", "essay"), "No links.")
	assert.Equal(t, []string{"essay"}, listIDs(t, vault))

	mustRun(t, vault, "add", "Research again", "--id", "research")
	mustRun(t, vault, "link", "essay", "research")
	mustRun(t, vault, "unlink", "essay", "research")
	assert.Contains(t, mustRun(t, vault, "deps", "essay"), "No links.")
}

func TestCLI_Tags(t *testing.T) {
	vault := newVault(t)
	mustRun(t, vault, "add", "Budget", "--id", "budget", "-t", "money")
	mustRun(t, vault, "tag", "add", "someday")

	_, err := run(t, vault, "tag", "add", "someday")
	assert.ErrorIs(t, err, core.ErrTagExists)

	mustRun(t, vault, "tag", "rename", "money", "finance")
	out := mustRun(t, vault, "tag", "list")
	assert.Contains(t, out, "finance")
	assert.Contains(t, out, "someday")
	assert.NotContains(t, out, "money")
	assert.Equal(t, []string{"budget"}, listIDs(t, vault, "-t", "finance"))

	mustRun(t, vault, "tag", "delete", "finance")
	assert.Empty(t, listIDs(t, vault, "-t", "finance"))
	assert.Equal(t, []string{"budget"}, listIDs(t, vault))
}

func TestCLI_ScratchAndLogbook(t *testing.T) {
	vault := newVault(t)
	mustRun(t, vault, "scratch", "add", "call", "the", "plumber")
	mustRun(t, vault, "scratch", "add", "idea for a talk")
	assert.Contains(t, mustRun(t, vault, "scratch", "list"), "call the plumber")

	out := mustRun(t, vault, "scratch", "promote", "1")
	assert.Contains(t, out, "Promoted section 1")
	assert.Len(t, listIDs(t, vault), 1)
	assert.NotContains(t, mustRun(t, vault, "scratch", "list"), "plumber")

	_, err := run(t, vault, "scratch", "remove", "5")
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)

	mustRun(t, vault, "logbook", "add", "shipped", "v1", "--day", "2026-01-02", "-t", "work")
	out = mustRun(t, vault, "logbook", "show", "2026-01-02")
	assert.Contains(t, out, "shipped v1")
	assert.Contains(t, mustRun(t, vault, "logbook", "show", "2026-01-03"), "nothing logged")
	assert.Contains(t, mustRun(t, vault, "tag", "list"), "work")
}

func TestCLI_Restore(t *testing.T) {
	vault := newVault(t, "--adapter", "snapshot")
	mustRun(t, vault, "add", "Keep me", "--id", "keep")

	snap := filepath.Join(vault, ".meteora", "meteora.json")
	require.NoError(t, os.WriteFile(snap, []byte("{broken"), 0644))

	_, err := run(t, vault, "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCorrupt)
	assert.Contains(t, err.Error(), "meteora restore --from-backup")

	_, err = run(t, vault, "restore")
	assert.Error(t, err)

	// The backup is the save made by init, before the note was added.
	out := mustRun(t, vault, "restore", "--from-backup")
	assert.Contains(t, out, "Restored 0 notes")
	assert.Empty(t, listIDs(t, vault))

	require.NoError(t, os.WriteFile(snap, []byte("{broken"), 0644))
	mustRun(t, vault, "restore", "--fresh")
	assert.Empty(t, listIDs(t, vault))
}

func TestCLI_RestoreHintWithoutBackup(t *testing.T) {
	vault := newVault(t)
	mustRun(t, vault, "add", "Fine", "--id", "fine")
	require.NoError(t, os.WriteFile(filepath.Join(vault, "broken.md"), []byte("---\ntitle: [\n"), 0644))

	_, err := run(t, vault, "list")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCorrupt)
	assert.Contains(t, err.Error(), "meteora restore --fresh")
	assert.NotContains(t, err.Error(), "--from-backup")

	_, err = run(t, vault, "restore", "--from-backup")
	assert.ErrorIs(t, err, core.ErrNoBackup)
}

func TestCLI_InitKeepsAdapter(t *testing.T) {
	vault := newVault(t, "--adapter", "sqlite")
	_, err := os.Stat(filepath.Join(vault, ".meteora", "meteora.db"))
	require.NoError(t, err)

	_, err = run(t, vault, "init", "--adapter", "snapshot")
	assert.Error(t, err)

	mustRun(t, vault, "add", "In a database", "--id", "db")
	assert.Equal(t, []string{"db"}, listIDs(t, vault))
}

func TestCLI_StatusConfigVersion(t *testing.T) {
	vault := newVault(t)

	var state struct {
		Notes          int    `json:"notes"`
		RepositoryType string `json:"repository_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, vault, "status")), &state))
	assert.Equal(t, "vault", state.RepositoryType)

	out := mustRun(t, vault, "config", "show")
	assert.Contains(t, out, "[storage]")
	assert.Contains(t, out, `adapter = "vault"`)

	_, err := run(t, vault, "config", "init")
	assert.Error(t, err, "init already wrote the file")
	mustRun(t, vault, "config", "init", "--force")

	assert.Contains(t, mustRun(t, vault, "version"), "meteora version")
}

func TestMatchPrefix(t *testing.T) {
	ids := []string{"3f2a10", "3f9b22", "a0c4"}

	id, err := matchPrefix(ids, "a0")
	require.NoError(t, err)
	assert.Equal(t, "a0c4", id)

	_, err = matchPrefix(ids, "3f")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = matchPrefix(ids, "zz")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2026-04-30", "2026-04-30 17:00", "2026-04-30T17:00:00Z"} {
		got, err := parseTime(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2026, got.Year())
		assert.Equal(t, time.April, got.Month())
	}
	_, err := parseTime("next tuesday")
	assert.Error(t, err)
}
