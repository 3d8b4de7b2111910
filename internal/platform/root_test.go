package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRoot(t *testing.T) {
	// base/
	//   project/        .git
	//     docs/
	//     notes/        .meteora
	//       work/
	//   worktree/       .git (file)
	//   stray/
	base := t.TempDir()
	project := filepath.Join(base, "project")
	docs := filepath.Join(project, "docs")
	notes := filepath.Join(project, "notes")
	work := filepath.Join(notes, "work")
	worktree := filepath.Join(base, "worktree")
	stray := filepath.Join(base, "stray")

	for _, dir := range []string{docs, work, worktree, stray, filepath.Join(project, ".git"), filepath.Join(notes, ".meteora")} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(worktree, ".git"), []byte("gitdir: ../project/.git\n"), 0644))

	tests := []struct {
		name  string
		start string
		want  string
	}{
		{"vault root", notes, notes},
		{"vault nested in a repository", work, notes},
		{"repository without vault", docs, project},
		{"git worktree file", worktree, worktree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.start)
			require.NoError(t, err)
			assert.Equal(t, filepath.Clean(tt.want), filepath.Clean(got))
		})
	}

	t.Run("relative start", func(t *testing.T) {
		t.Chdir(work)
		got, err := FindRoot(".")
		require.NoError(t, err)
		want, err := filepath.EvalSymlinks(notes)
		require.NoError(t, err)
		resolved, err := filepath.EvalSymlinks(got)
		require.NoError(t, err)
		assert.Equal(t, want, resolved)
	})

	t.Run("no marker", func(t *testing.T) {
		if _, err := FindRoot(filepath.Dir(base)); err == nil {
			t.Skip("temp dir lies inside a repository")
		}
		got, err := FindRoot(stray)
		assert.ErrorIs(t, err, ErrRootNotFound)
		assert.Empty(t, got)
	})
}

func TestKeepsBackup(t *testing.T) {
	for adapter, want := range map[string]bool{
		AdapterVault:    false,
		AdapterSnapshot: true,
		AdapterSQLite:   false,
		AdapterPostgres: false,
		AdapterS3:       true,
		"":              false,
	} {
		assert.Equal(t, want, KeepsBackup(adapter), adapter)
	}
}
