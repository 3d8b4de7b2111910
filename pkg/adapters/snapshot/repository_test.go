package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/meteora/pkg/adapters/snapshot"
	"github.com/aretw0/meteora/pkg/core"
	"github.com/aretw0/meteora/pkg/seal"
)

var created = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func snapshotWith(t *testing.T, ids ...string) core.Snapshot {
	t.Helper()
	s := core.NewStore()
	for _, id := range ids {
		_, err := s.Put(core.Note{ID: id, Body: "body of " + id, CreatedAt: created, Priority: 4})
		require.NoError(t, err)
	}
	return s.Snapshot()
}

func ids(snap core.Snapshot) []string {
	out := make([]string, len(snap.Notes))
	for i, n := range snap.Notes {
		out[i] = n.ID
	}
	return out
}

func newRepo(t *testing.T, sealer *seal.Sealer) *snapshot.Repository {
	t.Helper()
	repo := snapshot.NewRepository(snapshot.Config{
		Path:   filepath.Join(t.TempDir(), "data", "notes.json"),
		Sealer: sealer,
	})
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestRepository_LoadMissing(t *testing.T) {
	repo := newRepo(t, nil)
	snap, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Notes)

	_, err = repo.LoadBackup(context.Background())
	assert.ErrorIs(t, err, core.ErrNoBackup)
}

func TestRepository_SaveRotatesBackup(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, nil)

	require.NoError(t, repo.Save(ctx, snapshotWith(t, "a")))
	assert.NoFileExists(t, repo.BackupPath())

	require.NoError(t, repo.Save(ctx, snapshotWith(t, "a", "b")))
	assert.FileExists(t, repo.BackupPath())

	current, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(current))

	backup, err := repo.LoadBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(backup))

	entries, err := os.ReadDir(filepath.Dir(repo.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")

	state := repo.State().(snapshot.RepositoryState)
	assert.True(t, state.HasBackup)
	assert.NotNil(t, state.LastSave)
}

func TestRepository_Corrupt(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, nil)
	require.NoError(t, repo.Save(ctx, snapshotWith(t, "a")))
	require.NoError(t, repo.Save(ctx, snapshotWith(t, "a", "b")))
	require.NoError(t, os.WriteFile(repo.Path(), []byte("{not json"), 0644))

	_, err := repo.Load(ctx)
	var le *core.LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Recoverable())

	backup, err := repo.LoadBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(backup))
}

func TestRepository_Sealed(t *testing.T) {
	ctx := context.Background()
	params := seal.Params{Memory: 1024, Iterations: 1, Threads: 1}
	sealer, err := seal.NewWithParams("correct horse", params)
	require.NoError(t, err)

	repo := newRepo(t, sealer)
	require.NoError(t, repo.Save(ctx, snapshotWith(t, "secret")))

	data, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.True(t, seal.IsSealed(string(data)))
	assert.NotContains(t, string(data), "body of secret")

	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"secret"}, ids(snap))

	wrong, err := seal.NewWithParams("battery staple", params)
	require.NoError(t, err)
	_, err = snapshot.NewRepository(snapshot.Config{Path: repo.Path(), Sealer: wrong}).Load(ctx)
	var le *core.LoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, le.Recoverable())
}

func TestRepository_ReadOnly(t *testing.T) {
	repo := snapshot.NewRepository(snapshot.Config{Path: filepath.Join(t.TempDir(), "notes.json"), ReadOnly: true})
	require.NoError(t, repo.Initialize(context.Background()))
	assert.ErrorIs(t, repo.Save(context.Background(), core.Snapshot{}), core.ErrReadOnly)
}

func TestService_RecoversFromBackup(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t, nil)
	require.NoError(t, repo.Save(ctx, snapshotWith(t, "old")))
	require.NoError(t, repo.Save(ctx, snapshotWith(t, "old", "new")))
	require.NoError(t, os.WriteFile(repo.Path(), []byte("garbage"), 0644))

	svc := core.NewService(repo)
	err := svc.Load(ctx)
	var le *core.LoadError
	require.ErrorAs(t, err, &le)
	require.True(t, le.Recoverable())

	require.NoError(t, svc.LoadBackup(ctx))
	assert.Equal(t, 1, svc.Len())
	assert.True(t, svc.Dirty())

	require.NoError(t, svc.Save(ctx))
	assert.False(t, svc.Dirty())
	snap, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids(snap))
}
