package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/meteora/pkg/adapters/postgres"
	"github.com/aretw0/meteora/pkg/core"
)

func newRepo(t *testing.T) *postgres.Repository {
	t.Helper()
	dsn := os.Getenv("METEORA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("METEORA_TEST_POSTGRES_DSN not set")
	}
	repo := postgres.NewRepository(postgres.Config{DSN: dsn})
	require.NoError(t, repo.Initialize(context.Background()))
	t.Cleanup(repo.Close)
	return repo
}

func TestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	s := core.NewStore()
	_, err := s.Put(core.Note{ID: "a", Title: "Alpha", CreatedAt: created, Priority: 7, Tags: []string{"work"}})
	require.NoError(t, err)
	_, err = s.Put(core.Note{ID: "b", CreatedAt: created, Deadline: core.Fixed{At: created.Add(time.Hour)}, Links: []string{"a"}})
	require.NoError(t, err)
	s.AddScratch("idea")
	s.AddLogEntry(created, core.LogEntry{Text: "done", Tags: []string{"work"}})

	require.NoError(t, repo.Save(ctx, s.Snapshot()))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	restored := core.NewStore()
	_, err = restored.Restore(got)
	require.NoError(t, err)

	assert.Equal(t, s.Snapshot(), restored.Snapshot())
	assert.Equal(t, "postgres", repo.ComponentType())

	require.NoError(t, repo.Save(ctx, core.Snapshot{}))
	empty, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.Notes)
}

func TestRepository_RequiresDSN(t *testing.T) {
	err := postgres.NewRepository(postgres.Config{}).Initialize(context.Background())
	assert.Error(t, err)
}
