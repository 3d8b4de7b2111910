package fs_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/meteora/pkg/adapters/fs"
)

// BenchmarkLoad_1k_Files measures loading a vault of 1,000 hand-written notes.
// Run with: go test -bench=Load_1k -benchmem -run=^$ ./pkg/adapters/fs/
func BenchmarkLoad_1k_Files(b *testing.B) {
	dir := b.TempDir()
	for i := 0; i < 1000; i++ {
		content := fmt.Sprintf("---\ntitle: Note %d\npriority: %d\ntags: [bench, load]\n---\n- [x] step one\n- [ ] step two\n", i, i%10)
		require.NoError(b, os.WriteFile(filepath.Join(dir, fmt.Sprintf("note-%d.md", i)), []byte(content), 0644))
	}

	repo := fs.NewRepository(fs.Config{Path: dir})
	require.NoError(b, repo.Initialize(context.Background()))
	ctx := context.Background()

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		snap, err := repo.Load(ctx)
		if err != nil {
			b.Fatal(err)
		}
		if len(snap.Notes) != 1000 {
			b.Fatalf("expected 1000 notes, got %d", len(snap.Notes))
		}
	}
}
