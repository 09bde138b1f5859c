package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	gitDir := filepath.Join(root, "out.resourcesync-history")
	require.NoError(t, os.MkdirAll(out, 0o755))

	r, err := Open(gitDir, out)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(out, "resourcelist.xml"), []byte("<urlset/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "changelist_2024-01-01T00:00:00Z.xml"), []byte("<urlset/>"), 0o644))
	first, err := r.Snapshot("init")
	require.NoError(t, err)
	assert.Len(t, first, 40)

	again, err := r.Snapshot("update")
	require.NoError(t, err)
	assert.Empty(t, again, "no commit without changes")

	require.NoError(t, os.Remove(filepath.Join(out, "resourcelist.xml")))
	second, err := r.Snapshot("rebase")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	n, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	info, err := os.Stat(filepath.Join(out, ".git"))
	require.NoError(t, err)
	assert.False(t, info.IsDir(), "output only carries a gitdir pointer file")
}

func TestOpen_Reopens(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	gitDir := filepath.Join(root, "git")
	require.NoError(t, os.MkdirAll(out, 0o755))

	r, err := Open(gitDir, out)
	require.NoError(t, err)
	n, err := r.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, os.WriteFile(filepath.Join(out, "resourcesync.xml"), []byte("x"), 0o644))
	_, err = r.Snapshot("init")
	require.NoError(t, err)

	reopened, err := Open(gitDir, out)
	require.NoError(t, err)
	n, err = reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
