package project

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGit struct {
	files []string
	ok    bool
	err   error
	calls int
}

func (m *mockGit) GitTrackedFiles(ctx context.Context, root string) ([]string, bool, error) {
	m.calls++
	return m.files, m.ok, m.err
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(f), 0644))
	}
}

func TestIndexRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, ".project", "src/deep/file.go")
	idx := NewIndex(nil, nil, nil)

	t.Run("finds the marker in an ancestor", func(t *testing.T) {
		got, err := idx.Root(filepath.Join(root, "src", "deep"))
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("the directory itself can be the root", func(t *testing.T) {
		got, err := idx.Root(root)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("custom markers", func(t *testing.T) {
		custom := NewIndex([]string{"file.go"}, nil, nil)
		got, err := custom.Root(filepath.Join(root, "src", "deep"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "src", "deep"), got)
	})

	t.Run("no project", func(t *testing.T) {
		custom := NewIndex([]string{"no-such-marker-anywhere"}, nil, nil)
		_, err := custom.Root(root)
		assert.True(t, errors.Is(err, ErrNoProject))

		_, err = idx.Root("")
		assert.ErrorIs(t, err, ErrNoProject)
	})
}

func TestIndexFiles(t *testing.T) {
	ctx := context.Background()

	t.Run("walks sorted and skips .git", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "z.txt", "a/b.txt", ".git/HEAD", "a.txt")

		files, err := NewIndex(nil, nil, nil).Files(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "a/b.txt", "z.txt"}, files)
	})

	t.Run("prefers git and sorts its output", func(t *testing.T) {
		git := &mockGit{files: []string{"c.py", "a.py"}, ok: true}
		files, err := NewIndex(nil, git, nil).Files(ctx, t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, []string{"a.py", "c.py"}, files)
		assert.Equal(t, 1, git.calls)
	})

	t.Run("falls back to walking outside git", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, "only.txt")
		files, err := NewIndex(nil, &mockGit{}, nil).Files(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, []string{"only.txt"}, files)
	})

	t.Run("git errors propagate", func(t *testing.T) {
		_, err := NewIndex(nil, &mockGit{err: errors.New("boom")}, nil).Files(ctx, t.TempDir())
		assert.Error(t, err)
	})
}
