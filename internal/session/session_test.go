package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "session.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("content of "+filepath.Base(path)), 0644))
	return path
}

func TestOpenAndLookup(t *testing.T) {
	s, dir := newTestSession(t)
	path := touch(t, filepath.Join(dir, "notes.org"))

	doc, err := s.Open(path, OpenOptions{Visible: true, Active: true})
	require.NoError(t, err)
	assert.Equal(t, "notes.org", doc.Name)
	assert.Equal(t, document.KindOutline, doc.Kind)
	assert.True(t, doc.Visible)

	found, ok := s.Lookup("notes.org")
	require.True(t, ok)
	assert.Equal(t, path, found.Path)

	text, err := found.Text()
	require.NoError(t, err)
	assert.Equal(t, "content of notes.org", text)

	_, ok = s.Lookup("nope")
	assert.False(t, ok)
}

func TestOpenUniqueNames(t *testing.T) {
	s, dir := newTestSession(t)
	a := touch(t, filepath.Join(dir, "a", "main.go"))
	b := touch(t, filepath.Join(dir, "b", "main.go"))

	first, err := s.Open(a, OpenOptions{})
	require.NoError(t, err)
	second, err := s.Open(b, OpenOptions{})
	require.NoError(t, err)
	assert.Equal(t, "main.go", first.Name)
	assert.Equal(t, "main.go<2>", second.Name)

	reopened, err := s.Open(a, OpenOptions{Visible: true})
	require.NoError(t, err)
	assert.Equal(t, "main.go", reopened.Name)
	assert.True(t, reopened.Visible)

	docs, err := s.Documents()
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestActiveDocument(t *testing.T) {
	s, dir := newTestSession(t)

	_, err := s.Active()
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = s.Open(touch(t, filepath.Join(dir, "one.txt")), OpenOptions{Active: true})
	require.NoError(t, err)
	_, err = s.Open(touch(t, filepath.Join(dir, "two.txt")), OpenOptions{Active: true})
	require.NoError(t, err)

	active, err := s.Active()
	require.NoError(t, err)
	assert.Equal(t, "two.txt", active.Name)

	one, ok := s.Lookup("one.txt")
	require.True(t, ok)
	assert.Equal(t, "one.txt", one.Name)
}

func TestFind(t *testing.T) {
	s, dir := newTestSession(t)
	path := touch(t, filepath.Join(dir, "x.md"))
	_, err := s.Open(path, OpenOptions{})
	require.NoError(t, err)

	byName, err := s.Find("x.md")
	require.NoError(t, err)
	byPath, err := s.Find(path)
	require.NoError(t, err)
	assert.Equal(t, byName.Name, byPath.Name)

	_, err = s.Find(filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestLiveContent(t *testing.T) {
	s, dir := newTestSession(t)
	live := "unsaved"
	_, err := s.Open(touch(t, filepath.Join(dir, "draft.txt")), OpenOptions{Content: &live})
	require.NoError(t, err)

	doc, ok := s.Lookup("draft.txt")
	require.True(t, ok)
	require.NotNil(t, doc.Content)
	assert.Equal(t, "unsaved", *doc.Content)

	require.NoError(t, s.UpdateContent("draft.txt", nil))
	doc, ok = s.Lookup("draft.txt")
	require.True(t, ok)
	assert.Nil(t, doc.Content)

	assert.ErrorIs(t, s.UpdateContent("ghost", nil), ErrDocumentNotFound)
}

func TestReferencesRoundTrip(t *testing.T) {
	s, dir := newTestSession(t)
	_, err := s.Open(touch(t, filepath.Join(dir, "a.txt")), OpenOptions{})
	require.NoError(t, err)

	registry, err := s.LoadRegistry()
	require.NoError(t, err)
	registry.Ensure("a.txt").Add("z", "b", "m")
	require.NoError(t, s.Commit(registry))

	loaded, err := s.LoadRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "b", "m"}, loaded.Snapshot("a.txt"))

	loaded.Ensure("a.txt").Remove("b")
	require.NoError(t, s.Commit(loaded))
	again, err := s.LoadRegistry()
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "m"}, again.Snapshot("a.txt"))
}

func TestCloseDocumentDropsReferences(t *testing.T) {
	s, dir := newTestSession(t)
	_, err := s.Open(touch(t, filepath.Join(dir, "a.txt")), OpenOptions{})
	require.NoError(t, err)
	require.NoError(t, s.SaveReferences("a.txt", []string{"x"}))

	require.NoError(t, s.CloseDocument("a.txt"))
	_, ok := s.Lookup("a.txt")
	assert.False(t, ok)

	registry, err := s.LoadRegistry()
	require.NoError(t, err)
	_, ok = registry.Get("a.txt")
	assert.False(t, ok)

	assert.ErrorIs(t, s.CloseDocument("a.txt"), ErrDocumentNotFound)
}
