package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	root     string
	scope    document.Scope
	host     *document.MemoryHost
	resolver *Resolver
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newFixture(t *testing.T, callables CallableMap) *fixture {
	t.Helper()
	root := t.TempDir()
	write(t, filepath.Join(root, ".project"), "")
	write(t, filepath.Join(root, "docs", "current.md"), "# current")

	origin := &document.Document{Name: "current.md", Path: filepath.Join(root, "docs", "current.md")}
	host := document.NewMemoryHost(origin)

	return &fixture{
		root:  root,
		scope: document.NewScope(origin, root),
		host:  host,
		resolver: NewDefault(Options{
			Host:      host,
			Projects:  project.NewIndex(nil, nil, nil),
			Callables: callables,
			Logger:    zap.NewNop(),
		}),
	}
}

func TestDefaultChainOrder(t *testing.T) {
	f := newFixture(t, CallableMap{})
	assert.Equal(t, []string{"open_document", "file", "project_file", "callable"}, f.resolver.Classifiers())

	bare := NewDefault(Options{})
	assert.Equal(t, []string{"file"}, bare.Classifiers())
}

func TestResolveOpenDocument(t *testing.T) {
	f := newFixture(t, nil)
	live := "unsaved buffer text"
	f.host.Open(&document.Document{Name: "scratch", Content: &live})

	src, ok := f.resolver.Resolve(context.Background(), "scratch", f.scope)
	require.True(t, ok)
	assert.Equal(t, KindOpenDocument, src.Kind)
	assert.Equal(t, "scratch", src.Label)
	assert.Equal(t, "unsaved buffer text", src.Body)
	assert.Equal(t, "scratch", src.Reference)
}

func TestResolveOpenDocumentWinsOverFile(t *testing.T) {
	f := newFixture(t, nil)
	write(t, filepath.Join(f.root, "docs", "notes.txt"), "from disk")
	live := "from buffer"
	f.host.Open(&document.Document{Name: "notes.txt", Content: &live})

	src, ok := f.resolver.Resolve(context.Background(), "notes.txt", f.scope)
	require.True(t, ok)
	assert.Equal(t, KindOpenDocument, src.Kind)
	assert.Equal(t, "from buffer", src.Body)
}

func TestResolveSkipsEphemeralDocuments(t *testing.T) {
	f := newFixture(t, nil)
	menu := "menu"
	f.host.Open(&document.Document{Name: "*menu*", Content: &menu, Ephemeral: true})

	_, ok := f.resolver.Resolve(context.Background(), "*menu*", f.scope)
	assert.False(t, ok)
}

func TestResolveFile(t *testing.T) {
	f := newFixture(t, nil)
	write(t, filepath.Join(f.root, "docs", "notes.txt"), "hello")

	t.Run("relative to the scope directory", func(t *testing.T) {
		src, ok := f.resolver.Resolve(context.Background(), "notes.txt", f.scope)
		require.True(t, ok)
		assert.Equal(t, KindFile, src.Kind)
		assert.Equal(t, "notes.txt", src.Label)
		assert.Equal(t, "hello", src.Body)
		assert.Equal(t, filepath.Join(f.root, "docs", "notes.txt"), src.Path)
	})

	t.Run("absolute path", func(t *testing.T) {
		abs := filepath.Join(f.root, "docs", "notes.txt")
		src, ok := f.resolver.Resolve(context.Background(), abs, f.scope)
		require.True(t, ok)
		assert.Equal(t, abs, src.Label)
	})

	t.Run("directories are not files", func(t *testing.T) {
		_, ok := NewFileClassifier(nil).Classify(context.Background(), f.root, f.scope)
		assert.False(t, ok)
	})
}

func TestResolveProjectFile(t *testing.T) {
	f := newFixture(t, nil)
	write(t, filepath.Join(f.root, "src", "b", "util.py"), "second")
	write(t, filepath.Join(f.root, "src", "a", "util.py"), "first")

	src, ok := f.resolver.Resolve(context.Background(), "util.py", f.scope)
	require.True(t, ok)
	assert.Equal(t, KindProjectFile, src.Kind)
	assert.Equal(t, "src/a/util.py", src.Label)
	assert.Equal(t, "first", src.Body)

	_, ok = f.resolver.Resolve(context.Background(), "a/util.py", f.scope)
	assert.False(t, ok, "only base names match inside the project")
}

func TestResolveCallable(t *testing.T) {
	t.Run("returns the callable output", func(t *testing.T) {
		f := newFixture(t, CallableMap{
			"my-helper-fn": func(ctx context.Context) (string, error) { return "42", nil },
		})
		src, ok := f.resolver.Resolve(context.Background(), "my-helper-fn", f.scope)
		require.True(t, ok)
		assert.Equal(t, KindCallable, src.Kind)
		assert.Equal(t, "42", src.Body)
		assert.NoError(t, src.Err)
	})

	t.Run("errors become the body", func(t *testing.T) {
		f := newFixture(t, CallableMap{
			"broken": func(ctx context.Context) (string, error) { return "", errors.New("no network") },
		})
		src, ok := f.resolver.Resolve(context.Background(), "broken", f.scope)
		require.True(t, ok)
		assert.Equal(t, "Error calling broken: no network", src.Body)
		assert.Error(t, src.Err)
	})

	t.Run("panics are recovered", func(t *testing.T) {
		f := newFixture(t, CallableMap{
			"explodes": func(ctx context.Context) (string, error) { panic("kaboom") },
		})
		src, ok := f.resolver.Resolve(context.Background(), "explodes", f.scope)
		require.True(t, ok)
		assert.Contains(t, src.Body, "kaboom")
	})

	t.Run("files win over callables", func(t *testing.T) {
		f := newFixture(t, CallableMap{
			"notes.txt": func(ctx context.Context) (string, error) { return "callable", nil },
		})
		write(t, filepath.Join(f.root, "docs", "notes.txt"), "file")
		src, ok := f.resolver.Resolve(context.Background(), "notes.txt", f.scope)
		require.True(t, ok)
		assert.Equal(t, KindFile, src.Kind)
	})
}

func TestResolveUnmatched(t *testing.T) {
	f := newFixture(t, CallableMap{})
	_, ok := f.resolver.Resolve(context.Background(), "deleted-long-ago.txt", f.scope)
	assert.False(t, ok)
}

func TestResolveDoesNotMutateSources(t *testing.T) {
	f := newFixture(t, nil)
	path := filepath.Join(f.root, "docs", "notes.txt")
	write(t, path, "hello")
	before, err := os.Stat(path)
	require.NoError(t, err)

	_, ok := f.resolver.Resolve(context.Background(), "notes.txt", f.scope)
	require.True(t, ok)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
	assert.Equal(t, before.Size(), after.Size())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "buffer", KindOpenDocument.String())
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "project", KindProjectFile.String())
	assert.Equal(t, "function", KindCallable.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
