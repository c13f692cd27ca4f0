package wrap

import (
	"testing"

	"github.com/atinylittleshell/ctxref/internal/resolve"
	"github.com/stretchr/testify/assert"
)

func TestFunctionBlock(t *testing.T) {
	got := Block(resolve.Source{Kind: resolve.KindCallable, Label: "my-helper-fn", Body: "42"})
	assert.Equal(t, "Function my-helper-fn:\n\n```\n42\n```\n", got)
}

func TestFileBlock(t *testing.T) {
	t.Run("adds a newline before the fence", func(t *testing.T) {
		got := Block(resolve.Source{Kind: resolve.KindFile, Label: "notes.txt", Body: "hello"})
		assert.Equal(t, "In file `notes.txt`:\n\n```\nhello\n```\n", got)
	})

	t.Run("keeps an existing trailing newline", func(t *testing.T) {
		got := Block(resolve.Source{Kind: resolve.KindProjectFile, Label: "src/a.py", Body: "x = 1\n"})
		assert.Equal(t, "In file `src/a.py`:\n\n```python\nx = 1\n```\n", got)
	})
}

func TestBufferBlock(t *testing.T) {
	got := Block(resolve.Source{
		Kind:  resolve.KindOpenDocument,
		Label: "main.go<2>",
		Path:  "/src/main.go",
		Body:  "package main\n\nfunc main() {}\n",
	})
	assert.Equal(t, "In buffer `main.go<2>` (lines 1-3):\n\n```go\npackage main\n\nfunc main() {}\n```\n", got)

	unsaved := Block(resolve.Source{Kind: resolve.KindOpenDocument, Label: "scratch", Body: "a\nb"})
	assert.Equal(t, "In buffer `scratch` (lines 1-2):\n\n```\na\nb\n```\n", unsaved)
}

func TestEmptyBodyWrapsToNothing(t *testing.T) {
	for _, kind := range []resolve.Kind{resolve.KindOpenDocument, resolve.KindFile, resolve.KindProjectFile, resolve.KindCallable} {
		assert.Empty(t, Block(resolve.Source{Kind: kind, Label: "x"}), kind.String())
	}
	assert.Empty(t, Function("f", ""))
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "go", Language("a/b/main.go"))
	assert.Equal(t, "org", Language("NOTES.ORG"))
	assert.Equal(t, "", Language("Makefile"))
}
