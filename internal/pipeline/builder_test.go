package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/merge"
	"github.com/atinylittleshell/ctxref/internal/references"
	"github.com/atinylittleshell/ctxref/internal/resolve"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))
	scope := document.NewScope(nil, dir)

	store := references.NewStore()
	calls := 0
	base := func(ctx context.Context, s document.Scope) (string, error) {
		calls++
		return "<working_dir>" + s.Dir + "</working_dir>", nil
	}
	merger := merge.NewMerger(resolve.NewDefault(resolve.Options{}), nil)
	hooked := merge.Inject(base, merger, func(document.Scope) []string { return store.Snapshot() })

	builder := NewBuilder(hooked, BuilderOptions{Model: "gpt-4o-mini", SystemPrompt: "Be brief."})

	store.Add("notes.txt")
	req, err := builder.Build(context.Background(), scope, "summarize")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t,
		"Be brief.\n\n<working_dir>"+dir+"</working_dir>\n\nIn file `notes.txt`:\n\n```\nhello\n```\n",
		req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "summarize", req.Messages[1].Content)

	store.Clear()
	req, err = builder.Build(context.Background(), scope, "again")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.NotContains(t, req.Messages[0].Content, "notes.txt")
}

func TestBuilderWithoutSystemText(t *testing.T) {
	empty := func(ctx context.Context, s document.Scope) (string, error) { return "", nil }
	req, err := NewBuilder(empty, BuilderOptions{}).Build(context.Background(), document.Scope{}, "hi")
	require.NoError(t, err)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)
}

func TestBuilderContextError(t *testing.T) {
	failing := func(ctx context.Context, s document.Scope) (string, error) { return "", errors.New("offline") }
	builder := NewBuilder(failing, BuilderOptions{})

	_, err := builder.Build(context.Background(), document.Scope{}, "hi")
	assert.Error(t, err)

	_, err = builder.Context(context.Background(), document.Scope{})
	assert.EqualError(t, err, "offline")
}
