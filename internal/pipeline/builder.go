package pipeline

import (
	"context"
	"fmt"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/merge"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Builder turns a prompt into a chat completion request. The context step
// runs when the request is built, so it sees the reference lists as they are
// at send time.
type Builder struct {
	computeContext merge.ContextFunc
	model          string
	systemPrompt   string
	logger         *zap.Logger
}

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	Model        string
	SystemPrompt string
	Logger       *zap.Logger
}

// NewBuilder creates a Builder around a context step.
func NewBuilder(computeContext merge.ContextFunc, opts BuilderOptions) *Builder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		computeContext: computeContext,
		model:          opts.Model,
		systemPrompt:   opts.SystemPrompt,
		logger:         logger,
	}
}

// Context runs the context step once for scope.
func (b *Builder) Context(ctx context.Context, scope document.Scope) (string, error) {
	return b.computeContext(ctx, scope)
}

// Build computes the context for scope once and returns a request whose
// system message carries it, followed by prompt as the user message.
func (b *Builder) Build(ctx context.Context, scope document.Scope, prompt string) (openai.ChatCompletionRequest, error) {
	contextText, err := b.computeContext(ctx, scope)
	if err != nil {
		return openai.ChatCompletionRequest{}, fmt.Errorf("failed to compute request context: %w", err)
	}

	system := b.systemPrompt
	if contextText != "" {
		if system != "" {
			system += "\n\n"
		}
		system += contextText
	}

	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	b.logger.Debug("built request", zap.String("model", b.model), zap.Int("contextBytes", len(contextText)))
	return openai.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
	}, nil
}
