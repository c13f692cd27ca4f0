// Package pipeline is the request pipeline that local context is injected
// into. It collects base context from retrievers (working directory, git
// status, system info) and builds chat completion requests around it.
package pipeline

import (
	"context"

	"github.com/atinylittleshell/ctxref/internal/document"
)

// Retriever is the interface that all base context retrievers must implement.
// Each retriever is responsible for collecting a specific type of context
// information about the request scope.
type Retriever interface {
	// Name returns the unique identifier for this retriever.
	// This is used as the key in the context map returned by Provider.
	Name() string

	// GetContext returns the context string for this retriever.
	// The returned string should be formatted appropriately for LLM consumption.
	GetContext(ctx context.Context, scope document.Scope) (string, error)
}
