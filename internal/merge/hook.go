package merge

import (
	"context"

	"github.com/atinylittleshell/ctxref/internal/document"
)

// ContextFunc computes the context string for one outgoing request.
type ContextFunc func(ctx context.Context, scope document.Scope) (string, error)

// ReferencesFunc returns the reference list owned by a scope.
type ReferencesFunc func(scope document.Scope) []string

// Inject decorates next so that the references of the request scope are
// merged after whatever next returns. next is called exactly once per call
// and its result is used unchanged as the base. When next fails its result
// and error are returned as is.
func Inject(next ContextFunc, merger *Merger, refs ReferencesFunc) ContextFunc {
	return func(ctx context.Context, scope document.Scope) (string, error) {
		base, err := next(ctx, scope)
		if err != nil {
			return base, err
		}
		return merger.Merge(ctx, base, refs(scope), scope), nil
	}
}
