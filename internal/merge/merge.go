// Package merge splices resolved references into a base context string and
// provides the hook that adds this to an existing context-building step.
package merge

import (
	"context"
	"slices"
	"strings"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/resolve"
	"github.com/atinylittleshell/ctxref/internal/wrap"
	"go.uber.org/zap"
)

// Separator is placed between the base context and each appended block.
const Separator = "\n\n"

// SourceResolver resolves a single reference.
type SourceResolver interface {
	Resolve(ctx context.Context, ref string, scope document.Scope) (resolve.Source, bool)
}

// Resolved is the outcome of resolving one reference.
type Resolved struct {
	Reference string
	Source    resolve.Source
	// Block is the wrapped text, "" when the reference contributes nothing.
	Block string
}

// Merger resolves reference lists and appends their blocks to a base context.
type Merger struct {
	resolver SourceResolver
	logger   *zap.Logger
}

// NewMerger creates a Merger.
func NewMerger(resolver SourceResolver, logger *zap.Logger) *Merger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Merger{
		resolver: resolver,
		logger:   logger,
	}
}

// ResolveAll resolves refs in order. Unresolvable references are included
// with an empty Block.
func (m *Merger) ResolveAll(ctx context.Context, refs []string, scope document.Scope) []Resolved {
	refs = slices.Clone(refs)
	out := make([]Resolved, 0, len(refs))
	for _, ref := range refs {
		r := Resolved{Reference: ref}
		if src, ok := m.resolver.Resolve(ctx, ref, scope); ok {
			r.Source = src
			r.Block = wrap.Block(src)
		}
		out = append(out, r)
	}
	return out
}

// Merge appends the wrapped block of every resolvable reference to base, in
// order, with a blank line before each block unless nothing precedes it.
// Output depends only on base, refs and the current content of the sources.
func (m *Merger) Merge(ctx context.Context, base string, refs []string, scope document.Scope) string {
	var b strings.Builder
	b.WriteString(base)

	included := 0
	for _, r := range m.ResolveAll(ctx, refs, scope) {
		if r.Block == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(r.Block)
		included++
	}

	m.logger.Debug("merged local context",
		zap.String("scope", scope.Name()),
		zap.Int("references", len(refs)),
		zap.Int("included", included),
	)
	return b.String()
}
