package pipeline

import (
	"context"
	"strings"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/merge"
	"go.uber.org/zap"
)

// Provider aggregates context from its retrievers.
type Provider struct {
	retrievers []Retriever
	logger     *zap.Logger
}

// NewProvider creates a Provider with the given retrievers.
func NewProvider(logger *zap.Logger, retrievers ...Retriever) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		retrievers: retrievers,
		logger:     logger,
	}
}

// AddRetriever appends a retriever.
func (p *Provider) AddRetriever(r Retriever) {
	p.retrievers = append(p.retrievers, r)
}

// GetContext returns the trimmed output of every retriever keyed by name.
// Failing retrievers are logged and left out.
func (p *Provider) GetContext(ctx context.Context, scope document.Scope) map[string]string {
	return p.GetContextForTypes(ctx, scope, nil)
}

// GetContextForTypes is GetContext restricted to the named retrievers.
// An empty list selects all of them.
func (p *Provider) GetContextForTypes(ctx context.Context, scope document.Scope, types []string) map[string]string {
	result := make(map[string]string)
	for _, r := range p.selected(types) {
		value, err := r.GetContext(ctx, scope)
		if err != nil {
			p.logger.Warn("context retriever failed", zap.String("retriever", r.Name()), zap.Error(err))
			continue
		}
		result[r.Name()] = strings.TrimSpace(value)
	}
	return result
}

func (p *Provider) selected(types []string) []Retriever {
	if len(types) == 0 {
		return p.retrievers
	}
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[strings.TrimSpace(t)] = true
	}
	var out []Retriever
	for _, r := range p.retrievers {
		if wanted[r.Name()] {
			out = append(out, r)
		}
	}
	return out
}

// ContextFunc joins the non-empty retriever outputs, in registration order,
// one per line. This is the context step that local references are merged into.
func (p *Provider) ContextFunc() merge.ContextFunc {
	return p.ContextFuncFor(nil)
}

// ContextFuncFor is ContextFunc restricted to the named retrievers.
func (p *Provider) ContextFuncFor(types []string) merge.ContextFunc {
	return func(ctx context.Context, scope document.Scope) (string, error) {
		values := p.GetContextForTypes(ctx, scope, types)
		var parts []string
		for _, r := range p.retrievers {
			if v := values[r.Name()]; v != "" {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, "\n"), nil
	}
}

// Names returns the retriever names in registration order.
func (p *Provider) Names() []string {
	names := make([]string, len(p.retrievers))
	for i, r := range p.retrievers {
		names[i] = r.Name()
	}
	return names
}
