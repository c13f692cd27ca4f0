// Package resolve turns a reference string into the text it names.
//
// A reference carries no type tag. Its meaning is found by asking an ordered
// chain of classifiers, first match wins. The default priority is:
//
//  1. an open document with that name
//  2. a file path, relative to the scope directory
//  3. a file in the enclosing project whose base name equals the reference
//  4. a zero-argument callable with that name
//
// A reference nothing matches resolves to nothing.
package resolve

import (
	"context"

	"github.com/atinylittleshell/ctxref/internal/document"
	"go.uber.org/zap"
)

// Kind identifies which classifier matched a reference.
type Kind int

const (
	KindOpenDocument Kind = iota + 1
	KindFile
	KindProjectFile
	KindCallable
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindOpenDocument:
		return "buffer"
	case KindFile:
		return "file"
	case KindProjectFile:
		return "project"
	case KindCallable:
		return "function"
	default:
		return "unknown"
	}
}

// Source is a resolved reference. It is built fresh on every resolution and
// never cached.
type Source struct {
	Kind      Kind
	Reference string
	// Label names the source in the wrapped block.
	Label string
	Body  string
	// Path is the absolute file backing the source, if any.
	Path string
	// Err is set when a callable failed; Body then holds the inline error text.
	Err error
}

// Classifier recognizes one kind of reference.
type Classifier interface {
	// Name identifies the classifier in logs.
	Name() string
	// Classify returns the resolved source and true when ref is of this kind.
	Classify(ctx context.Context, ref string, scope document.Scope) (Source, bool)
}

// Resolver runs references through its classifier chain in order.
type Resolver struct {
	chain  []Classifier
	logger *zap.Logger
}

// New creates a Resolver with an explicit classifier chain.
func New(logger *zap.Logger, chain ...Classifier) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		chain:  chain,
		logger: logger,
	}
}

// Options holds the collaborators of the default chain. Nil collaborators
// drop their classifier from the chain.
type Options struct {
	Host      document.Host
	Projects  ProjectIndex
	Callables Callables
	Logger    *zap.Logger
}

// NewDefault creates a Resolver with the standard priority order.
func NewDefault(opts Options) *Resolver {
	var chain []Classifier
	if opts.Host != nil {
		chain = append(chain, NewOpenDocumentClassifier(opts.Host, opts.Logger))
	}
	chain = append(chain, NewFileClassifier(opts.Logger))
	if opts.Projects != nil {
		chain = append(chain, NewProjectFileClassifier(opts.Projects, opts.Logger))
	}
	if opts.Callables != nil {
		chain = append(chain, NewCallableClassifier(opts.Callables, opts.Logger))
	}
	return New(opts.Logger, chain...)
}

// Classifiers returns the names of the chain in priority order.
func (r *Resolver) Classifiers() []string {
	names := make([]string, len(r.chain))
	for i, c := range r.chain {
		names[i] = c.Name()
	}
	return names
}

// Resolve classifies ref and extracts its content. ok is false when no
// classifier matched.
func (r *Resolver) Resolve(ctx context.Context, ref string, scope document.Scope) (Source, bool) {
	for _, c := range r.chain {
		if src, ok := c.Classify(ctx, ref, scope); ok {
			src.Reference = ref
			return src, true
		}
	}
	r.logger.Debug("reference did not resolve", zap.String("reference", ref), zap.String("scope", scope.Name()))
	return Source{}, false
}
