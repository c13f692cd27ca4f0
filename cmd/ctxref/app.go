package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/atinylittleshell/ctxref/internal/config"
	"github.com/atinylittleshell/ctxref/internal/core"
	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/merge"
	"github.com/atinylittleshell/ctxref/internal/persist"
	"github.com/atinylittleshell/ctxref/internal/pipeline"
	"github.com/atinylittleshell/ctxref/internal/project"
	"github.com/atinylittleshell/ctxref/internal/references"
	"github.com/atinylittleshell/ctxref/internal/resolve"
	"github.com/atinylittleshell/ctxref/internal/session"
	"github.com/atinylittleshell/ctxref/internal/shell"
	"github.com/atinylittleshell/ctxref/internal/styles"
	"go.uber.org/zap"
)

// app is everything one ctxref invocation works with.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	workDir  string
	session  *session.Session
	registry *references.Registry
	executor *shell.Executor
	index    *project.Index
	resolver *resolve.Resolver
	merger   *merge.Merger
	provider *pipeline.Provider
	builder  *pipeline.Builder

	persister *persist.Persister

	out     io.Writer
	palette *styles.Palette
}

func newApp(ctx context.Context, logger *zap.Logger, cfg *config.Config, out io.Writer, color bool) (*app, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	sess, err := session.New(core.SessionFile(), logger)
	if err != nil {
		return nil, err
	}
	registry, err := sess.LoadRegistry()
	if err != nil {
		sess.Close()
		return nil, err
	}

	executor, err := shell.NewExecutor(workDir, logger)
	if err != nil {
		sess.Close()
		return nil, err
	}
	if err := executor.LoadFunctionsFile(ctx, cfg.FunctionsFile); err != nil {
		logger.Warn("failed to load functions file", zap.String("path", cfg.FunctionsFile), zap.Error(err))
	}

	index := project.NewIndex(cfg.ProjectMarkers, executor, logger)
	resolver := resolve.NewDefault(resolve.Options{
		Host:      sess,
		Projects:  index,
		Callables: executor,
		Logger:    logger,
	})
	merger := merge.NewMerger(resolver, logger)

	provider := pipeline.NewProvider(logger,
		pipeline.NewWorkingDirectoryRetriever(),
		pipeline.NewSystemInfoRetriever(),
	)
	if cfg.IncludeGitStatus {
		provider.AddRetriever(pipeline.NewGitStatusRetriever(executor, logger))
	}
	computeContext := merge.Inject(provider.ContextFunc(), merger, referencesOf(registry))
	builder := pipeline.NewBuilder(computeContext, pipeline.BuilderOptions{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Logger:       logger,
	})

	return &app{
		cfg:       cfg,
		logger:    logger,
		workDir:   workDir,
		session:   sess,
		registry:  registry,
		executor:  executor,
		index:     index,
		resolver:  resolver,
		merger:    merger,
		provider:  provider,
		builder:   builder,
		persister: persist.NewPersister(registry, logger),
		out:       out,
		palette:   styles.New(out, color),
	}, nil
}

func (a *app) Close() error {
	return a.session.Close()
}

func referencesOf(registry *references.Registry) merge.ReferencesFunc {
	return func(scope document.Scope) []string {
		return registry.Snapshot(scope.Name())
	}
}

// contextFor returns the request context step limited to the named
// retrievers, with local references merged in.
func (a *app) contextFor(retrievers []string) merge.ContextFunc {
	return merge.Inject(a.provider.ContextFuncFor(retrievers), a.merger, referencesOf(a.registry))
}

// commit writes the in-memory reference lists back to the session.
func (a *app) commit() error {
	return a.session.Commit(a.registry)
}

// target returns the document named by docFlag, or the active document.
func (a *app) target(docFlag string) (*document.Document, error) {
	if docFlag != "" {
		return a.session.Find(docFlag)
	}
	doc, err := a.session.Active()
	if err != nil {
		if errors.Is(err, session.ErrDocumentNotFound) {
			return nil, fmt.Errorf("no active document; run `ctxref open FILE --active` or pass --doc: %w", err)
		}
		return nil, err
	}
	return doc, nil
}

// scope returns the resolution scope for doc, which may be nil.
func (a *app) scope(doc *document.Document) document.Scope {
	return document.NewScope(doc, a.workDir)
}

// optionalTarget is target, except that the absence of any document yields a
// nil document rather than an error.
func (a *app) optionalTarget(docFlag string) (*document.Document, error) {
	doc, err := a.target(docFlag)
	if err != nil && docFlag == "" && errors.Is(err, session.ErrDocumentNotFound) {
		return nil, nil
	}
	return doc, err
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
