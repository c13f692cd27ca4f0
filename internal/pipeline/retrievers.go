package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/syntax"

	"github.com/atinylittleshell/ctxref/internal/document"
)

// WorkingDirectoryRetriever reports the directory of the request scope.
type WorkingDirectoryRetriever struct{}

// NewWorkingDirectoryRetriever creates a new WorkingDirectoryRetriever.
func NewWorkingDirectoryRetriever() *WorkingDirectoryRetriever {
	return &WorkingDirectoryRetriever{}
}

// Name returns the retriever name.
func (r *WorkingDirectoryRetriever) Name() string {
	return "working_directory"
}

// GetContext returns the scope directory formatted for LLM context.
func (r *WorkingDirectoryRetriever) GetContext(ctx context.Context, scope document.Scope) (string, error) {
	return fmt.Sprintf("<working_dir>%s</working_dir>", scope.Dir), nil
}

// SystemInfoRetriever retrieves system information context.
type SystemInfoRetriever struct{}

// NewSystemInfoRetriever creates a new SystemInfoRetriever.
func NewSystemInfoRetriever() *SystemInfoRetriever {
	return &SystemInfoRetriever{}
}

// Name returns the retriever name.
func (r *SystemInfoRetriever) Name() string {
	return "system_info"
}

// GetContext returns system information formatted for LLM context.
func (r *SystemInfoRetriever) GetContext(ctx context.Context, scope document.Scope) (string, error) {
	return fmt.Sprintf("<system_info>OS: %s, Arch: %s</system_info>", runtime.GOOS, runtime.GOARCH), nil
}

// SubshellRunner runs a bash command and captures its output.
type SubshellRunner interface {
	ExecuteInSubshell(ctx context.Context, command string) (string, string, int, error)
}

// GitStatusRetriever retrieves git repository status context.
type GitStatusRetriever struct {
	runner SubshellRunner
	logger *zap.Logger
}

// NewGitStatusRetriever creates a new GitStatusRetriever.
func NewGitStatusRetriever(runner SubshellRunner, logger *zap.Logger) *GitStatusRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitStatusRetriever{
		runner: runner,
		logger: logger,
	}
}

// Name returns the retriever name.
func (r *GitStatusRetriever) Name() string {
	return "git_status"
}

// GetContext returns the git status of the scope directory formatted for LLM context.
// Returns a message indicating not in a git repository if git commands fail.
func (r *GitStatusRetriever) GetContext(ctx context.Context, scope document.Scope) (string, error) {
	dir, err := syntax.Quote(scope.Dir, syntax.LangBash)
	if err != nil {
		return "", err
	}

	revParseOut, _, exitCode, err := r.runner.ExecuteInSubshell(ctx, "git -C "+dir+" rev-parse --show-toplevel")
	if err != nil || exitCode != 0 {
		r.logger.Debug("error running `git rev-parse --show-toplevel`", zap.Int("exitCode", exitCode), zap.Error(err))
		return "<git_status>not in a git repository</git_status>", nil
	}

	statusOut, _, exitCode, err := r.runner.ExecuteInSubshell(ctx, "git -C "+dir+" status")
	if err != nil || exitCode != 0 {
		r.logger.Debug("error running `git status`", zap.Int("exitCode", exitCode), zap.Error(err))
		return "", nil
	}

	return fmt.Sprintf("<git_status>Project root: %s\n%s</git_status>",
		strings.TrimSpace(revParseOut), statusOut), nil
}
