package shell

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/syntax"
)

// GitTrackedFiles lists the files git knows about under root, tracked or
// untracked but not ignored, as root-relative slash paths. ok is false when
// root is not inside a git work tree or git is unavailable.
func (e *Executor) GitTrackedFiles(ctx context.Context, root string) (files []string, ok bool, err error) {
	quoted, err := syntax.Quote(root, syntax.LangBash)
	if err != nil {
		return nil, false, fmt.Errorf("failed to quote %s: %w", root, err)
	}

	_, _, exitCode, err := e.ExecuteInSubshell(ctx, "git -C "+quoted+" rev-parse --is-inside-work-tree")
	if err != nil || exitCode != 0 {
		e.logger.Debug("not a git work tree", zap.String("root", root), zap.Int("exitCode", exitCode), zap.Error(err))
		return nil, false, nil
	}

	stdout, stderr, exitCode, err := e.ExecuteInSubshell(ctx,
		"git -C "+quoted+" ls-files -z --cached --others --exclude-standard")
	if err != nil {
		return nil, false, fmt.Errorf("failed to run git ls-files: %w", err)
	}
	if exitCode != 0 {
		return nil, false, fmt.Errorf("git ls-files exited with %d: %s", exitCode, strings.TrimSpace(stderr))
	}

	for _, f := range strings.Split(stdout, "\x00") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, true, nil
}
