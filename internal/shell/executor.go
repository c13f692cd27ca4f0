// Package shell hosts an embedded bash interpreter. Functions defined in the
// user's functions file become zero-argument callables whose output can be
// injected as context, and the same runner is used for git queries.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// threadSafeBuffer provides a thread-safe wrapper around bytes.Buffer
type threadSafeBuffer struct {
	buffer bytes.Buffer
	mutex  sync.Mutex
}

// Write implements io.Writer interface
func (b *threadSafeBuffer) Write(p []byte) (n int, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.Write(p)
}

// String returns the contents of the buffer as a string
func (b *threadSafeBuffer) String() string {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buffer.String()
}

// Executor runs bash through mvdan/sh. The main runner only accumulates
// function definitions; every invocation happens in a subshell so callables
// cannot change each other's state.
type Executor struct {
	runner *interp.Runner
	logger *zap.Logger
	mu     sync.Mutex
}

// NewExecutor creates an Executor whose working directory is dir (the process
// working directory when empty). The logger is optional.
func NewExecutor(dir string, logger *zap.Logger) (*Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(nil, io.Discard, io.Discard),
	}
	if dir != "" {
		opts = append(opts, interp.Dir(dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bash runner: %w", err)
	}

	return &Executor{
		runner: runner,
		logger: logger,
	}, nil
}

// LoadFunctionsFromReader evaluates a bash script in the main runner so the
// functions it defines become callable.
func (e *Executor) LoadFunctionsFromReader(ctx context.Context, reader io.Reader, name string) error {
	prog, err := syntax.NewParser().Parse(reader, name)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if !errors.As(err, &exitStatus) {
			return fmt.Errorf("failed to execute %s: %w", name, err)
		}
		e.logger.Debug("functions file exited non-zero", zap.String("file", name), zap.Int("status", int(exitStatus)))
	}
	return nil
}

// LoadFunctionsFile loads function definitions from path. A missing or empty
// file is not an error.
func (e *Executor) LoadFunctionsFile(ctx context.Context, path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if stat.Size() == 0 {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return e.LoadFunctionsFromReader(ctx, f, path)
}

// Functions lists the defined function names, sorted.
func (e *Executor) Functions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.runner.Funcs))
	for name := range e.runner.Funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasCallable reports whether name is a defined shell function.
func (e *Executor) HasCallable(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.runner.Funcs[name]
	return ok
}

// Call invokes the function name with no arguments and returns its stdout
// with trailing newlines removed, as command substitution would. A non-zero
// exit status is returned as an error carrying stderr.
func (e *Executor) Call(ctx context.Context, name string) (string, error) {
	if !e.HasCallable(name) {
		return "", fmt.Errorf("%s is not a defined function", name)
	}

	stmt := &syntax.Stmt{
		Cmd: &syntax.CallExpr{
			Args: []*syntax.Word{{Parts: []syntax.WordPart{&syntax.Lit{Value: name}}}},
		},
	}

	stdout, stderr, exitCode, err := e.runStmt(ctx, stmt)
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		msg := strings.TrimSpace(stderr)
		if msg == "" {
			return "", fmt.Errorf("exit status %d", exitCode)
		}
		return "", fmt.Errorf("exit status %d: %s", exitCode, msg)
	}

	return strings.TrimRight(stdout, "\n"), nil
}

// ExecuteInSubshell runs a bash command in a subshell, capturing output.
// Returns stdout, stderr, exit code, and any execution error.
// A non-zero exit code is not treated as an error.
func (e *Executor) ExecuteInSubshell(ctx context.Context, command string) (string, string, int, error) {
	var prog *syntax.Stmt
	err := syntax.NewParser().Stmts(strings.NewReader(command), func(stmt *syntax.Stmt) bool {
		prog = stmt
		return false
	})
	if err != nil {
		return "", "", 1, fmt.Errorf("failed to parse bash command: %w", err)
	}

	if prog == nil {
		return "", "", 0, nil
	}

	return e.runStmt(ctx, prog)
}

func (e *Executor) runStmt(ctx context.Context, stmt *syntax.Stmt) (string, string, int, error) {
	e.mu.Lock()
	subShell := e.runner.Subshell()
	e.mu.Unlock()

	outBuf := &threadSafeBuffer{}
	errBuf := &threadSafeBuffer{}
	interp.StdIO(nil, outBuf, errBuf)(subShell) //nolint:errcheck

	err := subShell.Run(ctx, stmt)
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			// Non-zero exit code is not an execution error, just return the code
			return outBuf.String(), errBuf.String(), int(exitStatus), nil
		}
		return outBuf.String(), errBuf.String(), 1, err
	}

	return outBuf.String(), errBuf.String(), 0, nil
}

// Dir returns the runner's working directory.
func (e *Executor) Dir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runner.Dir
}
