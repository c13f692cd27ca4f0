package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atinylittleshell/ctxref/internal/config"
	"github.com/atinylittleshell/ctxref/internal/core"
	"github.com/atinylittleshell/ctxref/internal/styles"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var BUILD_VERSION = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the state shared by every command of one invocation.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	docFlag string

	logger *zap.Logger
	app    *app
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	root := c.rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err != nil && c.logger != nil {
		c.logger.Error("command failed", zap.Strings("args", args), zap.Error(err))
	}
	c.close()
	if err != nil {
		palette := styles.New(c.stderr, isTerminal(c.stderr))
		fmt.Fprintf(c.stderr, "%s %s\n", palette.Symbol(styles.SymbolError), palette.Render(palette.Error, err.Error()))
		return 1
	}
	return 0
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ctxref",
		Short:         "Attach files, documents and shell functions as context to LLM requests",
		Version:       BUILD_VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd.Context())
		},
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.PersistentFlags().StringVarP(&c.docFlag, "doc", "d", "", "document that owns the reference list (defaults to the active document)")

	root.AddCommand(
		c.addCommand(),
		c.removeCommand(),
		c.clearCommand(),
		c.listCommand(),
		c.addVisibleCommand(),
		c.addProjectCommand(),
		c.addDirCommand(),
		c.saveCommand(),
		c.restoreCommand(),
		c.renderCommand(),
		c.requestCommand(),
		c.openCommand(),
		c.closeCommand(),
		c.docsCommand(),
		c.functionsCommand(),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	result, err := config.NewLoader(nil).LoadFromFile(core.ConfigFile())
	if err != nil {
		return err
	}

	logger, err := initializeLogger(result.Config.LogLevel)
	if err != nil {
		return err
	}
	c.logger = logger
	logger.Info("-------- new ctxref invocation --------", zap.Any("args", os.Args))
	for _, e := range result.Errors {
		logger.Warn("configuration problem", zap.String("path", core.ConfigFile()), zap.Error(e))
	}

	a, err := newApp(ctx, logger, result.Config, c.stdout, isTerminal(c.stdout))
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Close(); err != nil && c.logger != nil {
			c.logger.Warn("failed to close session", zap.Error(err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func initializeLogger(level string) (*zap.Logger, error) {
	logLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	if BUILD_VERSION == "dev" {
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	loggerConfig := zap.NewProductionConfig()
	loggerConfig.Level = logLevel
	loggerConfig.OutputPaths = []string{
		core.LogFile(),
	}

	// Logs only go to file so they never mix with rendered context.
	// Use `tail -f ~/.ctxref/ctxref.log` to monitor logs in real-time

	return loggerConfig.Build()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
