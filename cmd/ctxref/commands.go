package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinylittleshell/ctxref/internal/document"
	"github.com/atinylittleshell/ctxref/internal/enumerate"
	"github.com/atinylittleshell/ctxref/internal/references"
	"github.com/atinylittleshell/ctxref/internal/session"
	"github.com/atinylittleshell/ctxref/internal/styles"
	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// storeFor returns the target document and its store, creating the store.
func (c *cli) storeFor() (*document.Document, *references.Store, error) {
	doc, err := c.app.target(c.docFlag)
	if err != nil {
		return nil, nil, err
	}
	return doc, c.app.registry.Ensure(doc.Name), nil
}

// addAll adds candidates to the target store and reports how many were new.
func (c *cli) addAll(doc *document.Document, store *references.Store, candidates []string, what string) error {
	added := store.Add(candidates...)
	if err := c.app.commit(); err != nil {
		return err
	}
	c.app.printf("%s Added %d of %d %s to %s\n",
		c.app.palette.Symbol(styles.SymbolSuccess), added, len(candidates), what, doc.Name)
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (c *cli) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add REF...",
		Short: "Add references to the local context of a document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, store, err := c.storeFor()
			if err != nil {
				return err
			}
			return c.addAll(doc, store, args, "references")
		},
	}
}

func (c *cli) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove REF...",
		Short: "Remove references from the local context of a document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.target(c.docFlag)
			if err != nil {
				return err
			}
			store, ok := c.app.registry.Get(doc.Name)
			if !ok || store.Count() == 0 {
				c.app.printf("%s No local context to remove\n", c.app.palette.Symbol(styles.SymbolInfo))
				return nil
			}

			removed := store.Remove(args...)
			if err := c.app.commit(); err != nil {
				return err
			}
			c.app.printf("%s Removed %s from %s\n",
				c.app.palette.Symbol(styles.SymbolSuccess), plural(removed, "reference"), doc.Name)
			return nil
		},
	}
}

func (c *cli) clearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every reference from the local context of a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.target(c.docFlag)
			if err != nil {
				return err
			}
			store, ok := c.app.registry.Get(doc.Name)
			if !ok || store.Count() == 0 {
				c.app.printf("%s No local context to clear\n", c.app.palette.Symbol(styles.SymbolInfo))
				return nil
			}

			cleared := store.Clear()
			if err := c.app.commit(); err != nil {
				return err
			}
			c.app.printf("%s Cleared %s from %s\n",
				c.app.palette.Symbol(styles.SymbolSuccess), plural(cleared, "reference"), doc.Name)
			return nil
		},
	}
}

func (c *cli) listCommand() *cobra.Command {
	var verbose bool
	var match string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the local context of a document and how each reference resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.target(c.docFlag)
			if err != nil {
				return err
			}
			refs := c.app.registry.Snapshot(doc.Name)
			if match != "" {
				matches := fuzzy.Find(match, refs)
				refs = make([]string, len(matches))
				for i, m := range matches {
					refs[i] = m.Str
				}
			}
			if len(refs) == 0 {
				c.app.printf("%s No local context for %s\n", c.app.palette.Symbol(styles.SymbolInfo), doc.Name)
				return nil
			}

			p := c.app.palette
			scope := c.app.scope(doc)
			c.app.printf("%s\n", p.Render(p.Header, "Local context of "+doc.Name))
			if verbose {
				c.app.printf("%s\n", p.Render(p.Dim, "resolution order: "+strings.Join(c.app.resolver.Classifiers(), " > ")))
			}
			for _, ref := range refs {
				src, ok := c.app.resolver.Resolve(cmd.Context(), ref, scope)
				symbol, kind := styles.SymbolSuccess, src.Kind.String()
				switch {
				case !ok:
					symbol, kind = styles.SymbolMissing, "unknown"
				case src.Err != nil:
					symbol = styles.SymbolError
				}

				line := fmt.Sprintf("  %s %s%s %s", p.Symbol(symbol), p.Kind(kind), strings.Repeat(" ", 9-len(kind)), ref)
				if verbose && ok {
					line += p.Render(p.Dim, fmt.Sprintf("  %s, %s", src.Label, humanize.Bytes(uint64(len(src.Body)))))
					if src.Err != nil {
						line += " " + p.Render(p.Error, src.Err.Error())
					}
				}
				c.app.printf("%s\n", line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the resolved source and its size")
	cmd.Flags().StringVar(&match, "match", "", "only show references fuzzy-matching this query")
	return cmd
}

func (c *cli) addVisibleCommand() *cobra.Command {
	var includeActive bool

	cmd := &cobra.Command{
		Use:   "add-visible",
		Short: "Add every visible document to the local context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, store, err := c.storeFor()
			if err != nil {
				return err
			}
			active := ""
			if a, err := c.app.session.Active(); err == nil {
				active = a.Name
			}

			names, err := enumerate.VisibleDocuments(c.app.session, active, includeActive)
			if err != nil {
				return err
			}
			return c.addAll(doc, store, names, "visible documents")
		},
	}
	cmd.Flags().BoolVar(&includeActive, "include-active", false, "include the active document")
	return cmd
}

func (c *cli) addProjectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-project [PATTERN]",
		Short: "Add the files of the enclosing project, optionally filtered by a glob",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, store, err := c.storeFor()
			if err != nil {
				return err
			}
			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}

			files, err := enumerate.ProjectFiles(cmd.Context(), c.app.index, enumerate.ProjectOptions{
				Scope:   c.app.scope(doc),
				Pattern: pattern,
			})
			if err != nil {
				return fmt.Errorf("cannot add project files for %s: %w", doc.Name, err)
			}
			return c.addAll(doc, store, files, "project files")
		},
	}
}

func (c *cli) addDirCommand() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "add-dir DIR [PATTERN]",
		Short: "Add the files of a directory, optionally filtered by a glob",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, store, err := c.storeFor()
			if err != nil {
				return err
			}
			pattern := "*"
			if len(args) == 2 {
				pattern = args[1]
			}

			files, err := enumerate.DirectoryFiles(enumerate.DirectoryOptions{
				Dir:        args[0],
				Recursive:  recursive,
				Pattern:    pattern,
				WorkingDir: c.app.scope(doc).Dir,
			})
			if err != nil {
				return err
			}
			return c.addAll(doc, store, files, "files")
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	return cmd
}

// flushBuffer is the host save routine: live content is written to the
// document's file, which then becomes its content again.
func (c *cli) flushBuffer(doc *document.Document) error {
	if doc.Content == nil {
		return nil
	}
	if doc.Path == "" {
		return fmt.Errorf("document %s has no file", doc.Name)
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(doc.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(doc.Path, []byte(*doc.Content), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", doc.Path, err)
	}
	doc.Content = nil
	return c.app.session.UpdateContent(doc.Name, nil)
}

// revertBuffer is the host restore routine: live content is dropped in favor
// of the file on disk.
func (c *cli) revertBuffer(doc *document.Document) error {
	if doc.Content == nil {
		return nil
	}
	doc.Content = nil
	return c.app.session.UpdateContent(doc.Name, nil)
}

func (c *cli) saveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save a document, storing its local context inside it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.target(c.docFlag)
			if err != nil {
				return err
			}
			if err := c.app.persister.WrapSave(c.flushBuffer)(doc); err != nil {
				return err
			}
			c.app.printf("%s Saved %s with %s\n",
				c.app.palette.Symbol(styles.SymbolSuccess), doc.Name,
				plural(len(c.app.registry.Snapshot(doc.Name)), "reference"))
			return nil
		},
	}
}

func (c *cli) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Revert a document and read back the local context stored inside it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.target(c.docFlag)
			if err != nil {
				return err
			}
			refs, found, err := c.app.persister.WrapRestore(c.revertBuffer)(doc)
			if err != nil {
				return err
			}
			if !found {
				c.app.printf("%s No saved local context in %s\n", c.app.palette.Symbol(styles.SymbolInfo), doc.Name)
				return nil
			}
			if err := c.app.commit(); err != nil {
				return err
			}
			c.app.printf("%s Restored %s to %s\n",
				c.app.palette.Symbol(styles.SymbolSuccess), plural(len(refs), "reference"), doc.Name)
			return nil
		},
	}
}

func (c *cli) renderCommand() *cobra.Command {
	var base string
	var toClipboard bool
	var retrievers []string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the context a request would carry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.optionalTarget(c.docFlag)
			if err != nil {
				return err
			}
			scope := c.app.scope(doc)

			var text string
			switch {
			case cmd.Flags().Changed("base"):
				text = c.app.merger.Merge(cmd.Context(), base, c.app.registry.Snapshot(scope.Name()), scope)
			case len(retrievers) > 0:
				known := c.app.provider.Names()
				if unknown := lo.Without(retrievers, known...); len(unknown) > 0 {
					return fmt.Errorf("unknown retrievers %s (available: %s)",
						strings.Join(unknown, ", "), strings.Join(known, ", "))
				}
				if text, err = c.app.contextFor(retrievers)(cmd.Context(), scope); err != nil {
					return err
				}
			default:
				if text, err = c.app.builder.Context(cmd.Context(), scope); err != nil {
					return err
				}
			}

			if toClipboard {
				if err := clipboardWriteAll(text); err != nil {
					return fmt.Errorf("failed to copy to clipboard: %w", err)
				}
				errOut := cmd.ErrOrStderr()
				fmt.Fprintf(errOut, "%s Copied %s of context to the clipboard\n",
					styles.New(errOut, isTerminal(errOut)).Symbol(styles.SymbolSuccess), humanize.Bytes(uint64(len(text))))
				return nil
			}

			io.WriteString(c.app.out, text)
			if text != "" && !strings.HasSuffix(text, "\n") {
				io.WriteString(c.app.out, "\n")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "merge into this literal base context instead of the built-in one")
	cmd.Flags().BoolVar(&toClipboard, "copy", false, "copy the context to the clipboard instead of printing it")
	cmd.Flags().StringSliceVar(&retrievers, "retrievers", nil, "only use these base context retrievers (e.g. working_directory,system_info)")
	return cmd
}

func (c *cli) requestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "request PROMPT...",
		Short: "Print the chat completion request that would be sent for a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.optionalTarget(c.docFlag)
			if err != nil {
				return err
			}

			req, err := c.app.builder.Build(cmd.Context(), c.app.scope(doc), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(req, "", "  ")
			if err != nil {
				return err
			}
			c.app.printf("%s\n", out)
			return nil
		},
	}
}

func (c *cli) openCommand() *cobra.Command {
	var hidden, active, ephemeral, fromStdin bool

	cmd := &cobra.Command{
		Use:   "open FILE",
		Short: "Open a file as a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := session.OpenOptions{
				Visible:   !hidden,
				Active:    active,
				Ephemeral: ephemeral,
			}
			if fromStdin {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read content: %w", err)
				}
				content := string(data)
				opts.Content = &content
			}

			doc, err := c.app.session.Open(args[0], opts)
			if err != nil {
				return err
			}
			c.app.printf("%s Opened %s as %s (%s)\n",
				c.app.palette.Symbol(styles.SymbolSuccess), doc.Path, doc.Name, doc.Kind)

			if _, ok := c.app.registry.Get(doc.Name); ok {
				return nil
			}
			refs, found, err := c.app.persister.Restore(doc)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return nil
				}
				c.app.logger.Warn("failed to restore local context", zap.String("document", doc.Name), zap.Error(err))
				c.app.printf("%s Ignoring saved local context: %v\n", c.app.palette.Symbol(styles.SymbolError), err)
				return nil
			}
			if !found {
				return nil
			}
			if err := c.app.commit(); err != nil {
				return err
			}
			c.app.printf("%s Restored %s\n", c.app.palette.Symbol(styles.SymbolSuccess), plural(len(refs), "reference"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&hidden, "hidden", false, "open without showing the document")
	cmd.Flags().BoolVar(&active, "active", false, "make it the active document")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "open as a scratch document that never resolves as a reference")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "use standard input as the live content of the document")
	return cmd
}

func (c *cli) closeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close NAME",
		Short: "Close a document, discarding its local context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.session.Find(args[0])
			if err != nil {
				return err
			}
			if err := c.app.session.CloseDocument(doc.Name); err != nil {
				return err
			}
			c.app.registry.Drop(doc.Name)
			c.app.printf("%s Closed %s\n", c.app.palette.Symbol(styles.SymbolSuccess), doc.Name)
			return nil
		},
	}
}

func (c *cli) docsCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List open documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := c.app.session.Documents()
			if err != nil {
				return err
			}
			active := ""
			if a, err := c.app.session.Active(); err == nil {
				active = a.Name
			}

			p := c.app.palette
			shown := 0
			for _, doc := range docs {
				if !all && (!doc.Visible || doc.Ephemeral) {
					continue
				}
				marker := " "
				if doc.Name == active {
					marker = p.Render(p.Header, "*")
				}
				count := len(c.app.registry.Snapshot(doc.Name))
				c.app.printf("%s %s %s %s\n", marker, doc.Name,
					p.Render(p.Dim, doc.Kind.String()),
					p.Render(p.Dim, plural(count, "reference")))
				shown++
			}
			if shown == 0 {
				c.app.printf("%s No open documents\n", p.Symbol(styles.SymbolInfo))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include hidden and ephemeral documents")
	return cmd
}

func (c *cli) functionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the shell functions that can be referenced",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := c.app.executor.Functions()
			if len(names) == 0 {
				c.app.printf("%s No functions defined in %s\n", c.app.palette.Symbol(styles.SymbolInfo), c.app.cfg.FunctionsFile)
				return nil
			}
			for _, name := range names {
				c.app.printf("%s\n", name)
			}
			return nil
		},
	}
}
