// Package wrap formats resolved sources as delimited prompt blocks.
package wrap

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atinylittleshell/ctxref/internal/resolve"
)

var fenceLanguages = map[string]string{
	".c":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".css":  "css",
	".el":   "emacs-lisp",
	".go":   "go",
	".h":    "c",
	".hpp":  "cpp",
	".html": "html",
	".java": "java",
	".js":   "javascript",
	".json": "json",
	".lua":  "lua",
	".md":   "markdown",
	".org":  "org",
	".py":   "python",
	".rb":   "ruby",
	".rs":   "rust",
	".sh":   "sh",
	".sql":  "sql",
	".toml": "toml",
	".ts":   "typescript",
	".yaml": "yaml",
	".yml":  "yaml",
}

// Language returns the fence language for a file name, or "".
func Language(name string) string {
	return fenceLanguages[strings.ToLower(filepath.Ext(name))]
}

// Block wraps src for inclusion in a prompt. An empty body yields "".
func Block(src resolve.Source) string {
	if src.Body == "" {
		return ""
	}

	switch src.Kind {
	case resolve.KindCallable:
		return Function(src.Label, src.Body)
	case resolve.KindOpenDocument:
		name := src.Path
		if name == "" {
			name = src.Label
		}
		header := fmt.Sprintf("In buffer `%s` (lines 1-%d):", src.Label, lineCount(src.Body))
		return quoted(header, Language(name), src.Body)
	default:
		return quoted(fmt.Sprintf("In file `%s`:", src.Label), Language(src.Label), src.Body)
	}
}

// Function wraps the output of a callable.
func Function(name, result string) string {
	if result == "" {
		return ""
	}
	return fmt.Sprintf("Function %s:\n\n```\n%s\n```\n", name, result)
}

func quoted(header, lang, body string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n```")
	b.WriteString(lang)
	b.WriteString("\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String()
}

func lineCount(body string) int {
	n := strings.Count(body, "\n")
	if !strings.HasSuffix(body, "\n") {
		n++
	}
	return n
}
