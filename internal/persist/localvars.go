package persist

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Variable is the local variable that holds the reference list in generic documents.
const Variable = "ctxref-local-context"

// CommentStyle is the line comment syntax used for a local variables block.
type CommentStyle struct {
	Prefix string
	Suffix string
}

var commentStyles = map[string]CommentStyle{
	".c":    {Prefix: "// "},
	".cc":   {Prefix: "// "},
	".cpp":  {Prefix: "// "},
	".css":  {Prefix: "/* ", Suffix: " */"},
	".el":   {Prefix: ";; "},
	".go":   {Prefix: "// "},
	".h":    {Prefix: "// "},
	".html": {Prefix: "<!-- ", Suffix: " -->"},
	".java": {Prefix: "// "},
	".js":   {Prefix: "// "},
	".lisp": {Prefix: ";; "},
	".lua":  {Prefix: "-- "},
	".md":   {Prefix: "<!-- ", Suffix: " -->"},
	".rs":   {Prefix: "// "},
	".scm":  {Prefix: ";; "},
	".sql":  {Prefix: "-- "},
	".tex":  {Prefix: "% "},
	".ts":   {Prefix: "// "},
	".xml":  {Prefix: "<!-- ", Suffix: " -->"},
}

// CommentStyleFor returns the comment syntax for a file name, "# " by default.
func CommentStyleFor(path string) CommentStyle {
	if style, ok := commentStyles[strings.ToLower(filepath.Ext(path))]; ok {
		return style
	}
	return CommentStyle{Prefix: "# "}
}

// LocalVariables stores references as one assignment in a trailing local
// variables block:
//
//	# Local Variables:
//	# ctxref-local-context: ("notes.txt" "src/main.go")
//	# End:
//
// The value is a parenthesized list of double-quoted strings, nil when empty.
// An existing block keeps its own comment syntax.
type LocalVariables struct {
	Comment CommentStyle
}

// NewLocalVariables creates a LocalVariables codec for the file at path.
func NewLocalVariables(path string) LocalVariables {
	return LocalVariables{Comment: CommentStyleFor(path)}
}

type variablesBlock struct {
	start, end int // line indexes of "Local Variables:" and "End:"
	style      CommentStyle
}

// findBlock locates the last local variables block.
func findBlock(lines []string) (variablesBlock, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		idx := strings.Index(lines[i], "Local Variables:")
		if idx < 0 {
			continue
		}
		style := CommentStyle{
			Prefix: lines[i][:idx],
			Suffix: lines[i][idx+len("Local Variables:"):],
		}
		for j := i + 1; j < len(lines); j++ {
			if body, ok := style.strip(lines[j]); ok && strings.TrimSpace(body) == "End:" {
				return variablesBlock{start: i, end: j, style: style}, true
			}
		}
		return variablesBlock{}, false
	}
	return variablesBlock{}, false
}

func (c CommentStyle) strip(line string) (string, bool) {
	prefix := strings.TrimRight(c.Prefix, " ")
	suffix := strings.TrimLeft(c.Suffix, " ")
	line = strings.TrimRight(line, " \r")
	if !strings.HasPrefix(line, prefix) || !strings.HasSuffix(line, suffix) || len(line) < len(prefix)+len(suffix) {
		return "", false
	}
	return line[len(prefix) : len(line)-len(suffix)], true
}

func (c CommentStyle) wrap(body string) string {
	return c.Prefix + body + c.Suffix
}

func assignment(body string) (name, value string, ok bool) {
	i := strings.Index(body, ":")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(body[:i]), strings.TrimSpace(body[i+1:]), true
}

// Encode implements Codec.
func (lv LocalVariables) Encode(content string, refs []string) (string, error) {
	lines := strings.Split(content, "\n")
	block, found := findBlock(lines)

	if !found {
		if len(refs) == 0 {
			return content, nil
		}
		style := lv.Comment
		var b strings.Builder
		b.WriteString(content)
		if content != "" && !strings.HasSuffix(content, "\n") {
			b.WriteString("\n")
		}
		if content != "" {
			b.WriteString("\n")
		}
		b.WriteString(style.wrap("Local Variables:") + "\n")
		b.WriteString(style.wrap(Variable+": "+formatList(refs)) + "\n")
		b.WriteString(style.wrap("End:") + "\n")
		return b.String(), nil
	}

	var kept []string
	for _, l := range lines[block.start+1 : block.end] {
		if body, ok := block.style.strip(l); ok {
			if name, _, ok := assignment(body); ok && name == Variable {
				continue
			}
		}
		kept = append(kept, l)
	}
	if len(refs) > 0 {
		kept = append(kept, block.style.wrap(Variable+": "+formatList(refs)))
	}

	out := make([]string, 0, len(lines)+1)
	if len(kept) == 0 {
		// Drop the whole block, and the blank line that introduced it.
		head := lines[:block.start]
		if n := len(head); n > 0 && head[n-1] == "" {
			head = head[:n-1]
		}
		out = append(out, head...)
		out = append(out, lines[block.end+1:]...)
		return strings.Join(out, "\n"), nil
	}
	out = append(out, lines[:block.start+1]...)
	out = append(out, kept...)
	out = append(out, lines[block.end:]...)
	return strings.Join(out, "\n"), nil
}

// Decode implements Codec.
func (lv LocalVariables) Decode(content string) ([]string, bool, error) {
	lines := strings.Split(content, "\n")
	block, ok := findBlock(lines)
	if !ok {
		return nil, false, nil
	}
	for _, l := range lines[block.start+1 : block.end] {
		body, ok := block.style.strip(l)
		if !ok {
			continue
		}
		name, value, ok := assignment(body)
		if !ok || name != Variable {
			continue
		}
		refs, err := parseList(value)
		if err != nil {
			return nil, true, err
		}
		return refs, true, nil
	}
	return nil, false, nil
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`).Replace(s) + `"`
}

func formatList(refs []string) string {
	if len(refs) == 0 {
		return "nil"
	}
	quoted := make([]string, len(refs))
	for i, ref := range refs {
		quoted[i] = quote(ref)
	}
	return "(" + strings.Join(quoted, " ") + ")"
}

// parseList reads a list of string literals: ("a" "b\"c") or nil.
func parseList(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "nil" || value == "()" {
		return []string{}, nil
	}
	if !strings.HasPrefix(value, "(") {
		return nil, fmt.Errorf("%w: expected a list, got %q", ErrMalformed, value)
	}

	var refs []string
	i := 1
	for {
		for i < len(value) && (value[i] == ' ' || value[i] == '\t') {
			i++
		}
		if i >= len(value) {
			return nil, fmt.Errorf("%w: unterminated list", ErrMalformed)
		}
		switch value[i] {
		case ')':
			if rest := strings.TrimSpace(value[i+1:]); rest != "" {
				return nil, fmt.Errorf("%w: trailing %q", ErrMalformed, rest)
			}
			if refs == nil {
				refs = []string{}
			}
			return refs, nil
		case '"':
			s, next, err := readString(value, i+1)
			if err != nil {
				return nil, err
			}
			refs = append(refs, s)
			i = next
		default:
			return nil, fmt.Errorf("%w: unexpected %q", ErrMalformed, value[i])
		}
	}
}

func readString(value string, i int) (string, int, error) {
	var b strings.Builder
	for i < len(value) {
		c := value[i]
		switch c {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(value) {
				return "", 0, fmt.Errorf("%w: dangling escape", ErrMalformed)
			}
			i++
			if value[i] == 'n' {
				b.WriteByte('\n')
			} else {
				b.WriteByte(value[i])
			}
		default:
			b.WriteByte(c)
		}
		i++
	}
	return "", 0, fmt.Errorf("%w: unterminated string", ErrMalformed)
}
