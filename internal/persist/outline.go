package persist

import (
	"strings"
)

// Property is the root property that holds the reference list in outline documents.
const Property = "LOCAL_CONTEXT"

var (
	protectValue = strings.NewReplacer("%", "%25", " ", "%20", "\t", "%09", "\n", "%0A")
	restoreValue = strings.NewReplacer("%25", "%", "%20", " ", "%09", "\t", "%0A", "\n")
)

// Outline stores references as a multi-valued property in the root property
// drawer of an Org document:
//
//	:PROPERTIES:
//	:LOCAL_CONTEXT: notes.txt my%20file.md
//	:END:
//
// Values are whitespace separated; whitespace and % inside a value are
// percent-escaped.
type Outline struct{}

type drawer struct {
	start, end int // line indexes of :PROPERTIES: and :END:
}

func isHeading(line string) bool {
	trimmed := strings.TrimLeft(line, "*")
	return len(trimmed) < len(line) && (trimmed == "" || trimmed[0] == ' ')
}

// findRootDrawer locates the drawer that precedes any content other than
// blank lines and comments.
func findRootDrawer(lines []string) (drawer, bool) {
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "# ") || trimmed == "#" {
			continue
		}
		if !strings.EqualFold(trimmed, ":PROPERTIES:") {
			return drawer{}, false
		}
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if strings.EqualFold(t, ":END:") {
				return drawer{start: i, end: j}, true
			}
			if isHeading(lines[j]) {
				break
			}
		}
		return drawer{}, false
	}
	return drawer{}, false
}

// propertyLine splits ":NAME: value" into its parts.
func propertyLine(line string) (name, value string, ok bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, ":") {
		return "", "", false
	}
	rest := t[1:]
	i := strings.Index(rest, ":")
	if i <= 0 {
		return "", "", false
	}
	return rest[:i], strings.TrimSpace(rest[i+1:]), true
}

func isOwnProperty(name string) bool {
	return strings.EqualFold(name, Property) || strings.EqualFold(name, Property+"+")
}

// Encode implements Codec.
func (Outline) Encode(content string, refs []string) (string, error) {
	lines := strings.Split(content, "\n")
	d, found := findRootDrawer(lines)

	var line string
	if len(refs) > 0 {
		values := make([]string, len(refs))
		for i, ref := range refs {
			values[i] = protectValue.Replace(ref)
		}
		line = ":" + Property + ": " + strings.Join(values, " ")
	}

	if !found {
		if line == "" {
			return content, nil
		}
		return ":PROPERTIES:\n" + line + "\n:END:\n" + content, nil
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:d.start+1]...)
	for _, l := range lines[d.start+1 : d.end] {
		if name, _, ok := propertyLine(l); ok && isOwnProperty(name) {
			continue
		}
		out = append(out, l)
	}
	if line != "" {
		out = append(out, line)
	}
	out = append(out, lines[d.end:]...)
	return strings.Join(out, "\n"), nil
}

// Decode implements Codec. A "+" variant of the property appends values.
func (Outline) Decode(content string) ([]string, bool, error) {
	lines := strings.Split(content, "\n")
	d, ok := findRootDrawer(lines)
	if !ok {
		return nil, false, nil
	}

	var refs []string
	found := false
	for _, l := range lines[d.start+1 : d.end] {
		name, value, ok := propertyLine(l)
		if !ok || !isOwnProperty(name) {
			continue
		}
		if !strings.HasSuffix(name, "+") {
			refs = nil
		}
		found = true
		for _, v := range strings.Fields(value) {
			refs = append(refs, restoreValue.Replace(v))
		}
	}
	return refs, found, nil
}
