// Package styles holds the terminal styles used by the ctxref CLI.
package styles

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// ANSI colors
const (
	ColorCyan   = lipgloss.Color("12")
	ColorYellow = lipgloss.Color("11")
	ColorGreen  = lipgloss.Color("10")
	ColorRed    = lipgloss.Color("9")
	ColorGray   = lipgloss.Color("8")
)

// Symbols
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolInfo    = "→"
	SymbolMissing = "○"
)

// Palette renders text for one output stream. A plain palette returns its
// input unchanged.
type Palette struct {
	plain bool

	Header  lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Dim     lipgloss.Style
}

// New creates a Palette writing to w. Color is only applied when color is true.
func New(w io.Writer, color bool) *Palette {
	r := lipgloss.NewRenderer(w)
	return &Palette{
		plain:   !color,
		Header:  r.NewStyle().Foreground(ColorCyan).Bold(true),
		Success: r.NewStyle().Foreground(ColorGreen),
		Error:   r.NewStyle().Foreground(ColorRed),
		Warning: r.NewStyle().Foreground(ColorYellow),
		Dim:     r.NewStyle().Foreground(ColorGray),
	}
}

// Render applies style to s unless the palette is plain.
func (p *Palette) Render(style lipgloss.Style, s string) string {
	if p.plain {
		return s
	}
	return style.Render(s)
}

// Symbol returns a styled status symbol.
func (p *Palette) Symbol(symbol string) string {
	switch symbol {
	case SymbolSuccess:
		return p.Render(p.Success, symbol)
	case SymbolError:
		return p.Render(p.Error, symbol)
	case SymbolMissing:
		return p.Render(p.Warning, symbol)
	case SymbolInfo:
		return p.Render(p.Dim, symbol)
	default:
		return symbol
	}
}

// Kind styles the name of a reference kind.
func (p *Palette) Kind(kind string) string {
	switch kind {
	case "buffer":
		return p.Render(p.Header, kind)
	case "function":
		return p.Render(p.Warning, kind)
	case "unknown":
		return p.Render(p.Error, kind)
	default:
		return p.Render(p.Dim, kind)
	}
}
