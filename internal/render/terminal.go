package render

import (
	"github.com/charmbracelet/glamour"
)

// Terminal renders markdown for a terminal.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal creates a terminal renderer wrapping at width columns. An empty
// style picks one based on the terminal background.
func NewTerminal(width int, style string) (*Terminal, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Terminal{renderer: r}, nil
}

// Render returns styled output, or the source unchanged if rendering fails.
func (t *Terminal) Render(source string) string {
	if t == nil || t.renderer == nil {
		return source
	}
	out, err := t.renderer.Render(source)
	if err != nil {
		return source
	}
	return out
}
