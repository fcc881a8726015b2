package output

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

const (
	// DefaultWrap is the word wrap width for rendered markdown.
	DefaultWrap = 80

	// MinWrap is the narrowest wrap width accepted.
	MinWrap = 10
)

// RenderMarkdown renders md for a terminal using the named glamour style.
// An empty style selects the plain no-TTY style. A width of zero or less
// means DefaultWrap; small positive widths are raised to MinWrap.
func RenderMarkdown(md, style string, width int) (string, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	if style == "" {
		style = styles.NoTTYStyle
	}
	switch {
	case width <= 0:
		width = DefaultWrap
	case width < MinWrap:
		width = MinWrap
	}

	// WithAutoStyle queries the terminal, which can block; use a fixed style.
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}
