package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/outline"
	"bcload/internal/output"
	"bcload/internal/service"
)

func init() {
	Register(&PreviewCmd{})
}

// PreviewCmd implements the preview command.
type PreviewCmd struct {
	file   string
	render bool
	style  string
	width  int
	in     io.Reader
}

// SetInput sets the reader used for stdin (for testing).
func (c *PreviewCmd) SetInput(r io.Reader) {
	c.in = r
}

// SetRender enables glamour rendering (for testing).
func (c *PreviewCmd) SetRender(render bool) {
	c.render = render
}

func (c *PreviewCmd) Name() string      { return "preview" }
func (c *PreviewCmd) Aliases() []string { return []string{"parse"} }
func (c *PreviewCmd) Synopsis() string  { return "Show the lists an outline would create" }
func (c *PreviewCmd) Usage() string {
	return "bcload preview [common flags] [--file <path>] [--render] [--style <name>] [--width <n>]"
}
func (c *PreviewCmd) NeedsAuth() bool { return false }

func (c *PreviewCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.file, "file", "", "")
	fs.StringVar(&c.file, "f", "", "")
	fs.BoolVar(&c.render, "render", false, "")
	fs.StringVar(&c.style, "style", "", "")
	fs.IntVar(&c.width, "width", output.DefaultWrap, "")
}

// Run parses the input and prints the outline tree, or with --render the
// normalized markdown rendered for the terminal.
func (c *PreviewCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	o, code := parseInput(c.file, c.in, errOut)
	if o == nil {
		return code
	}

	if !c.render {
		output.FormatOutline(out, o)
		return exitcode.Success
	}

	rendered, err := output.RenderMarkdown(o.Markdown(), c.style, c.width)
	if err != nil {
		fmt.Fprintf(errOut, "error: render failed: %v\n", err)
		return exitcode.UserError
	}
	fmt.Fprint(out, rendered)
	return exitcode.Success
}

// parseInput reads and parses an outline. A nil Outline means an error was
// reported and the returned code should be used.
func parseInput(path string, in io.Reader, errOut io.Writer) (outline.Outline, int) {
	text, err := readInput(path, in)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return nil, exitcode.UserError
	}
	o := outline.Parse(text)
	if len(o) == 0 {
		fmt.Fprintln(errOut, "error: no todo lists found in markdown")
		return nil, exitcode.UserError
	}
	return o, exitcode.Success
}
