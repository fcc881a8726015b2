package commands

import (
	"context"
	"errors"
	"flag"
	"io"

	"bcload/internal/builder"
	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/output"
	"bcload/internal/service"
)

func init() {
	Register(&LoadCmd{})
}

// LoadCmd implements the load command.
type LoadCmd struct {
	project string
	file    string
	dryRun  bool
	in      io.Reader
}

// SetInput sets the reader used for stdin (for testing).
func (c *LoadCmd) SetInput(r io.Reader) {
	c.in = r
}

// SetProject sets the project id (for testing).
func (c *LoadCmd) SetProject(id string) {
	c.project = id
}

func (c *LoadCmd) Name() string      { return "load" }
func (c *LoadCmd) Aliases() []string { return []string{"import"} }
func (c *LoadCmd) Synopsis() string  { return "Create every list in a markdown outline" }
func (c *LoadCmd) Usage() string {
	return "bcload load [common flags] [--project <id>] [--file <path>] [--dry-run]"
}

// NeedsAuth is false for dry runs, which never reach the backend.
func (c *LoadCmd) NeedsAuth() bool { return !c.dryRun }

func (c *LoadCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.project, "p", "", "")
	fs.StringVar(&c.file, "file", "", "")
	fs.StringVar(&c.file, "f", "", "")
	fs.BoolVar(&c.dryRun, "dry-run", false, "")
	fs.BoolVar(&c.dryRun, "n", false, "")
}

// Run parses the outline and creates it list by list. Progress goes to
// errOut, the summary to out.
func (c *LoadCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	o, code := parseInput(c.file, c.in, errOut)
	if o == nil {
		return code
	}

	if c.dryRun {
		output.FormatOutline(out, o)
		return exitcode.Success
	}

	id, ok := projectID(cfg, c.project, errOut)
	if !ok {
		return exitcode.UserError
	}

	opts := builder.Options{Logf: cfg.Debugf}
	if !cfg.Quiet {
		opts.Progress = func(e builder.Event) { output.FormatProgress(errOut, e) }
	}

	sum, err := builder.Build(ctx, svc, id, o, opts)
	if err != nil && !isStop(err) {
		// Nothing was created: the project could not be resolved.
		return reportError(errOut, err)
	}

	output.FormatSummary(out, sum)
	switch {
	case err != nil:
		return reportError(errOut, err)
	case sum.Failed():
		return exitcode.Partial
	default:
		return exitcode.Success
	}
}

func isStop(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
