package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/output"
	"bcload/internal/service"
)

func init() {
	Register(&ProjectsCmd{})
}

// ProjectsCmd implements the projects command.
type ProjectsCmd struct{}

func (c *ProjectsCmd) Name() string      { return "projects" }
func (c *ProjectsCmd) Aliases() []string { return nil }
func (c *ProjectsCmd) Synopsis() string  { return "Print all projects" }
func (c *ProjectsCmd) Usage() string     { return "bcload projects [common flags]" }
func (c *ProjectsCmd) NeedsAuth() bool   { return true }

func (c *ProjectsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ProjectsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	projects, err := svc.ListProjects(ctx)
	if err != nil && !errors.Is(err, service.ErrPageLimit) {
		return reportError(errOut, err)
	}

	for _, p := range projects {
		output.FormatProject(out, p)
	}
	if err != nil {
		fmt.Fprintf(errOut, "warning: %v; list may be incomplete\n", err)
	}
	return exitcode.Success
}
