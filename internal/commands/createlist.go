package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/service"
)

func init() {
	Register(&CreateListCmd{})
}

// CreateListCmd implements the createlist command.
type CreateListCmd struct {
	project     string
	description string
}

// SetProject sets the project id (for testing).
func (c *CreateListCmd) SetProject(id string) {
	c.project = id
}

func (c *CreateListCmd) Name() string      { return "createlist" }
func (c *CreateListCmd) Aliases() []string { return []string{"addlist"} }
func (c *CreateListCmd) Synopsis() string  { return "Create a to-do list" }
func (c *CreateListCmd) Usage() string {
	return "bcload createlist [common flags] [--project <id>] [--description <text>] <name...>"
}
func (c *CreateListCmd) NeedsAuth() bool { return true }

func (c *CreateListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.project, "p", "", "")
	fs.StringVar(&c.description, "description", "", "")
}

// Run resolves the project's list container, creates the list and prints its id.
func (c *CreateListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	name := joinArgs(args)
	if name == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}
	id, ok := projectID(cfg, c.project, errOut)
	if !ok {
		return exitcode.UserError
	}

	project, err := svc.ResolveProject(ctx, id)
	if err != nil {
		return reportError(errOut, err)
	}

	list, err := svc.CreateList(ctx, project, name, c.description)
	if err != nil {
		return reportError(errOut, err)
	}

	fmt.Fprintln(out, list.ID)
	return exitcode.Success
}
