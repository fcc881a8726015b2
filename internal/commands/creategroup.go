package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/service"
)

func init() {
	Register(&CreateGroupCmd{})
}

// CreateGroupCmd implements the creategroup command.
type CreateGroupCmd struct {
	project string
	list    string
}

// SetTarget sets the project and list ids (for testing).
func (c *CreateGroupCmd) SetTarget(project, list string) {
	c.project, c.list = project, list
}

func (c *CreateGroupCmd) Name() string      { return "creategroup" }
func (c *CreateGroupCmd) Aliases() []string { return []string{"addgroup"} }
func (c *CreateGroupCmd) Synopsis() string  { return "Create a group in a to-do list" }
func (c *CreateGroupCmd) Usage() string {
	return "bcload creategroup [common flags] [--project <id>] --list <id> <name...>"
}
func (c *CreateGroupCmd) NeedsAuth() bool { return true }

func (c *CreateGroupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.project, "p", "", "")
	fs.StringVar(&c.list, "list", "", "")
	fs.StringVar(&c.list, "l", "", "")
}

func (c *CreateGroupCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	name := joinArgs(args)
	if name == "" {
		fmt.Fprintln(errOut, "error: group name required")
		return exitcode.UserError
	}
	listID := strings.TrimSpace(c.list)
	if listID == "" {
		fmt.Fprintln(errOut, "error: --list required")
		return exitcode.UserError
	}
	id, ok := projectID(cfg, c.project, errOut)
	if !ok {
		return exitcode.UserError
	}

	group, err := svc.CreateGroup(ctx, service.Project{ID: id}, listID, name)
	if err != nil {
		return reportError(errOut, err)
	}

	fmt.Fprintln(out, group.ID)
	return exitcode.Success
}
