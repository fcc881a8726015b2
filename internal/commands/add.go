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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	project string
	list    string
	group   string
}

// SetTarget sets the project, list and group ids (for testing).
func (c *AddCmd) SetTarget(project, list, group string) {
	c.project, c.list, c.group = project, list, group
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a to-do" }
func (c *AddCmd) Usage() string {
	return "bcload add [common flags] [--project <id>] --list <id> [--group <id>] <content...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.project, "p", "", "")
	fs.StringVar(&c.list, "list", "", "")
	fs.StringVar(&c.list, "l", "", "")
	fs.StringVar(&c.group, "group", "", "")
	fs.StringVar(&c.group, "g", "", "")
}

// Run creates one to-do. With --group the group is the container.
func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	content := joinArgs(args)
	if content == "" {
		fmt.Fprintln(errOut, "error: content required")
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

	item, err := svc.CreateItem(ctx, service.Project{ID: id}, listID, strings.TrimSpace(c.group), content)
	if err != nil {
		return reportError(errOut, err)
	}

	fmt.Fprintln(out, item.ID)
	return exitcode.Success
}
