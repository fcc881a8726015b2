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
	Register(&ChatsCmd{})
}

// ChatsCmd implements the chats command.
type ChatsCmd struct {
	project string
}

// SetProject sets the project id (for testing).
func (c *ChatsCmd) SetProject(id string) {
	c.project = id
}

func (c *ChatsCmd) Name() string      { return "chats" }
func (c *ChatsCmd) Aliases() []string { return []string{"campfires"} }
func (c *ChatsCmd) Synopsis() string  { return "Print a project's chat rooms" }
func (c *ChatsCmd) Usage() string     { return "bcload chats [common flags] [--project <id>]" }
func (c *ChatsCmd) NeedsAuth() bool   { return true }

func (c *ChatsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.project, "project", "", "")
	fs.StringVar(&c.project, "p", "", "")
}

func (c *ChatsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	id, ok := projectID(cfg, c.project, errOut)
	if !ok {
		return exitcode.UserError
	}

	chats, err := svc.ListChats(ctx, id)
	if err != nil && !errors.Is(err, service.ErrPageLimit) {
		return reportError(errOut, err)
	}

	for _, chat := range chats {
		output.FormatChat(out, chat)
	}
	if err != nil {
		fmt.Fprintf(errOut, "warning: %v; list may be incomplete\n", err)
	}
	return exitcode.Success
}
