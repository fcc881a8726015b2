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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "bcload help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  bcload load [common flags] [--project <id>] [--file <path>] [--dry-run]
                                  Create every list in a markdown outline
  bcload preview [common flags] [--file <path>] [--render] [--width <n>]
                                  Show how an outline will be created
  bcload projects [common flags]
  bcload chats [common flags] [--project <id>]
  bcload createlist [common flags] [--project <id>] [--description <text>] <name...>
  bcload creategroup [common flags] [--project <id>] --list <id> <name...>
  bcload add [common flags] [--project <id>] --list <id> [--group <id>] <content...>
  bcload login [common flags]
  bcload logout [common flags] [--all]
  bcload help
  bcload version

Outline format:
  # List name        starts a to-do list
  ## Group name      starts a group in the current list
  - item             adds a to-do (also "* item")
  Other lines are ignored. Items before any heading go to a list named "Tasks".

Common flags:
  --config <dir>     Override config directory
  --backend <name>   basecamp (default) or googletasks
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr

Exit codes:
  0 success, 1 user error, 2 auth/config error, 3 backend error,
  4 load finished with some failures
`
