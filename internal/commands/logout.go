package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/service"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct {
	all bool
}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string     { return "bcload logout [common flags] [--all]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
}

// Run removes the active backend's token, or every backend's with --all.
// OAuth client files are left in place.
func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	backends := []string{cfg.Backend}
	if c.all {
		backends = []string{config.BackendBasecamp, config.BackendGoogleTasks}
	}

	removed := 0
	for _, backend := range backends {
		target := *cfg
		target.Backend = backend
		err := target.RemoveToken()
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
			return exitcode.AuthError
		}
		cfg.Debugf("removed %s", target.TokenPath())
		removed++
	}

	if !cfg.Quiet {
		if removed == 0 {
			fmt.Fprintln(out, "not logged in")
		} else {
			fmt.Fprintln(out, "ok")
		}
	}
	return exitcode.Success
}
