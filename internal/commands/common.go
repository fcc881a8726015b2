package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/service"
)

// reportError prints err and returns the matching exit code.
func reportError(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(errOut, "error: cancelled")
		return exitcode.BackendError
	case service.IsAuthError(err):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	case errors.Is(err, service.ErrInvalidID), errors.Is(err, service.ErrNotFound):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// projectID returns the --project value, falling back to the configured
// default. Google Tasks has a single implicit project, so it may be empty.
func projectID(cfg *config.Config, flagValue string, errOut io.Writer) (string, bool) {
	id := strings.TrimSpace(flagValue)
	if id == "" {
		id = cfg.Project
	}
	if id == "" && cfg.Backend != config.BackendGoogleTasks {
		fmt.Fprintln(errOut, "error: project required (--project or BCLOAD_PROJECT)")
		return "", false
	}
	return id, true
}

// readInput reads path, or in when path is empty or "-".
func readInput(path string, in io.Reader) (string, error) {
	if path == "" || path == "-" {
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// joinArgs joins positional args into one trimmed string.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
