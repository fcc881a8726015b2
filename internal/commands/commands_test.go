package commands_test

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"bcload/internal/commands"
	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/service"
	"bcload/internal/testutil"
)

const sampleOutline = `# Design Phase
- Create wireframes
- Design mockups

# Build
## Backend
- API
- Storage
- Deploy script
`

// runCommand is a helper to run a command with FakeService.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()
	cfg := &config.Config{
		Dir:     t.TempDir(),
		Quiet:   quiet,
		Backend: config.BackendBasecamp,
	}
	return runWithConfig(t, cmd, cfg, svc, args)
}

func runWithConfig(t *testing.T, cmd commands.Command, cfg *config.Config, svc *testutil.FakeService, args []string) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	var s service.Service
	if svc != nil {
		s = svc
	}
	code = cmd.Run(context.Background(), cfg, s, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// parseFlags registers cmd's flags and parses args into it.
func parseFlags(t *testing.T, cmd commands.Command, args ...string) []string {
	t.Helper()
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return fs.Args()
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "bcload 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	for _, want := range []string{"Usage:", "bcload load", "## Group name", "--backend"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// Tests for projects command
func TestProjectsCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddProject(service.Project{ID: "3", Name: "Apollo"})

	stdout, stderr, code := runCommand(t, &commands.ProjectsCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if expected := "3  Apollo\n10  Launch\n"; stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestProjectsCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unauthorized", &service.APIError{StatusCode: 401, Body: "expired"}, exitcode.AuthError},
		{"not logged in", service.ErrNotLoggedIn, exitcode.AuthError},
		{"rate limited", service.ErrRateLimitExceeded, exitcode.BackendError},
		{"server", &service.APIError{StatusCode: 500}, exitcode.BackendError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := testutil.NewFakeService()
			svc.ListProjectsErr = tt.err

			stdout, stderr, code := runCommand(t, &commands.ProjectsCmd{}, svc, nil, false)
			if code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, code)
			}
			if stdout != "" {
				t.Errorf("expected no stdout, got %q", stdout)
			}
			if !strings.HasPrefix(stderr, "error: ") {
				t.Errorf("unexpected stderr %q", stderr)
			}
		})
	}
}

// Tests for chats command
func TestChatsCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddChat("10", service.Chat{ID: "8", Title: "Random"})
	svc.AddChat("10", service.Chat{ID: "7", Title: "Campfire"})

	cmd := &commands.ChatsCmd{}
	cmd.SetProject("10")
	stdout, _, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if expected := "7  Campfire\n8  Random\n"; stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestChatsCommand_ProjectFromConfig(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddChat("10", service.Chat{ID: "7", Title: "Campfire"})

	cfg := &config.Config{Dir: t.TempDir(), Backend: config.BackendBasecamp, Project: "10"}
	stdout, _, code := runWithConfig(t, &commands.ChatsCmd{}, cfg, svc, nil)

	if code != exitcode.Success || stdout != "7  Campfire\n" {
		t.Errorf("unexpected result %d %q", code, stdout)
	}
}

func TestChatsCommand_ProjectRequired(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.ChatsCmd{}, svc, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if expected := "error: project required (--project or BCLOAD_PROJECT)\n"; stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

// Tests for createlist command
func TestCreateListCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.CreateListCmd{}
	cmd.SetProject("10")
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"Design", "Phase"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "list-1\n" {
		t.Errorf("expected new list id, got %q", stdout)
	}
	calls := svc.Calls()
	if len(calls) != 1 || calls[0].Name != "Design Phase" {
		t.Errorf("unexpected calls %+v", calls)
	}
}

func TestCreateListCommand_Errors(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddProject(service.Project{ID: "11", Name: "Bare"})

	tests := []struct {
		name    string
		project string
		args    []string
		code    int
		stderr  string
	}{
		{"no name", "10", nil, exitcode.UserError, "error: list name required\n"},
		{"blank name", "10", []string{"  "}, exitcode.UserError, "error: list name required\n"},
		{"unknown project", "404", []string{"X"}, exitcode.UserError, "error: project 404: not found\n"},
		{"no todoset", "11", []string{"X"}, exitcode.BackendError, "error: backend error: project 11: missing resource\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &commands.CreateListCmd{}
			cmd.SetProject(tt.project)
			_, stderr, code := runCommand(t, cmd, svc, tt.args, false)
			if code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, code)
			}
			if stderr != tt.stderr {
				t.Errorf("expected %q, got %q", tt.stderr, stderr)
			}
		})
	}
}

// Tests for creategroup command
func TestCreateGroupCommand(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.CreateGroupCmd{}
	cmd.SetTarget("10", "1001")
	stdout, _, code := runCommand(t, cmd, svc, []string{"Backend"}, false)

	if code != exitcode.Success || stdout != "group-1\n" {
		t.Fatalf("unexpected result %d %q", code, stdout)
	}
	if c := svc.Calls()[0]; c.ListID != "1001" || c.Name != "Backend" {
		t.Errorf("unexpected call %+v", c)
	}
}

func TestCreateGroupCommand_ListRequired(t *testing.T) {
	cmd := &commands.CreateGroupCmd{}
	cmd.SetTarget("10", "")
	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), []string{"Backend"}, false)

	if code != exitcode.UserError || stderr != "error: --list required\n" {
		t.Errorf("unexpected result %d %q", code, stderr)
	}
}

// Tests for add command
func TestAddCommand_Grouped(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.AddCmd{}
	cmd.SetTarget("10", "1001", "1002")
	stdout, _, code := runCommand(t, cmd, svc, []string{"Write", "tests"}, false)

	if code != exitcode.Success || stdout != "item-1\n" {
		t.Fatalf("unexpected result %d %q", code, stdout)
	}
	c := svc.Calls()[0]
	if c.ListID != "1001" || c.GroupID != "1002" || c.Name != "Write tests" {
		t.Errorf("unexpected call %+v", c)
	}
}

func TestAddCommand_ContentRequired(t *testing.T) {
	cmd := &commands.AddCmd{}
	cmd.SetTarget("10", "1001", "")
	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, false)

	if code != exitcode.UserError || stderr != "error: content required\n" {
		t.Errorf("unexpected result %d %q", code, stderr)
	}
}

func TestAddCommand_InvalidID(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateItemErr["x"] = errors.Join(errors.New(`todolist "abc"`), service.ErrInvalidID)

	cmd := &commands.AddCmd{}
	cmd.SetTarget("10", "abc", "")
	_, _, code := runCommand(t, cmd, svc, []string{"x"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
}

// Tests for preview command
func TestPreviewCommand(t *testing.T) {
	cmd := &commands.PreviewCmd{}
	cmd.SetInput(strings.NewReader(sampleOutline))

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	testutil.GoldenString(t, "preview", stdout)
}

func TestPreviewCommand_Render(t *testing.T) {
	cmd := &commands.PreviewCmd{}
	cmd.SetInput(strings.NewReader(sampleOutline))
	cmd.SetRender(true)

	stdout, _, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	for _, want := range []string{"Design Phase", "Backend", "Deploy script"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("rendered output missing %q:\n%s", want, stdout)
		}
	}
}

func TestPreviewCommand_Empty(t *testing.T) {
	cmd := &commands.PreviewCmd{}
	cmd.SetInput(strings.NewReader("just prose\n# Empty\n### deeper\n"))

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if expected := "error: no todo lists found in markdown\n"; stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

// Tests for load command
func TestLoadCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.LoadCmd{}
	cmd.SetProject("10")
	cmd.SetInput(strings.NewReader(sampleOutline))
	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if expected := "creating list 1 of 2: \"Design Phase\"\ncreating list 2 of 2: \"Build\"\n"; stderr != expected {
		t.Errorf("expected progress %q, got %q", expected, stderr)
	}
	if expected := "created 2 list(s) with 1 group(s) and 5 item(s)\n"; stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
	if n := len(svc.Calls()); n != 8 {
		t.Errorf("expected 8 create calls, got %d", n)
	}
}

func TestLoadCommand_QuietHidesProgress(t *testing.T) {
	cmd := &commands.LoadCmd{}
	cmd.SetProject("10")
	cmd.SetInput(strings.NewReader(sampleOutline))
	stdout, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no progress in quiet mode, got %q", stderr)
	}
	if stdout == "" {
		t.Error("summary should still be printed")
	}
}

func TestLoadCommand_PartialFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.CreateListErr["Design Phase"] = &service.APIError{StatusCode: 507, Body: "full"}

	cmd := &commands.LoadCmd{}
	cmd.SetProject("10")
	cmd.SetInput(strings.NewReader(sampleOutline))
	stdout, _, code := runCommand(t, cmd, svc, nil, true)

	if code != exitcode.Partial {
		t.Errorf("expected exit code %d, got %d", exitcode.Partial, code)
	}
	testutil.GoldenString(t, "load_partial", stdout)
}

func TestLoadCommand_ProjectNotFound(t *testing.T) {
	cmd := &commands.LoadCmd{}
	cmd.SetProject("404")
	cmd.SetInput(strings.NewReader(sampleOutline))
	stdout, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, true)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("no summary expected, got %q", stdout)
	}
	if expected := "error: project 404: not found\n"; stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestLoadCommand_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := testutil.NewFakeService()
	svc.BeforeCreate = func(op, name string) {
		if name == "Build" {
			cancel()
		}
	}

	cmd := &commands.LoadCmd{}
	cmd.SetProject("10")
	cmd.SetInput(strings.NewReader(sampleOutline))

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{Dir: t.TempDir(), Backend: config.BackendBasecamp, Quiet: true}
	code := cmd.Run(ctx, cfg, svc, nil, &outBuf, &errBuf)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if expected := "created 1 list(s) with 0 group(s) and 2 item(s)\n"; outBuf.String() != expected {
		t.Errorf("expected partial summary %q, got %q", expected, outBuf.String())
	}
	if errBuf.String() != "error: cancelled\n" {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
}

func TestLoadCommand_EmptyOutline(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.LoadCmd{}
	cmd.SetProject("10")
	cmd.SetInput(strings.NewReader("\n\n"))
	_, stderr, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: no todo lists found in markdown\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.Calls()) != 0 {
		t.Error("no remote calls expected")
	}
}

func TestLoadCommand_MissingFile(t *testing.T) {
	cmd := &commands.LoadCmd{}
	parseFlags(t, cmd, "--project", "10", "--file", "/nonexistent/outline.md")

	_, stderr, code := runCommand(t, cmd, testutil.NewFakeService(), nil, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: open /nonexistent/outline.md") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestLoadCommand_DryRunSkipsAuth(t *testing.T) {
	cmd := &commands.LoadCmd{}
	parseFlags(t, cmd, "--dry-run")
	if cmd.NeedsAuth() {
		t.Fatal("dry run should not need auth")
	}
	cmd.SetInput(strings.NewReader(sampleOutline))

	stdout, _, code := runCommand(t, cmd, nil, nil, false)
	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	testutil.GoldenString(t, "preview", stdout)

	parseFlags(t, cmd)
	if !cmd.NeedsAuth() {
		t.Error("a real load needs auth")
	}
}
