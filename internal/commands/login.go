package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"

	"bcload/internal/backend/basecamp"
	"bcload/internal/backend/googletasks"
	"bcload/internal/config"
	"bcload/internal/exitcode"
	"bcload/internal/service"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for the Google OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	launchpadURL string
	open         func(authURL string)
}

// SetLaunchpadURL overrides the Launchpad host (for testing).
func (c *LoginCmd) SetLaunchpadURL(u string) {
	c.launchpadURL = u
}

// SetOpener sets a function that receives the authorization URL once the
// callback server is listening (for testing).
func (c *LoginCmd) SetOpener(open func(authURL string)) {
	c.open = open
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Authenticate with the active backend" }
func (c *LoginCmd) Usage() string     { return "bcload login [common flags]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if cfg.Backend == config.BackendGoogleTasks {
		return c.loginGoogle(ctx, cfg, out, errOut)
	}
	return c.loginBasecamp(ctx, cfg, out, errOut)
}

func (c *LoginCmd) loginBasecamp(ctx context.Context, cfg *config.Config, out, errOut io.Writer) int {
	client, err := basecamp.LoadOAuthClient(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n\n", err)
		fmt.Fprintln(errOut, "To authenticate with Basecamp, register an integration:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. Go to https://launchpad.37signals.com/integrations")
		fmt.Fprintln(errOut, "2. Register a new application")
		fmt.Fprintln(errOut, "3. Use a loopback redirect URI, e.g. http://localhost:8085/callback")
		fmt.Fprintln(errOut, "4. Save the credentials as:")
		fmt.Fprintf(errOut, "   %s\n", cfg.OAuthClientPath())
		fmt.Fprintln(errOut, `   {"client_id":"...","client_secret":"...","redirect_uri":"http://localhost:8085/callback"}`)
		fmt.Fprintln(errOut, "   or set BASECAMP_CLIENT_ID, BASECAMP_CLIENT_SECRET and BASECAMP_REDIRECT_URI.")
		return exitcode.AuthError
	}

	if creds, err := basecamp.LoadCredentials(cfg.TokenPath()); err == nil {
		if creds.Expiry.IsZero() || creds.Expiry.After(time.Now()) {
			if !cfg.Quiet {
				fmt.Fprintln(out, "already logged in")
			}
			return exitcode.Success
		}
	}

	redirect, err := url.Parse(client.RedirectURI)
	if err != nil || redirect.Port() == "" {
		fmt.Fprintf(errOut, "error: redirect_uri must be a loopback URL with a port: %s\n", client.RedirectURI)
		return exitcode.AuthError
	}
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		fmt.Fprintf(errOut, "error: could not bind to %s for OAuth callback\n", redirect.Host)
		return exitcode.AuthError
	}
	defer listener.Close()

	host := c.launchpadURL
	if host == "" {
		host = basecamp.LaunchpadURL
	}
	oauthConfig := client.OAuthConfig(host)
	state := newState()

	code, ok := c.awaitCode(ctx, listener, callbackPath(redirect), state, basecamp.AuthorizationURL(oauthConfig, state), errOut)
	if !ok {
		return exitcode.AuthError
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	token, err := basecamp.Exchange(exchangeCtx, oauthConfig, code)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	accounts, err := basecamp.Accounts(exchangeCtx, &http.Client{Timeout: cfg.RequestTimeout}, host, token.AccessToken)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	account, err := basecamp.SelectAccount(accounts)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	cfg.Debugf("selected account %d (%s)", account.ID, account.Name)

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := basecamp.SaveCredentials(cfg.TokenPath(), basecamp.NewCredentials(token, account)); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok (account: %s)\n", account.Name)
	}
	return exitcode.Success
}

func (c *LoginCmd) loginGoogle(ctx context.Context, cfg *config.Config, out, errOut io.Writer) int {
	if !cfg.HasOAuthClient() {
		fmt.Fprintf(errOut, "error: %s not found\n\n", cfg.OAuthClientPath())
		fmt.Fprintln(errOut, "To authenticate with Google Tasks, you need OAuth credentials:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
		fmt.Fprintln(errOut, "2. Enable the Google Tasks API:")
		fmt.Fprintln(errOut, "   https://console.cloud.google.com/apis/library/tasks.googleapis.com")
		fmt.Fprintln(errOut, "3. Create an OAuth client ID of type 'Desktop app' and download the JSON")
		fmt.Fprintln(errOut, "4. Save it as:")
		fmt.Fprintf(errOut, "   %s\n", cfg.OAuthClientPath())
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Then run 'bcload login --backend googletasks' again.")
		return exitcode.AuthError
	}

	oauthConfig, err := googletasks.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if cfg.HasToken() && isTokenValid(ctx, cfg, oauthConfig) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		fmt.Fprintf(errOut, "error: could not bind to local port for OAuth callback\n")
		return exitcode.AuthError
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := newState()
	authURL := oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	code, ok := c.awaitCode(ctx, listener, "/callback", state, authURL, errOut)
	if !ok {
		return exitcode.AuthError
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := googletasks.SaveToken(cfg.TokenPath(), token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// awaitCode prints authURL, serves the callback on listener and waits for
// an authorization code carrying the expected state.
func (c *LoginCmd) awaitCode(ctx context.Context, listener net.Listener, path, state, authURL string, errOut io.Writer) (string, bool) {
	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "Authorization denied", http.StatusBadRequest)
			sendErr(errCh, fmt.Errorf("authorization denied: %s", e))
			return
		}
		if q.Get("state") != state {
			http.Error(w, "Invalid state", http.StatusBadRequest)
			sendErr(errCh, errors.New("invalid state in callback"))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			sendErr(errCh, errors.New("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			sendErr(errCh, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if c.open != nil {
		c.open(authURL)
	}

	select {
	case code := <-codeCh:
		return code, true
	case err := <-errCh:
		fmt.Fprintf(errOut, "error: %v\n", err)
	case <-time.After(oauthCallbackTimeout):
		fmt.Fprintln(errOut, "error: oauth callback timed out")
	case <-ctx.Done():
		fmt.Fprintln(errOut, "error: cancelled")
	}
	return "", false
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

func callbackPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func newState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

// isTokenValid reports whether the stored Google token parses, has a
// refresh token and can produce an access token.
func isTokenValid(ctx context.Context, cfg *config.Config, oauthConfig *oauth2.Config) bool {
	data, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return false
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return false
	}
	if token.RefreshToken == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = oauthConfig.TokenSource(ctx, &token).Token()
	return err == nil
}
