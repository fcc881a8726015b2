package basecamp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"bcload/internal/config"
	"bcload/internal/service"
)

// LaunchpadURL is the 37signals authorization host.
const LaunchpadURL = "https://launchpad.37signals.com"

// basecamp3Product marks Basecamp 3/4 accounts in the authorization response.
const basecamp3Product = "bc3"

// WebServerGrant is the extra parameter Launchpad requires on both the
// authorization URL and the token exchange.
var WebServerGrant = oauth2.SetAuthURLParam("type", "web_server")

// OAuthClient holds the registered application's credentials.
type OAuthClient struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
}

// LoadOAuthClient reads basecamp_client.json from the config dir when it
// exists, then applies BASECAMP_CLIENT_ID, BASECAMP_CLIENT_SECRET and
// BASECAMP_REDIRECT_URI. Any missing field is a configuration error.
func LoadOAuthClient(cfg *config.Config) (OAuthClient, error) {
	var c OAuthClient
	data, err := os.ReadFile(cfg.OAuthClientPath())
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &c); err != nil {
			return OAuthClient{}, fmt.Errorf("%w: invalid %s: %v", service.ErrConfiguration, cfg.OAuthClientPath(), err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return OAuthClient{}, fmt.Errorf("%w: %v", service.ErrConfiguration, err)
	}

	c.ClientID = config.Getenv("BASECAMP_CLIENT_ID", c.ClientID)
	c.ClientSecret = config.Getenv("BASECAMP_CLIENT_SECRET", c.ClientSecret)
	c.RedirectURI = config.Getenv("BASECAMP_REDIRECT_URI", c.RedirectURI)

	if c.ClientID == "" || c.ClientSecret == "" || c.RedirectURI == "" {
		return OAuthClient{}, fmt.Errorf("%w: missing OAuth configuration (client_id, client_secret and redirect_uri are required)", service.ErrConfiguration)
	}
	return c, nil
}

// OAuthConfig builds the oauth2 configuration for Launchpad at host.
func (c OAuthClient) OAuthConfig(host string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   host + "/authorization/new",
			TokenURL:  host + "/authorization/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthorizationURL returns the URL the user opens to grant access.
func AuthorizationURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, WebServerGrant)
}

// Exchange trades an authorization code for a token.
func Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := conf.Exchange(ctx, code, WebServerGrant)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange authorization code: %v", service.ErrAuthExchange, err)
	}
	return tok, nil
}

// Refresh trades a refresh token for a new access token. Launchpad wants
// type=refresh rather than the standard grant_type, so the form is built by
// hand. Launchpad does not rotate refresh tokens; the old one is kept when
// the response omits it.
func Refresh(ctx context.Context, httpClient *http.Client, conf *oauth2.Config, refreshToken string) (*oauth2.Token, error) {
	form := url.Values{
		"type":          {"refresh"},
		"refresh_token": {refreshToken},
		"client_id":     {conf.ClientID},
		"client_secret": {conf.ClientSecret},
		"redirect_uri":  {conf.RedirectURL},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrAuthExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to refresh token: %v", service.ErrAuthExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: failed to refresh token: %w", service.ErrAuthExchange,
			&service.APIError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode refreshed token: %v", service.ErrAuthExchange, err)
	}
	if data.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response has no access token", service.ErrAuthExchange)
	}

	tok := &oauth2.Token{
		AccessToken:  data.AccessToken,
		TokenType:    data.TokenType,
		RefreshToken: data.RefreshToken,
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	if data.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(data.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// RefreshCredentials refreshes creds' token at the Launchpad host and saves
// the result to cfg.TokenPath(). Any failure is reported as ErrNotLoggedIn
// so the user is sent back through login.
func RefreshCredentials(ctx context.Context, cfg *config.Config, host string, creds Credentials) (Credentials, error) {
	if creds.RefreshToken == "" {
		return Credentials{}, fmt.Errorf("%w: token expired (run: bcload login)", service.ErrNotLoggedIn)
	}
	client, err := LoadOAuthClient(cfg)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: token expired and cannot be refreshed: %v (run: bcload login)", service.ErrNotLoggedIn, err)
	}

	tok, err := Refresh(ctx, &http.Client{Timeout: cfg.RequestTimeout}, client.OAuthConfig(host), creds.RefreshToken)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: token expired and refresh failed: %v (run: bcload login)", service.ErrNotLoggedIn, err)
	}
	creds.Token = *tok
	if err := SaveCredentials(cfg.TokenPath(), creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to save refreshed token: %w", err)
	}
	cfg.Debugf("refreshed basecamp token for account %s", creds.AccountID)
	return creds, nil
}

// Account is one entry of the authorization.json accounts array.
type Account struct {
	Product string `json:"product"`
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Href    string `json:"href"`
}

// Accounts lists the accounts the token can access.
func Accounts(ctx context.Context, httpClient *http.Client, host, accessToken string) ([]Account, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/authorization.json", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrAuthExchange, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user accounts: %v", service.ErrAuthExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: failed to get user accounts: %w", service.ErrAuthExchange,
			&service.APIError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var data struct {
		Accounts []Account `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: decode accounts: %v", service.ErrAuthExchange, err)
	}
	return data.Accounts, nil
}

// SelectAccount picks the first Basecamp 3 account.
func SelectAccount(accounts []Account) (Account, error) {
	for _, a := range accounts {
		if a.Product == basecamp3Product {
			return a, nil
		}
	}
	return Account{}, fmt.Errorf("%w: no basecamp account", service.ErrAuthExchange)
}

// Credentials is the stored token plus the account it was issued for.
type Credentials struct {
	oauth2.Token
	AccountID string `json:"account_id"`
}

// NewCredentials pairs a token with an account.
func NewCredentials(tok *oauth2.Token, account Account) Credentials {
	return Credentials{Token: *tok, AccountID: strconv.FormatInt(account.ID, 10)}
}

// LoadCredentials reads stored credentials. A missing file is ErrNotLoggedIn.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Credentials{}, fmt.Errorf("%w (run: bcload login)", service.ErrNotLoggedIn)
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read token: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: invalid token file: %v", service.ErrNotLoggedIn, err)
	}
	if creds.AccessToken == "" || creds.AccountID == "" {
		return Credentials{}, fmt.Errorf("%w: token file is incomplete (run: bcload login)", service.ErrNotLoggedIn)
	}
	return creds, nil
}

// SaveCredentials writes credentials with mode 0600.
func SaveCredentials(path string, creds Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
