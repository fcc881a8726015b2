// Package googletasks implements the service.Service interface using Google Tasks API.
//
// Google Tasks has no projects, so the whole account is exposed as a single
// project. Lists map to task lists, groups to top-level tasks and grouped
// items to subtasks of their group.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"bcload/internal/config"
	"bcload/internal/service"
	"bcload/internal/throttle"
)

const (
	// ProjectID is the id of the single pseudo project.
	ProjectID = "@me"

	// ProjectName is the display name of the pseudo project.
	ProjectName = "Google Tasks"

	// APITimeout is the default timeout for API calls.
	APITimeout = config.DefaultRequestTimeout

	// TasksScope is the OAuth scope for Google Tasks.
	TasksScope = tasks.TasksScope
)

var pseudoProject = service.Project{
	ID:              ProjectID,
	Name:            ProjectName,
	ListContainerID: ProjectID,
}

// Client implements service.Service using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	timeout time.Duration
	cfg     *config.Config

	mu sync.Mutex
	// last holds the most recently created sibling per list/parent, so each
	// insert lands after it instead of at the top.
	last map[string]string
}

// OAuthConfig reads the Google OAuth client file for cfg.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", service.ErrConfiguration, cfg.OAuthClientPath(), err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, TasksScope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s: %v", service.ErrConfiguration, cfg.OAuthClientPath(), err)
	}
	return oauthConfig, nil
}

// New creates a new Google Tasks client.
// Requires googletasks_client.json and googletasks_token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w (run: bcload login --backend %s)", service.ErrNotLoggedIn, config.BackendGoogleTasks)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token file: %v", service.ErrNotLoggedIn, err)
	}

	// Token source refreshes automatically.
	httpClient := ThrottledClient(oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token)), cfg)

	c, err := NewWithHTTPClient(ctx, httpClient)
	if err != nil {
		return nil, err
	}
	c.timeout = cfg.RequestTimeout
	c.cfg = cfg
	return c, nil
}

// ThrottledClient wraps httpClient's transport with the request spacing and
// 429 retry settings from cfg. Extra options are applied after them.
func ThrottledClient(httpClient *http.Client, cfg *config.Config, opts ...throttle.Option) *http.Client {
	all := append([]throttle.Option{
		throttle.WithMinInterval(cfg.MinInterval),
		throttle.WithMaxRetries(cfg.MaxRetries),
		throttle.WithLogger(cfg.Log),
	}, opts...)

	wrapped := *httpClient
	wrapped.Transport = throttle.NewRoundTripper(httpClient.Transport, all...)
	return &wrapped
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// Extra options such as option.WithEndpoint are passed to the Tasks service.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{
		svc:     svc,
		timeout: APITimeout,
		last:    make(map[string]string),
	}, nil
}

// SaveToken writes a token with mode 0600.
func SaveToken(path string, token *oauth2.Token) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ListProjects returns the single pseudo project.
func (c *Client) ListProjects(ctx context.Context) ([]service.Project, error) {
	return []service.Project{pseudoProject}, nil
}

// ResolveProject accepts the pseudo project id or an empty id.
func (c *Client) ResolveProject(ctx context.Context, projectID string) (service.Project, error) {
	if projectID != "" && projectID != ProjectID {
		return service.Project{}, fmt.Errorf("project %s: %w", projectID, service.ErrNotFound)
	}
	return pseudoProject, nil
}

// ListChats is not supported; Google Tasks has no chat rooms.
func (c *Client) ListChats(ctx context.Context, projectID string) ([]service.Chat, error) {
	return nil, fmt.Errorf("%w: google tasks has no chat rooms", service.ErrMissingResource)
}

// CreateList creates a new task list. Task lists carry no description,
// so it is dropped.
func (c *Client) CreateList(ctx context.Context, p service.Project, name, description string) (service.ListRef, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if description != "" {
		c.cfg.Debugf("googletasks: dropping description for list %q", name)
	}
	list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: name}).Context(ctx).Do()
	if err != nil {
		return service.ListRef{}, wrapError(err)
	}
	return service.ListRef{ID: list.Id, Name: list.Title}, nil
}

// CreateGroup creates a top-level task that holds the group's items.
func (c *Client) CreateGroup(ctx context.Context, p service.Project, listID, name string) (service.GroupRef, error) {
	task, err := c.insert(ctx, listID, "", name)
	if err != nil {
		return service.GroupRef{}, err
	}
	return service.GroupRef{ID: task.Id, ListID: listID, Name: task.Title}, nil
}

// CreateItem creates a task, or a subtask of groupID when set.
func (c *Client) CreateItem(ctx context.Context, p service.Project, listID, groupID, content string) (service.ItemRef, error) {
	task, err := c.insert(ctx, listID, groupID, content)
	if err != nil {
		return service.ItemRef{}, err
	}
	return service.ItemRef{ID: task.Id, Content: task.Title}, nil
}

func (c *Client) insert(ctx context.Context, listID, parent, title string) (*tasks.Task, error) {
	if listID == "" {
		return nil, fmt.Errorf("task list %q: %w", listID, service.ErrInvalidID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	key := listID + "/" + parent

	c.mu.Lock()
	defer c.mu.Unlock()

	call := c.svc.Tasks.Insert(listID, &tasks.Task{Title: title})
	if parent != "" {
		call = call.Parent(parent)
	}
	if prev := c.last[key]; prev != "" {
		call = call.Previous(prev)
	}

	task, err := call.Context(ctx).Do()
	if err != nil {
		return nil, wrapError(err)
	}
	c.last[key] = task.Id
	return task, nil
}

// wrapError maps Google API errors onto the service error taxonomy. A 429
// only reaches here once the transport's retry budget is spent.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%w after retries: %s", service.ErrRateLimitExceeded, gerr.Message)
		}
		return &service.APIError{StatusCode: gerr.Code, Body: gerr.Message}
	}

	return err
}
