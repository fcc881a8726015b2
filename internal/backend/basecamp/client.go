// Package basecamp implements service.Service against the Basecamp 3 API.
package basecamp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"bcload/internal/config"
	"bcload/internal/service"
)

const (
	// APIHost is the Basecamp 3 API host. Account ids are appended as the
	// first path segment.
	APIHost = "https://3.basecampapi.com"

	// DefaultUserAgent is sent on every request; Basecamp requires one.
	DefaultUserAgent = config.DefaultUserAgent

	todosetDock = "todoset"
)

// Client implements service.Service using the Basecamp 3 REST API.
type Client struct {
	t        *Transport
	maxPages int
}

// New creates a client from the stored credentials in cfg. An expired token
// is refreshed through Launchpad first.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	creds, err := LoadCredentials(cfg.TokenPath())
	if err != nil {
		return nil, err
	}
	if !creds.Expiry.IsZero() && creds.Expiry.Before(time.Now()) {
		if creds, err = RefreshCredentials(ctx, cfg, LaunchpadURL, creds); err != nil {
			return nil, err
		}
	}

	t := NewTransport(
		BaseURL(APIHost, creds.AccountID),
		creds.AccessToken,
		WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		WithUserAgent(cfg.UserAgent),
		WithMinInterval(cfg.MinInterval),
		WithMaxRetries(cfg.MaxRetries),
		WithLogger(cfg.Log),
	)
	return NewWithTransport(t, cfg.MaxPages), nil
}

// NewWithTransport creates a client on an existing transport.
func NewWithTransport(t *Transport, maxPages int) *Client {
	return &Client{t: t, maxPages: maxPages}
}

// BaseURL returns the API base for an account.
func BaseURL(host, accountID string) string {
	return host + "/" + accountID
}

type dockEntry struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`
}

type project struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Dock        []dockEntry `json:"dock"`
}

type chat struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type todolist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type todo struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

func (p project) toService() service.Project {
	out := service.Project{
		ID:          formatID(p.ID),
		Name:        p.Name,
		Description: p.Description,
	}
	for _, d := range p.Dock {
		if d.Name == todosetDock {
			out.ListContainerID = formatID(d.ID)
			break
		}
	}
	return out
}

// ListProjects returns all projects sorted by name. At the page cap the
// projects collected so far are returned with service.ErrPageLimit.
func (c *Client) ListProjects(ctx context.Context) ([]service.Project, error) {
	raw, err := FetchAll[project](ctx, c.t, "/projects.json", c.maxPages)
	if err != nil && !errors.Is(err, service.ErrPageLimit) {
		return nil, err
	}
	result := make([]service.Project, 0, len(raw))
	for _, p := range raw {
		result = append(result, p.toService())
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, err
}

// ResolveProject fetches a project and finds its todoset in the dock.
func (c *Client) ResolveProject(ctx context.Context, projectID string) (service.Project, error) {
	id, err := parseID("project", projectID)
	if err != nil {
		return service.Project{}, err
	}

	var p project
	if err := c.getJSON(ctx, fmt.Sprintf("/projects/%d.json", id), &p); err != nil {
		return service.Project{}, err
	}

	out := p.toService()
	if out.ListContainerID == "" {
		return service.Project{}, fmt.Errorf("project %s: no todoset found: %w", projectID, service.ErrMissingResource)
	}
	return out, nil
}

// ListChats returns the project's chat rooms sorted by title.
func (c *Client) ListChats(ctx context.Context, projectID string) ([]service.Chat, error) {
	id, err := parseID("project", projectID)
	if err != nil {
		return nil, err
	}
	raw, err := FetchAll[chat](ctx, c.t, fmt.Sprintf("/buckets/%d/chats.json", id), c.maxPages)
	if err != nil && !errors.Is(err, service.ErrPageLimit) {
		return nil, err
	}
	result := make([]service.Chat, 0, len(raw))
	for _, ch := range raw {
		result = append(result, service.Chat{ID: formatID(ch.ID), Title: ch.Title})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, err
}

// CreateList creates a to-do list in the project's todoset.
func (c *Client) CreateList(ctx context.Context, p service.Project, name, description string) (service.ListRef, error) {
	projectID, err := parseID("project", p.ID)
	if err != nil {
		return service.ListRef{}, err
	}
	todosetID, err := parseID("todoset", p.ListContainerID)
	if err != nil {
		return service.ListRef{}, fmt.Errorf("%w: %w", service.ErrMissingResource, err)
	}

	body := struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
	}{name, description}

	var created todolist
	endpoint := fmt.Sprintf("/buckets/%d/todosets/%d/todolists.json", projectID, todosetID)
	if err := c.postJSON(ctx, endpoint, body, &created); err != nil {
		return service.ListRef{}, err
	}
	return service.ListRef{ID: formatID(created.ID), Name: created.Name}, nil
}

// CreateGroup creates a group, which Basecamp models as a nested to-do list.
func (c *Client) CreateGroup(ctx context.Context, p service.Project, listID, name string) (service.GroupRef, error) {
	projectID, err := parseID("project", p.ID)
	if err != nil {
		return service.GroupRef{}, err
	}
	list, err := parseID("todolist", listID)
	if err != nil {
		return service.GroupRef{}, err
	}

	body := struct {
		Name string `json:"name"`
	}{name}

	var created todolist
	endpoint := fmt.Sprintf("/buckets/%d/todolists/%d/groups.json", projectID, list)
	if err := c.postJSON(ctx, endpoint, body, &created); err != nil {
		return service.GroupRef{}, err
	}
	return service.GroupRef{ID: formatID(created.ID), ListID: listID, Name: created.Name}, nil
}

// CreateItem creates a to-do. Grouped items are created in the group itself,
// since a group is a to-do list of its own.
func (c *Client) CreateItem(ctx context.Context, p service.Project, listID, groupID, content string) (service.ItemRef, error) {
	projectID, err := parseID("project", p.ID)
	if err != nil {
		return service.ItemRef{}, err
	}
	container := listID
	if groupID != "" {
		container = groupID
	}
	containerID, err := parseID("todolist", container)
	if err != nil {
		return service.ItemRef{}, err
	}

	body := struct {
		Content string `json:"content"`
	}{content}

	var created todo
	endpoint := fmt.Sprintf("/buckets/%d/todolists/%d/todos.json", projectID, containerID)
	if err := c.postJSON(ctx, endpoint, body, &created); err != nil {
		return service.ItemRef{}, err
	}
	return service.ItemRef{ID: formatID(created.ID), Content: created.Content}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.t.Send(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", endpoint, err)
	}
	resp, err := c.t.Send(ctx, endpoint, &RequestOptions{Method: http.MethodPost, Body: data})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s %q: %w", kind, s, service.ErrInvalidID)
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
