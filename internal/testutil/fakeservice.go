// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bcload/internal/service"
)

// Project is the project every FakeService starts with.
var Project = service.Project{ID: "10", Name: "Launch", ListContainerID: "502"}

// Call is one recorded create operation.
type Call struct {
	Op      string // "list", "group" or "item"
	ListID  string
	GroupID string
	Name    string
	ID      string
}

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu       sync.RWMutex
	projects []service.Project
	chats    map[string][]service.Chat
	calls    []Call
	nextID   int

	// Error injection for testing
	ListProjectsErr   error
	ResolveProjectErr error
	ListChatsErr      error
	CreateListErr     map[string]error // list name -> error
	CreateGroupErr    map[string]error // group name -> error
	CreateItemErr     map[string]error // item content -> error

	// BeforeCreate runs before every create call, outside the lock.
	BeforeCreate func(op, name string)
}

// NewFakeService creates a new FakeService with one project.
func NewFakeService() *FakeService {
	return &FakeService{
		projects:       []service.Project{Project},
		chats:          make(map[string][]service.Chat),
		CreateListErr:  make(map[string]error),
		CreateGroupErr: make(map[string]error),
		CreateItemErr:  make(map[string]error),
	}
}

// AddProject adds a project to the fake service.
func (f *FakeService) AddProject(p service.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, p)
}

// AddChat adds a chat room to a project.
func (f *FakeService) AddChat(projectID string, chat service.Chat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats[projectID] = append(f.chats[projectID], chat)
}

// Calls returns the recorded successful create calls in order.
func (f *FakeService) Calls() []Call {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Call(nil), f.calls...)
}

// ListProjects implements service.Service.
func (f *FakeService) ListProjects(ctx context.Context) ([]service.Project, error) {
	if f.ListProjectsErr != nil {
		return nil, f.ListProjectsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := append([]service.Project(nil), f.projects...)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ResolveProject implements service.Service.
func (f *FakeService) ResolveProject(ctx context.Context, projectID string) (service.Project, error) {
	if f.ResolveProjectErr != nil {
		return service.Project{}, f.ResolveProjectErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.projects {
		if p.ID == projectID {
			if p.ListContainerID == "" {
				return service.Project{}, fmt.Errorf("project %s: %w", projectID, service.ErrMissingResource)
			}
			return p, nil
		}
	}
	return service.Project{}, fmt.Errorf("project %s: %w", projectID, service.ErrNotFound)
}

// ListChats implements service.Service.
func (f *FakeService) ListChats(ctx context.Context, projectID string) ([]service.Chat, error) {
	if f.ListChatsErr != nil {
		return nil, f.ListChatsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := append([]service.Chat(nil), f.chats[projectID]...)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

// CreateList implements service.Service.
func (f *FakeService) CreateList(ctx context.Context, project service.Project, name, description string) (service.ListRef, error) {
	id, err := f.create(ctx, "list", "", "", name, f.CreateListErr)
	if err != nil {
		return service.ListRef{}, err
	}
	return service.ListRef{ID: id, Name: name}, nil
}

// CreateGroup implements service.Service.
func (f *FakeService) CreateGroup(ctx context.Context, project service.Project, listID, name string) (service.GroupRef, error) {
	id, err := f.create(ctx, "group", listID, "", name, f.CreateGroupErr)
	if err != nil {
		return service.GroupRef{}, err
	}
	return service.GroupRef{ID: id, ListID: listID, Name: name}, nil
}

// CreateItem implements service.Service.
func (f *FakeService) CreateItem(ctx context.Context, project service.Project, listID, groupID, content string) (service.ItemRef, error) {
	id, err := f.create(ctx, "item", listID, groupID, content, f.CreateItemErr)
	if err != nil {
		return service.ItemRef{}, err
	}
	return service.ItemRef{ID: id, Content: content}, nil
}

func (f *FakeService) create(ctx context.Context, op, listID, groupID, name string, errs map[string]error) (string, error) {
	if f.BeforeCreate != nil {
		f.BeforeCreate(op, name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := errs[name]; err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("%s-%d", op, f.nextID)
	f.calls = append(f.calls, Call{Op: op, ListID: listID, GroupID: groupID, Name: name, ID: id})
	return id, nil
}
