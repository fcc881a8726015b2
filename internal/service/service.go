// Package service defines the backend-agnostic interface for remote to-do operations.
package service

import "context"

// Service defines the remote operations the loader needs.
// Commands and the builder never import a backend SDK directly.
type Service interface {
	// ListProjects returns all projects sorted by name. A truncated listing
	// is returned together with ErrPageLimit.
	ListProjects(ctx context.Context) ([]Project, error)

	// ResolveProject fetches a project and locates its list container.
	// Returns ErrMissingResource if the project has no to-do set.
	ResolveProject(ctx context.Context, projectID string) (Project, error)

	// ListChats returns the project's chat rooms sorted by title.
	ListChats(ctx context.Context, projectID string) ([]Chat, error)

	// CreateList creates a to-do list in a resolved project.
	CreateList(ctx context.Context, project Project, name, description string) (ListRef, error)

	// CreateGroup creates a named group inside a list.
	CreateGroup(ctx context.Context, project Project, listID, name string) (GroupRef, error)

	// CreateItem creates a to-do. groupID is empty for items that belong
	// directly to the list.
	CreateItem(ctx context.Context, project Project, listID, groupID, content string) (ItemRef, error)
}
