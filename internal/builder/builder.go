// Package builder realizes a parsed outline as remote lists, groups and items.
//
// All calls are sequential: a child needs its parent's id, and the backends
// serialize traffic anyway. A failure only skips the branch below it.
package builder

import (
	"context"
	"errors"
	"fmt"

	"bcload/internal/outline"
	"bcload/internal/service"
)

// EventKind identifies a progress event.
type EventKind int

const (
	// ListStarted fires before a list is created.
	ListStarted EventKind = iota
	// ListCreated fires after a list is created.
	ListCreated
	// GroupCreated fires after a group is created.
	GroupCreated
	// ItemCreated fires after an item is created.
	ItemCreated
	// Failed fires when a branch fails; Err is set.
	Failed
)

// Event reports progress to the caller.
type Event struct {
	Kind  EventKind
	Index int // 1-based list position
	Total int
	List  string
	Name  string
	Err   error
}

// Options configure a build.
type Options struct {
	// Progress receives events in order. Nil discards.
	Progress func(Event)

	// Logf receives debug lines. Nil discards.
	Logf func(format string, args ...any)
}

func (o Options) emit(e Event) {
	if o.Progress != nil {
		o.Progress(e)
	}
}

func (o Options) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// Summary is the result of a build.
type Summary struct {
	Lists  int      `json:"lists"`
	Groups int      `json:"groups"`
	Items  int      `json:"items"`
	Errors []string `json:"errors,omitempty"`
}

// Failed reports whether any branch failed.
func (s Summary) Failed() bool {
	return len(s.Errors) > 0
}

func (s *Summary) fail(opts Options, e Event, msg string) {
	s.Errors = append(s.Errors, msg)
	e.Kind = Failed
	opts.emit(e)
	opts.logf("%s", msg)
}

// Build resolves projectID and creates every list in o.
//
// A failure to resolve the project aborts the run. Branch failures are
// recorded in the Summary and the run continues. Cancellation stops the run
// and returns the partial Summary with the context error.
func Build(ctx context.Context, svc service.Service, projectID string, o outline.Outline, opts Options) (Summary, error) {
	var sum Summary
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	project, err := svc.ResolveProject(ctx, projectID)
	if err != nil {
		return sum, err
	}
	opts.logf("resolved project %s (%s), list container %s", project.ID, project.Name, project.ListContainerID)

	for i, list := range o {
		e := Event{Index: i + 1, Total: len(o), List: list.Name}
		if err := buildList(ctx, svc, project, list, &sum, e, opts); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

// BuildList creates one list in an already resolved project. The returned
// error is non-nil only when ctx is done.
func BuildList(ctx context.Context, svc service.Service, project service.Project, list outline.List, opts Options) (Summary, error) {
	var sum Summary
	err := buildList(ctx, svc, project, list, &sum, Event{Index: 1, Total: 1}, opts)
	return sum, err
}

// buildList creates groups first, each followed by its items, then the
// list's direct items.
func buildList(ctx context.Context, svc service.Service, project service.Project, list outline.List, sum *Summary, e Event, opts Options) error {
	e.List, e.Name = list.Name, list.Name
	e.Kind = ListStarted
	opts.emit(e)

	if err := ctx.Err(); err != nil {
		return err
	}
	ref, err := svc.CreateList(ctx, project, list.Name, list.Description)
	if err != nil {
		if stopped(ctx, err) {
			return ctx.Err()
		}
		e.Err = err
		sum.fail(opts, e, fmt.Sprintf("list %q: %v", list.Name, err))
		return nil
	}
	sum.Lists++
	e.Kind = ListCreated
	opts.emit(e)
	opts.logf("created list %q (%s)", list.Name, ref.ID)

	for _, g := range list.Groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		group, err := svc.CreateGroup(ctx, project, ref.ID, g.Name)
		if err != nil {
			if stopped(ctx, err) {
				return ctx.Err()
			}
			e.Name, e.Err = g.Name, err
			sum.fail(opts, e, fmt.Sprintf("group %q in list %q: %v", g.Name, list.Name, err))
			e.Err = nil
			continue
		}
		sum.Groups++
		e.Kind, e.Name = GroupCreated, g.Name
		opts.emit(e)
		opts.logf("created group %q (%s) in list %s", g.Name, group.ID, ref.ID)

		if err := createItems(ctx, svc, project, ref.ID, group.ID, g.Name, g.Items, sum, e, opts); err != nil {
			return err
		}
	}

	return createItems(ctx, svc, project, ref.ID, "", "", list.Items, sum, e, opts)
}

func createItems(ctx context.Context, svc service.Service, project service.Project, listID, groupID, groupName string, items []outline.Item, sum *Summary, e Event, opts Options) error {
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.Name = it.Content
		created, err := svc.CreateItem(ctx, project, listID, groupID, it.Content)
		if err != nil {
			if stopped(ctx, err) {
				return ctx.Err()
			}
			e.Err = err
			where := fmt.Sprintf("list %q", e.List)
			if groupID != "" {
				where = fmt.Sprintf("group %q in %s", groupName, where)
			}
			sum.fail(opts, e, fmt.Sprintf("item %q in %s: %v", it.Content, where, err))
			e.Err = nil
			continue
		}
		sum.Items++
		e.Kind = ItemCreated
		opts.emit(e)
		opts.logf("created item %q (%s)", it.Content, created.ID)
	}
	return nil
}

// stopped reports whether err came from ctx being done.
func stopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
