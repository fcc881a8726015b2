// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"bcload/internal/builder"
	"bcload/internal/outline"
	"bcload/internal/service"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"

	// MaxErrors is how many failure lines a summary prints.
	MaxErrors = 10
)

// FormatProject formats a project line: "{ID}  {NAME}\n".
func FormatProject(w io.Writer, p service.Project) {
	fmt.Fprintf(w, "%s  %s\n", p.ID, normalizeTitle(p.Name))
}

// FormatChat formats a chat room line: "{ID}  {TITLE}\n".
func FormatChat(w io.Writer, c service.Chat) {
	fmt.Fprintf(w, "%s  %s\n", c.ID, normalizeTitle(c.Title))
}

// FormatListHeader formats a list section header with its counts.
func FormatListHeader(w io.Writer, list outline.List) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintf(w, "%s (%s, %s)\n", normalizeTitle(list.Name),
		plural(len(list.Groups), "group"), plural(list.ItemCount(), "item"))
	fmt.Fprintln(w, ListSeparator)
}

// FormatOutline prints every list in creation order: groups with their
// items first, then direct items, followed by a totals line.
func FormatOutline(w io.Writer, o outline.Outline) {
	for _, list := range o {
		FormatListHeader(w, list)
		for _, g := range list.Groups {
			fmt.Fprintf(w, "  %s\n", normalizeTitle(g.Name))
			for _, it := range g.Items {
				fmt.Fprintf(w, "    - %s\n", normalizeTitle(it.Content))
			}
		}
		for _, it := range list.Items {
			fmt.Fprintf(w, "  - %s\n", normalizeTitle(it.Content))
		}
	}
	lists, groups, items := o.Totals()
	fmt.Fprintf(w, "%s, %s, %s\n", plural(lists, "list"), plural(groups, "group"), plural(items, "item"))
}

// FormatProgress prints a line when a list is about to be created.
// Other events are ignored.
func FormatProgress(w io.Writer, e builder.Event) {
	if e.Kind != builder.ListStarted {
		return
	}
	fmt.Fprintf(w, "creating list %d of %d: %q\n", e.Index, e.Total, e.List)
}

// FormatSummary prints the created counts and at most MaxErrors failures.
func FormatSummary(w io.Writer, s builder.Summary) {
	fmt.Fprintf(w, "created %d list(s) with %d group(s) and %d item(s)\n", s.Lists, s.Groups, s.Items)
	if len(s.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "%d error(s):\n", len(s.Errors))
	for i, msg := range s.Errors {
		if i == MaxErrors {
			fmt.Fprintf(w, "  ... and %d more\n", len(s.Errors)-MaxErrors)
			break
		}
		fmt.Fprintf(w, "  %s\n", msg)
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// normalizeTitle normalizes a name for display.
// - Empty or whitespace-only names become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
