// Package outline turns pasted markdown into a list/group/item hierarchy.
//
// Three line forms are recognized:
//
//	# Name      starts a new list
//	## Name     starts a new group in the current list
//	- text      adds an item (also "* text")
//
// Everything else is ignored. Deeper headings ("### x") are plain text.
package outline

import (
	"regexp"
	"strings"
)

// DefaultListName is the list synthesized when content appears before any heading.
const DefaultListName = "Tasks"

// Markers may be followed by any Unicode space separator, so text pasted
// from web editors with non-breaking spaces still parses.
var (
	listHeader  = regexp.MustCompile(`^#[\s\p{Zs}]+(.+)$`)
	groupHeader = regexp.MustCompile(`^##[\s\p{Zs}]+(.+)$`)
	bullet      = regexp.MustCompile(`^[-*][\s\p{Zs}]+(.+)$`)
)

// Item is a single to-do.
type Item struct {
	Content string `json:"content"`
}

// Group is a named set of items inside a list.
type Group struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// List is a top-level to-do list. Groups and direct items are siblings.
type List struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Groups      []Group `json:"groups"`
	Items       []Item  `json:"items"`
}

// Outline is the ordered parse result.
type Outline []List

// ItemCount returns direct items plus items in groups.
func (l List) ItemCount() int {
	n := len(l.Items)
	for _, g := range l.Groups {
		n += len(g.Items)
	}
	return n
}

// empty reports whether the list would be dropped from the outline.
func (l List) empty() bool {
	return len(l.Items) == 0 && len(l.Groups) == 0
}

// Totals returns the number of lists, groups and items in the outline.
func (o Outline) Totals() (lists, groups, items int) {
	for _, l := range o {
		groups += len(l.Groups)
		items += l.ItemCount()
	}
	return len(o), groups, items
}

// Parse converts text into an Outline. It never fails; unrecognized lines are
// skipped and lists with neither items nor groups are dropped.
func Parse(text string) Outline {
	var (
		out   Outline
		cur   *List
		group = -1 // index into cur.Groups, -1 when no group is active
	)

	flush := func() {
		if cur != nil && !cur.empty() {
			out = append(out, *cur)
		}
	}
	ensureList := func() {
		if cur == nil {
			cur = &List{Name: DefaultListName}
			group = -1
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := listHeader.FindStringSubmatch(line); m != nil {
			flush()
			cur = &List{Name: strings.TrimSpace(m[1])}
			group = -1
			continue
		}

		if m := groupHeader.FindStringSubmatch(line); m != nil {
			ensureList()
			cur.Groups = append(cur.Groups, Group{Name: strings.TrimSpace(m[1])})
			group = len(cur.Groups) - 1
			continue
		}

		if m := bullet.FindStringSubmatch(line); m != nil {
			ensureList()
			item := Item{Content: strings.TrimSpace(m[1])}
			if group >= 0 {
				cur.Groups[group].Items = append(cur.Groups[group].Items, item)
			} else {
				cur.Items = append(cur.Items, item)
			}
		}
	}
	flush()

	return out
}

// Markdown re-serializes the outline in the form Parse accepts. Direct items
// are written before groups so they are not captured by the last group.
func (o Outline) Markdown() string {
	var b strings.Builder
	for i, l := range o {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("# " + l.Name + "\n")
		for _, it := range l.Items {
			b.WriteString("- " + it.Content + "\n")
		}
		for _, g := range l.Groups {
			b.WriteString("## " + g.Name + "\n")
			for _, it := range g.Items {
				b.WriteString("- " + it.Content + "\n")
			}
		}
	}
	return b.String()
}
