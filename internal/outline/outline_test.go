package outline_test

import (
	"reflect"
	"strings"
	"testing"

	"bcload/internal/outline"
)

func items(contents ...string) []outline.Item {
	out := make([]outline.Item, 0, len(contents))
	for _, c := range contents {
		out = append(out, outline.Item{Content: c})
	}
	return out
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  outline.Outline
	}{
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "whitespace only",
			input: "  \n\t\n   ",
			want:  nil,
		},
		{
			name:  "single list",
			input: "# Design Phase\n- Create wireframes\n- Design mockups\n",
			want: outline.Outline{
				{Name: "Design Phase", Items: items("Create wireframes", "Design mockups")},
			},
		},
		{
			name:  "list with group",
			input: "# Phase\n## Sub\n- a\n- b\n",
			want: outline.Outline{
				{Name: "Phase", Groups: []outline.Group{{Name: "Sub", Items: items("a", "b")}}},
			},
		},
		{
			name:  "bullets without heading use default list",
			input: "- one\n* two\n- three",
			want: outline.Outline{
				{Name: "Tasks", Items: items("one", "two", "three")},
			},
		},
		{
			name:  "group without heading uses default list",
			input: "## Later\n- x",
			want: outline.Outline{
				{Name: "Tasks", Groups: []outline.Group{{Name: "Later", Items: items("x")}}},
			},
		},
		{
			name:  "empty list is dropped",
			input: "# Empty\n# Full\n- item",
			want: outline.Outline{
				{Name: "Full", Items: items("item")},
			},
		},
		{
			name:  "trailing empty list is dropped",
			input: "# Full\n- item\n# Empty\n\n",
			want: outline.Outline{
				{Name: "Full", Items: items("item")},
			},
		},
		{
			name:  "empty group keeps list",
			input: "# Only Group\n## Nothing here",
			want: outline.Outline{
				{Name: "Only Group", Groups: []outline.Group{{Name: "Nothing here"}}},
			},
		},
		{
			name:  "new list resets group",
			input: "# A\n## G\n- in group\n# B\n- direct",
			want: outline.Outline{
				{Name: "A", Groups: []outline.Group{{Name: "G", Items: items("in group")}}},
				{Name: "B", Items: items("direct")},
			},
		},
		{
			name:  "items before first group stay direct",
			input: "# A\n- direct\n## G\n- grouped",
			want: outline.Outline{
				{
					Name:   "A",
					Items:  items("direct"),
					Groups: []outline.Group{{Name: "G", Items: items("grouped")}},
				},
			},
		},
		{
			name:  "deeper headings and prose are ignored",
			input: "# A\nSome prose.\n### Deep\n1. numbered\n-nospace\n- kept",
			want: outline.Outline{
				{Name: "A", Items: items("kept")},
			},
		},
		{
			name:  "indentation and CRLF are trimmed",
			input: "   # A  \r\n    -   spaced item   \r\n\t* tabbed\r\n",
			want: outline.Outline{
				{Name: "A", Items: items("spaced item", "tabbed")},
			},
		},
		{
			name:  "bare markers are not items",
			input: "# A\n-\n*\n#\n##\n- real",
			want: outline.Outline{
				{Name: "A", Items: items("real")},
			},
		},
		{
			name:  "non-breaking and other unicode spaces after markers",
			input: "#\u00a0Launch\n##\u00a0Docs\n-\u00a0write\u00a0guide\n*\u2003review\n-\u00a0\n",
			want: outline.Outline{
				{Name: "Launch", Groups: []outline.Group{{Name: "Docs", Items: items("write\u00a0guide", "review")}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outline.Parse(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q)\n got: %+v\nwant: %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_PreservesOrder(t *testing.T) {
	input := `# H1
- a1
- a2
# H2
- b1
# H3
- c1
- c2
- c3`

	got := outline.Parse(input)
	var names []string
	for _, l := range got {
		names = append(names, l.Name)
	}
	if want := []string{"H1", "H2", "H3"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("list order = %v, want %v", names, want)
	}
	if want := items("c1", "c2", "c3"); !reflect.DeepEqual(got[2].Items, want) {
		t.Errorf("item order = %v, want %v", got[2].Items, want)
	}
}

func TestParse_EveryListHasContent(t *testing.T) {
	inputs := []string{
		"#\n##\n-\n",
		"# A\n# B\n# C",
		"## G\n# A\n# B\n## G2",
		strings.Repeat("# x\n", 50),
		"garbage\n\x00\n# ok\n* fine",
	}
	for _, in := range inputs {
		for _, l := range outline.Parse(in) {
			if l.ItemCount() == 0 && len(l.Groups) == 0 {
				t.Errorf("Parse(%q) produced empty list %q", in, l.Name)
			}
		}
	}
}

func TestMarkdown_RoundTrip(t *testing.T) {
	inputs := []string{
		"# Design Phase\n- Create wireframes\n- Design mockups",
		"# Project\n## Design\n- Wireframes\n- Mockups\n## Dev\n- Setup\n- Auth\n# Other\n- Loose task",
		"- default one\n## grouped\n- two",
		"# Mixed\n## Empty group\n## Full group\n- x\n",
		"# A\n- direct\n## G\n- grouped",
	}
	for _, in := range inputs {
		first := outline.Parse(in)
		second := outline.Parse(first.Markdown())
		if !reflect.DeepEqual(first, second) {
			t.Errorf("round trip changed outline for %q\nfirst:  %+v\nsecond: %+v", in, first, second)
		}
	}
}

func TestMarkdown_Format(t *testing.T) {
	o := outline.Outline{
		{Name: "A", Items: items("x"), Groups: []outline.Group{{Name: "G", Items: items("y")}}},
		{Name: "B", Items: items("z")},
	}
	want := "# A\n- x\n## G\n- y\n\n# B\n- z\n"
	if got := o.Markdown(); got != want {
		t.Errorf("Markdown() = %q, want %q", got, want)
	}
}

func TestTotals(t *testing.T) {
	o := outline.Parse("# A\n- 1\n## G\n- 2\n- 3\n## H\n# B\n- 4")
	lists, groups, n := o.Totals()
	if lists != 2 || groups != 2 || n != 4 {
		t.Errorf("Totals() = %d, %d, %d; want 2, 2, 4", lists, groups, n)
	}
}
