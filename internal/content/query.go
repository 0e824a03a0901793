package content

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Search returns items whose title, excerpt or category contains q,
// compared with Unicode case folding. Input order is kept.
func Search(items []Item, q string) []Item {
	fold := cases.Fold()
	needle := fold.String(q)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(fold.String(it.Title), needle) ||
			strings.Contains(fold.String(it.Excerpt), needle) ||
			strings.Contains(fold.String(it.Category), needle) {
			out = append(out, it)
		}
	}
	return out
}

// Categories returns the distinct categories, sorted.
func Categories(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	out := []string{}
	for _, it := range items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		out = append(out, it.Category)
	}
	sort.Strings(out)
	return out
}

// FilterByTags keeps items carrying at least one selected tag.
// An empty selection keeps everything.
func FilterByTags(items []Item, tags []string) []Item {
	if len(tags) == 0 {
		return items
	}
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		for _, t := range it.Tags {
			if _, ok := want[t]; ok {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// FilterByType keeps items of type t. An empty t keeps everything.
func FilterByType(items []Item, t string) []Item {
	if t == "" {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Type == t {
			out = append(out, it)
		}
	}
	return out
}
