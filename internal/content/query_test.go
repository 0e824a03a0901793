package content

import "testing"

func items() []Item {
	return []Item{
		{Slug: "a", Title: "Brewing Coffee", Excerpt: "beans", Category: "Life", Tags: []string{"food"}},
		{Slug: "b", Title: "Go", Excerpt: "about CoFfEe breaks", Category: "Code", Tags: []string{"go", "web"}},
		{Slug: "c", Title: "Notes", Excerpt: "nothing", Category: "coffee shops", Tags: []string{}},
		{Slug: "d", Title: "Tags only", Excerpt: "x", Category: "Life", Tags: []string{"coffee"}, Content: "coffee"},
	}
}

func slugs(in []Item) []string {
	out := make([]string, len(in))
	for i, it := range in {
		out[i] = it.Slug
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearch(t *testing.T) {
	tests := []struct {
		q    string
		want []string
	}{
		{"coffee", []string{"a", "b", "c"}},
		{"COFFEE", []string{"a", "b", "c"}},
		{"life", []string{"a", "d"}},
		{"zzz", []string{}},
		{"", []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		if got := slugs(Search(items(), tt.q)); !equal(got, tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestSearch_UnicodeFolding(t *testing.T) {
	in := []Item{{Slug: "s", Title: "STRASSE"}, {Slug: "k", Title: "\u212Aelvin"}}
	if got := slugs(Search(in, "k")); !equal(got, []string{"k"}) {
		t.Fatalf("folded search = %v", got)
	}
}

func TestCategories_SortedDistinct(t *testing.T) {
	got := Categories(items())
	if !equal(got, []string{"Code", "Life", "coffee shops"}) {
		t.Fatalf("Categories = %v", got)
	}
	if got := Categories(nil); got == nil || len(got) != 0 {
		t.Fatalf("empty input should give empty non-nil slice, got %#v", got)
	}
}

func TestFilterByTags_OR(t *testing.T) {
	if got := slugs(FilterByTags(items(), []string{"web", "food"})); !equal(got, []string{"a", "b"}) {
		t.Fatalf("OR filter = %v", got)
	}
	if got := FilterByTags(items(), nil); len(got) != 4 {
		t.Fatalf("empty selection should return all, got %d", len(got))
	}
	if got := FilterByTags(items(), []string{"missing"}); len(got) != 0 {
		t.Fatalf("unmatched filter = %v", slugs(got))
	}
}

func TestFilterByType(t *testing.T) {
	in := []Item{{Slug: "a", Type: "blog"}, {Slug: "b", Type: "project"}}
	if got := slugs(FilterByType(in, "project")); !equal(got, []string{"b"}) {
		t.Fatalf("got %v", got)
	}
	if got := FilterByType(in, ""); len(got) != 2 {
		t.Fatalf("empty type should return all")
	}
}
