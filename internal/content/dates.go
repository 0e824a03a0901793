package content

import (
	"sort"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// parseDate accepts the ISO-ish forms authors actually write.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortNewestFirst orders by date descending, then slug ascending.
// Items whose date does not parse go last.
func sortNewestFirst(items []Item) {
	type keyed struct {
		item Item
		t    time.Time
		ok   bool
	}
	ks := make([]keyed, len(items))
	for i, it := range items {
		t, ok := parseDate(it.Date)
		ks[i] = keyed{it, t, ok}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		a, b := ks[i], ks[j]
		switch {
		case a.ok != b.ok:
			return a.ok
		case a.ok && !a.t.Equal(b.t):
			return a.t.After(b.t)
		}
		return a.item.Slug < b.item.Slug
	})
	for i := range ks {
		items[i] = ks[i].item
	}
}
