package content

import (
	"strings"

	"github.com/keithlinneman/folio/internal/frontmatter"
)

// NoExcerpt is shown when a file has neither excerpt nor description.
const NoExcerpt = "No excerpt available"

// Item is one validated content file. Items are built per read and never
// modified afterwards.
type Item struct {
	ID       string   `json:"id"`
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Excerpt  string   `json:"excerpt"`
	Date     string   `json:"date"`
	Category string   `json:"category"`
	Image    *string  `json:"image"`
	Type     string   `json:"type"`
	Tags     []string `json:"tags"`
	Content  string   `json:"content"`
}

func newItem(slug string, fm *frontmatter.Frontmatter, body []byte) Item {
	excerpt := fm.Excerpt
	if strings.TrimSpace(excerpt) == "" {
		excerpt = fm.Description
	}
	if strings.TrimSpace(excerpt) == "" {
		excerpt = NoExcerpt
	}
	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}
	return Item{
		ID:       slug,
		Slug:     slug,
		Title:    fm.Title,
		Excerpt:  excerpt,
		Date:     fm.Date,
		Category: fm.Category,
		Image:    fm.Image,
		Type:     fm.Type,
		Tags:     tags,
		Content:  string(body),
	}
}
