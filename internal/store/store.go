package store

import (
	"context"
	"slices"
	"time"

	"github.com/keithlinneman/folio/internal/xerrors"
)

var (
	ErrNotFound  = xerrors.E(xerrors.KindNotFound, "content not found")
	ErrDuplicate = xerrors.E(xerrors.KindDuplicate, "slug already exists")
)

// Record is the persisted form of a content item.
type Record struct {
	UUID            string     `json:"uuid"`
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	Excerpt         string     `json:"excerpt"`
	Date            string     `json:"date"`
	Category        string     `json:"category"`
	Image           *string    `json:"image"`
	Type            string     `json:"type"`
	Tags            []string   `json:"tags"`
	Content         string     `json:"content"`
	Published       bool       `json:"published"`
	CommentsEnabled bool       `json:"comments_enabled"`
	AuthorID        string     `json:"author_id"`
	ArchivedAt      *time.Time `json:"archived_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	r.Tags = slices.Clone(r.Tags)
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Image != nil {
		img := *r.Image
		r.Image = &img
	}
	if r.ArchivedAt != nil {
		at := *r.ArchivedAt
		r.ArchivedAt = &at
	}
	return r
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Type      string
	Published *bool
}

func (f ListFilter) match(r Record) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Published != nil && r.Published != *f.Published {
		return false
	}
	return true
}

// Store is implemented by Postgres and Memory. List orders by date
// descending, then slug.
type Store interface {
	List(ctx context.Context, f ListFilter) ([]Record, error)
	Get(ctx context.Context, slug string) (*Record, error)
	// Create assigns UUID and timestamps.
	Create(ctx context.Context, r Record) (*Record, error)
	// Update replaces the mutable fields of the record with r.Slug.
	Update(ctx context.Context, r Record) (*Record, error)
	// Archive unpublishes and stamps archived_at.
	Archive(ctx context.Context, slug string) (*Record, error)
	Delete(ctx context.Context, slug string) error
	Ping(ctx context.Context) error
}
