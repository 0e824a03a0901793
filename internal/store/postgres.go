package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/keithlinneman/folio/internal/xerrors"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = 5 * time.Minute
	pingTimeout     = 5 * time.Second

	pgUniqueViolation = "23505"
)

const recordColumns = `uuid, slug, title, excerpt, date, category, image, type, tags,
	content, published, comments_enabled, author_id, archived_at, created_at, updated_at`

// row mirrors content_records; tags scan through pq.StringArray.
type row struct {
	UUID            string         `db:"uuid"`
	Slug            string         `db:"slug"`
	Title           string         `db:"title"`
	Excerpt         string         `db:"excerpt"`
	Date            string         `db:"date"`
	Category        string         `db:"category"`
	Image           sql.NullString `db:"image"`
	Type            string         `db:"type"`
	Tags            pq.StringArray `db:"tags"`
	Content         string         `db:"content"`
	Published       bool           `db:"published"`
	CommentsEnabled bool           `db:"comments_enabled"`
	AuthorID        string         `db:"author_id"`
	ArchivedAt      sql.NullTime   `db:"archived_at"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r row) record() Record {
	rec := Record{
		UUID:            r.UUID,
		Slug:            r.Slug,
		Title:           r.Title,
		Excerpt:         r.Excerpt,
		Date:            r.Date,
		Category:        r.Category,
		Type:            r.Type,
		Tags:            []string(r.Tags),
		Content:         r.Content,
		Published:       r.Published,
		CommentsEnabled: r.CommentsEnabled,
		AuthorID:        r.AuthorID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Image.Valid {
		img := r.Image.String
		rec.Image = &img
	}
	if r.ArchivedAt.Valid {
		at := r.ArchivedAt.Time
		rec.ArchivedAt = &at
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec
}

// Open connects to databaseURL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, xerrors.Wrap(err, "open database")
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrap(err, "ping database")
	}
	return db, nil
}

// Postgres stores records in the content_records table.
type Postgres struct {
	db *sqlx.DB
}

var _ Store = (*Postgres)(nil)

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) List(ctx context.Context, f ListFilter) ([]Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, "type = $"+strconv.Itoa(len(args)))
	}
	if f.Published != nil {
		args = append(args, *f.Published)
		where = append(where, "published = $"+strconv.Itoa(len(args)))
	}

	q := `SELECT ` + recordColumns + ` FROM content_records`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY date DESC, slug ASC`

	var rows []row
	if err := p.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, xerrors.Wrap(err, "list content records")
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (p *Postgres) Get(ctx context.Context, slug string) (*Record, error) {
	var r row
	err := p.db.GetContext(ctx, &r, `SELECT `+recordColumns+` FROM content_records WHERE slug = $1`, slug)
	if err != nil {
		return nil, classify(err, "get content record")
	}
	rec := r.record()
	return &rec, nil
}

func (p *Postgres) Create(ctx context.Context, rec Record) (*Record, error) {
	q := `INSERT INTO content_records
		(uuid, slug, title, excerpt, date, category, image, type, tags, content,
		 published, comments_enabled, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + recordColumns

	var r row
	err := p.db.QueryRowxContext(ctx, q,
		uuid.NewString(), rec.Slug, rec.Title, rec.Excerpt, rec.Date, rec.Category,
		nullString(rec.Image), rec.Type, pq.Array(rec.Tags), rec.Content,
		rec.Published, rec.CommentsEnabled, rec.AuthorID,
	).StructScan(&r)
	if err != nil {
		return nil, classify(err, "create content record")
	}
	out := r.record()
	return &out, nil
}

func (p *Postgres) Update(ctx context.Context, rec Record) (*Record, error) {
	q := `UPDATE content_records
		SET title = $2, excerpt = $3, date = $4, category = $5, image = $6, type = $7,
			tags = $8, content = $9, published = $10, comments_enabled = $11, updated_at = NOW()
		WHERE slug = $1
		RETURNING ` + recordColumns

	var r row
	err := p.db.QueryRowxContext(ctx, q,
		rec.Slug, rec.Title, rec.Excerpt, rec.Date, rec.Category, nullString(rec.Image),
		rec.Type, pq.Array(rec.Tags), rec.Content, rec.Published, rec.CommentsEnabled,
	).StructScan(&r)
	if err != nil {
		return nil, classify(err, "update content record")
	}
	out := r.record()
	return &out, nil
}

func (p *Postgres) Archive(ctx context.Context, slug string) (*Record, error) {
	q := `UPDATE content_records
		SET published = FALSE, archived_at = NOW(), updated_at = NOW()
		WHERE slug = $1
		RETURNING ` + recordColumns

	var r row
	if err := p.db.QueryRowxContext(ctx, q, slug).StructScan(&r); err != nil {
		return nil, classify(err, "archive content record")
	}
	out := r.record()
	return &out, nil
}

func (p *Postgres) Delete(ctx context.Context, slug string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM content_records WHERE slug = $1`, slug)
	if err != nil {
		return xerrors.Wrap(err, "delete content record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return xerrors.Wrap(err, "delete content record")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// classify maps no-rows and unique violations onto the package errors.
func classify(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
		return ErrDuplicate
	}
	return xerrors.Wrap(err, msg)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
