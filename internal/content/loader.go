package content

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/keithlinneman/folio/internal/frontmatter"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/xerrors"
)

// DefaultPatterns selects eligible files. Order is precedence: when
// foo.md and foo.mdx both exist, foo.md owns the slug and foo.mdx is
// ignored, even if foo.md fails validation.
var DefaultPatterns = []string{"*.md", "*.mdx"}

// ContentMetrics is implemented by the metrics package.
type ContentMetrics interface {
	ObserveContentLoad(loaded, skipped int, seconds float64)
}

type LoaderOptions struct {
	// FS is read when set; otherwise Dir is opened with os.DirFS.
	FS  fs.FS
	Dir string

	Patterns []string
	Logger   log.Logger
	Metrics  ContentMetrics
}

// Loader reads content from a flat directory. Safe for concurrent use.
type Loader struct {
	fsys     fs.FS
	patterns []string
	logger   log.Logger
	metrics  ContentMetrics
}

func NewLoader(opts LoaderOptions) (*Loader, error) {
	fsys := opts.FS
	if fsys == nil {
		if strings.TrimSpace(opts.Dir) == "" {
			return nil, xerrors.New("content loader: FS or Dir is required")
		}
		fsys = os.DirFS(opts.Dir)
	}
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, xerrors.Newf("content loader: invalid pattern %q", p)
		}
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Loader{
		fsys:     fsys,
		patterns: append([]string(nil), patterns...),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// LoadAll returns every valid item, newest first. Files that cannot be
// read or fail validation are logged and skipped; only a failure to list
// the directory is returned.
func (l *Loader) LoadAll(ctx context.Context) ([]Item, error) {
	start := time.Now()

	names, shadowed, err := l.eligible()
	if err != nil {
		return nil, err
	}
	for _, sh := range shadowed {
		l.logger.Warn(ctx, "ignoring content file with duplicate slug", "file", sh.Name, "reason", sh.Err.Error())
	}

	items := make([]Item, 0, len(names))
	skipped := len(shadowed)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it, err := l.loadFile(name)
		if err != nil {
			skipped++
			l.logger.Warn(ctx, "skipping content file", "file", name, "reason", err.Error())
			continue
		}
		items = append(items, it)
	}
	sortNewestFirst(items)

	if l.metrics != nil {
		l.metrics.ObserveContentLoad(len(items), skipped, time.Since(start).Seconds())
	}
	return items, nil
}

// LoadBySlug returns the item stored under slug. A missing or invalid
// file reports found=false with a nil error. Only the highest-precedence
// existing file is considered, matching LoadAll.
func (l *Loader) LoadBySlug(ctx context.Context, slug string) (*Item, bool, error) {
	if !ValidSlug(slug) {
		return nil, false, nil
	}
	for _, p := range l.patterns {
		name := slug + path.Ext(p)
		if ok, _ := doublestar.Match(p, name); !ok {
			continue
		}
		it, err := l.loadFile(name)
		switch {
		case err == nil:
			return &it, true, nil
		case errors.Is(err, fs.ErrNotExist):
			continue
		case xerrors.Is(err, xerrors.KindValidation):
			l.logger.Warn(ctx, "content file failed validation", "file", name, "reason", err.Error())
			return nil, false, nil
		default:
			return nil, false, xerrors.Wrapf(err, "load %s", name)
		}
	}
	return nil, false, nil
}

// LoadByType returns LoadAll filtered to type t.
func (l *Loader) LoadByType(ctx context.Context, t string) ([]Item, error) {
	items, err := l.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByType(items, t), nil
}

// Search runs Search over a fresh LoadAll.
func (l *Loader) Search(ctx context.Context, q string) ([]Item, error) {
	items, err := l.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return Search(items, q), nil
}

// Categories runs Categories over a fresh LoadAll.
func (l *Loader) Categories(ctx context.Context) ([]string, error) {
	items, err := l.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return Categories(items), nil
}

// FileReport is the outcome of loading one eligible file.
type FileReport struct {
	Name string
	Err  error
}

// Check loads every eligible file and reports each outcome, failures
// included, in file name order. Files shadowed by a higher-precedence
// file with the same slug are reported as failures.
func (l *Loader) Check(ctx context.Context) ([]FileReport, error) {
	names, shadowed, err := l.eligible()
	if err != nil {
		return nil, err
	}
	out := make([]FileReport, 0, len(names)+len(shadowed))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, err := l.loadFile(name)
		out = append(out, FileReport{Name: name, Err: err})
	}
	out = append(out, shadowed...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// eligible lists matching file names, one per slug, sorted. A file whose
// slug is already owned by an earlier pattern is returned in shadowed.
func (l *Loader) eligible() (names []string, shadowed []FileReport, err error) {
	if _, err := fs.Stat(l.fsys, "."); err != nil {
		return nil, nil, xerrors.Wrap(err, "open content directory")
	}
	owner := make(map[string]string)
	for _, p := range l.patterns {
		matches, err := doublestar.Glob(l.fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, nil, xerrors.Wrapf(err, "glob %s", p)
		}
		sort.Strings(matches)
		for _, m := range matches {
			slug := slugOf(m)
			prev, taken := owner[slug]
			switch {
			case !taken:
				owner[slug] = m
				names = append(names, m)
			case prev != m:
				shadowed = append(shadowed, FileReport{
					Name: m,
					Err:  xerrors.E(xerrors.KindDuplicate, "slug "+slug+" already provided by "+prev),
				})
			}
		}
	}
	sort.Strings(names)
	return names, shadowed, nil
}

func slugOf(name string) string {
	base := path.Base(name)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (l *Loader) loadFile(name string) (Item, error) {
	raw, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return Item{}, err
	}
	meta, body, err := frontmatter.Parse(bytes.NewReader(raw))
	if err != nil {
		return Item{}, err
	}
	fm, err := frontmatter.Validate(meta)
	if err != nil {
		return Item{}, err
	}
	return newItem(slugOf(name), fm, body), nil
}
