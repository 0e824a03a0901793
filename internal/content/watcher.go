// Watcher follows the content directory with fsnotify and keeps a digest
// of the eligible files. The digest is only a revision marker for
// responses and metrics; content itself is still read per request.
package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/keithlinneman/folio/internal/cryptoutil"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/xerrors"
)

const (
	// DefaultDebounce coalesces the burst of events an editor save produces.
	DefaultDebounce = 250 * time.Millisecond

	// DefaultResync recomputes the digest even without events, covering
	// network filesystems that do not deliver inotify events.
	DefaultResync = 5 * time.Minute
)

// RevisionMetrics is implemented by the metrics package.
type RevisionMetrics interface {
	IncContentRevisionChange()
}

type WatcherOptions struct {
	Dir      string
	Patterns []string
	Logger   log.Logger
	Metrics  RevisionMetrics
	Debounce time.Duration
	Resync   time.Duration

	// OnChange runs on the watcher goroutine after the revision moves.
	OnChange func(revision string)
}

type Watcher struct {
	dir      string
	fsys     fs.FS
	patterns []string
	logger   log.Logger
	metrics  RevisionMetrics
	debounce time.Duration
	resync   time.Duration
	onChange func(string)

	revision atomic.Pointer[string]
	changes  atomic.Int64
}

// NewWatcher computes the initial revision. Call Run to follow changes.
func NewWatcher(opts WatcherOptions) (*Watcher, error) {
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, xerrors.New("content watcher: Dir is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = DefaultPatterns
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Resync <= 0 {
		opts.Resync = DefaultResync
	}
	w := &Watcher{
		dir:      opts.Dir,
		fsys:     os.DirFS(opts.Dir),
		patterns: opts.Patterns,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		debounce: opts.Debounce,
		resync:   opts.Resync,
		onChange: opts.OnChange,
	}
	rev, err := Revision(w.fsys, w.patterns)
	if err != nil {
		return nil, err
	}
	w.revision.Store(&rev)
	return w, nil
}

// ContentRevision returns the current digest. Implements httpmw.RevisionSource.
func (w *Watcher) ContentRevision() string {
	if p := w.revision.Load(); p != nil {
		return *p
	}
	return ""
}

// Run blocks until ctx is cancelled.
// Intended to be launched as: go watcher.Run(ctx)
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return xerrors.Wrap(err, "create fsnotify watcher")
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return xerrors.Wrapf(err, "watch %s", w.dir)
	}

	w.logger.Info(ctx, "content watcher starting",
		"dir", w.dir,
		"revision", shortRev(w.ContentRevision()),
	)

	resync := time.NewTicker(w.resync)
	defer resync.Stop()

	// debounce timer is created stopped
	settle := time.NewTimer(w.debounce)
	if !settle.Stop() {
		<-settle.C
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "content watcher stopping",
				"reason", ctx.Err(),
				"changes", w.changes.Load(),
			)
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				settle.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(ctx, err, "content watcher: fsnotify error")
		case <-settle.C:
			w.refresh(ctx)
		case <-resync.C:
			w.refresh(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := path.Base(strings.ReplaceAll(ev.Name, string(os.PathSeparator), "/"))
	return matchesAny(w.patterns, name)
}

// refresh recomputes the digest and reports whether it moved.
func (w *Watcher) refresh(ctx context.Context) bool {
	rev, err := Revision(w.fsys, w.patterns)
	if err != nil {
		w.logger.Error(ctx, err, "content watcher: revision failed, keeping previous")
		return false
	}
	old := w.ContentRevision()
	if cryptoutil.HashEqual(old, rev) {
		return false
	}
	w.revision.Store(&rev)
	w.changes.Add(1)
	w.logger.Info(ctx, "content revision changed",
		"old_revision", shortRev(old),
		"new_revision", shortRev(rev),
	)
	if w.metrics != nil {
		w.metrics.IncContentRevisionChange()
	}
	if w.onChange != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error(ctx, fmt.Errorf("OnChange panic: %v", r),
						"content watcher: OnChange callback panicked, continuing")
				}
			}()
			w.onChange(rev)
		}()
	}
	return true
}

// Revision digests name, size and mtime of every eligible file in fsys.
func Revision(fsys fs.FS, patterns []string) (string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", xerrors.Wrap(err, "read content directory")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var b strings.Builder
	for _, e := range entries {
		if e.IsDir() || !matchesAny(patterns, e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		fmt.Fprintf(&b, "%s\x00%d\x00%d\n", e.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return cryptoutil.SHA256Hex([]byte(b.String())), nil
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// shortRev returns the first 12 characters of a revision for logging.
func shortRev(r string) string {
	if len(r) > 12 {
		return r[:12]
	}
	return r
}
