package sitehandler

import (
	"io/fs"
	"os"
)

// Source yields the current site build, or false when none is usable.
type Source interface {
	Site() (fs.FS, bool)
}

// Dir is a site build on disk. It is re-checked per request so a
// deploy that lands after startup is picked up without a restart.
type Dir string

func (d Dir) Site() (fs.FS, bool) {
	if d == "" {
		return nil, false
	}
	return usable(os.DirFS(string(d)))
}

// Static wraps an in-memory or embedded build.
type Static struct{ FS fs.FS }

func (s Static) Site() (fs.FS, bool) {
	if s.FS == nil {
		return nil, false
	}
	return usable(s.FS)
}

func usable(fsys fs.FS) (fs.FS, bool) {
	if !isFile(fsys, indexFile) {
		return nil, false
	}
	return fsys, true
}
