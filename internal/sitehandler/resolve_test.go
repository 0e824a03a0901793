package sitehandler

import (
	"testing"
	"testing/fstest"
)

func resolveFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":            {Data: []byte("home")},
		"about.html":            {Data: []byte("about")},
		"blog/index.html":       {Data: []byte("blog")},
		"blog/hello/index.html": {Data: []byte("hello")},
		"_next/static/app.js":   {Data: []byte("js")},
		"projects/index.html":   {Data: []byte("projects")},
		"projects/folio.html":   {Data: []byte("folio")},
		"assets/logo.svg":       {Data: []byte("<svg/>")},
		"emptydir/.keep":        {Data: nil},
	}
}

func TestResolve(t *testing.T) {
	fsys := resolveFS()
	cases := []struct {
		path, file, redirect string
		ok                   bool
	}{
		{"/", "index.html", "", true},
		{"", "index.html", "", true},
		{"/about", "about.html", "", true},
		{"/blog/", "blog/index.html", "", true},
		{"/blog", "", "/blog/", true},
		{"/blog/hello", "", "/blog/hello/", true},
		{"/projects/folio", "projects/folio.html", "", true},
		{"/_next/static/app.js", "_next/static/app.js", "", true},
		{"/assets/logo.svg", "assets/logo.svg", "", true},
		{"/missing", "", "", false},
		{"/missing/", "", "", false},
		{"/emptydir/", "", "", false},
		{"/about.html/", "", "", false},
		{"/blog/../etc/passwd", "", "", false},
		{"/./index.html", "", "", false},
		{"//index.html", "", "", false},
		{"/a\\b", "", "", false},
		{"/a\x00b", "", "", false},
	}
	for _, tc := range cases {
		file, redirect, ok := resolve(tc.path, fsys)
		if file != tc.file || redirect != tc.redirect || ok != tc.ok {
			t.Errorf("resolve(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.path, file, redirect, ok, tc.file, tc.redirect, tc.ok)
		}
	}
}

func TestCacheControl(t *testing.T) {
	c := DefaultCachePolicy
	cases := map[string]string{
		"index.html":          c.HTML,
		"LICENSE":             c.HTML,
		"_next/static/app.js": c.Asset,
		"img/Photo.JPG":       c.Asset,
		"fonts/x.woff2":       c.Asset,
		"feed.xml":            c.Other,
		"robots.txt":          c.Other,
	}
	for name, want := range cases {
		if got := cacheControl(name, c); got != want {
			t.Errorf("cacheControl(%q) = %q, want %q", name, got, want)
		}
	}
}
