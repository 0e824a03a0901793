package sitehandler

import (
	"io/fs"
	"path"
	"strings"
)

// resolve maps a URL path onto a file in fsys. A non-empty redirect
// means the caller should send the client to the canonical URL.
//
//	/            index.html
//	/blog/       blog/index.html
//	/about       about.html, else 308 to /about/ when about/index.html exists
//	/site.css    site.css
func resolve(urlPath string, fsys fs.FS) (file, redirect string, ok bool) {
	p := urlPath
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if unsafePath(p) {
		return "", "", false
	}

	dir := strings.HasSuffix(p, "/")
	clean := path.Clean(p)
	name := strings.TrimPrefix(clean, "/")

	switch {
	case clean == "/":
		return found(fsys, indexFile)
	case dir:
		return found(fsys, name+"/"+indexFile)
	case path.Ext(clean) != "":
		return found(fsys, name)
	}

	if isFile(fsys, name+".html") {
		return name + ".html", "", true
	}
	if isFile(fsys, name+"/"+indexFile) {
		return "", clean + "/", true
	}
	return "", "", false
}

func found(fsys fs.FS, name string) (string, string, bool) {
	if isFile(fsys, name) {
		return name, "", true
	}
	return "", "", false
}

// unsafePath rejects NUL bytes, backslashes, doubled slashes and any "."
// or ".." segment instead of cleaning them away.
func unsafePath(p string) bool {
	if strings.ContainsAny(p, "\x00\\") || strings.Contains(p, "//") {
		return true
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

func isFile(fsys fs.FS, name string) bool {
	if fsys == nil || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}

var assetExt = map[string]bool{
	".css": true, ".js": true, ".mjs": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".avif": true,
	".gif": true, ".svg": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

func cacheControl(name string, c CachePolicy) string {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case ext == ".html" || ext == "":
		return c.HTML
	case assetExt[ext]:
		return c.Asset
	default:
		return c.Other
	}
}
