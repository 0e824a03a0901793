// Package webassets embeds the pages served when the site directory is
// unavailable or has no page of its own for an error.
package webassets

import (
	"embed"
	"io/fs"
)

const (
	MaintenanceFile = "maintenance.html"
	NotFoundFile    = "404.html"
)

//go:embed fallback/*.html
var embedded embed.FS

// FallbackFS is rooted at the fallback directory.
func FallbackFS() fs.FS {
	sub, err := fs.Sub(embedded, "fallback")
	if err != nil {
		// only reachable if the embed pattern above changes
		panic("webassets: " + err.Error())
	}
	return sub
}
