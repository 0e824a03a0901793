package sitehandler

import (
	"io/fs"

	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/webassets"
	"github.com/keithlinneman/folio/internal/xerrors"
)

const indexFile = "index.html"

// CachePolicy holds Cache-Control values by file class.
type CachePolicy struct {
	HTML  string
	Asset string
	Other string
}

var DefaultCachePolicy = CachePolicy{
	HTML:  "no-cache",
	Asset: "public, max-age=31536000, immutable",
	Other: "public, max-age=3600",
}

type Options struct {
	Logger log.Logger
	Site   Source

	// Fallback holds the maintenance page and the default 404 page.
	// Defaults to the embedded webassets pages.
	Fallback fs.FS
	Cache    CachePolicy
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Fallback == nil {
		o.Fallback = webassets.FallbackFS()
	}
	if o.Cache.HTML == "" {
		o.Cache.HTML = DefaultCachePolicy.HTML
	}
	if o.Cache.Asset == "" {
		o.Cache.Asset = DefaultCachePolicy.Asset
	}
	if o.Cache.Other == "" {
		o.Cache.Other = DefaultCachePolicy.Other
	}
}

func (o *Options) validate() error {
	if o.Site == nil {
		return xerrors.New("sitehandler: Site is nil")
	}
	if !isFile(o.Fallback, webassets.MaintenanceFile) {
		return xerrors.Newf("sitehandler: fallback fs has no %s", webassets.MaintenanceFile)
	}
	return nil
}
