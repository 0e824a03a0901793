// Package sitehandler serves the pre-built static site with pretty URLs,
// per-extension caching and themed error pages.
package sitehandler

import (
	"io/fs"
	"net/http"

	"github.com/keithlinneman/folio/internal/webassets"
)

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	site, ok := h.opts.Site.Site()
	if !ok {
		h.opts.Logger.Debug(r.Context(), "no site build available, serving maintenance page", "url.path", r.URL.Path)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Retry-After", "60")
		serveWithStatus(w, r, http.StatusServiceUnavailable, h.opts.Fallback, webassets.MaintenanceFile)
		return
	}

	file, redirect, ok := resolve(r.URL.Path, site)
	switch {
	case redirect != "":
		if q := r.URL.RawQuery; q != "" {
			redirect += "?" + q
		}
		http.Redirect(w, r, redirect, http.StatusPermanentRedirect)
	case !ok:
		h.notFound(w, r, site)
	default:
		w.Header().Set("Cache-Control", cacheControl(file, h.opts.Cache))
		http.ServeFileFS(w, r, site, file)
	}
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, site fs.FS) {
	w.Header().Set("Cache-Control", "no-store")
	for _, fsys := range []fs.FS{site, h.opts.Fallback} {
		if isFile(fsys, webassets.NotFoundFile) {
			serveWithStatus(w, r, http.StatusNotFound, fsys, webassets.NotFoundFile)
			return
		}
	}
	http.Error(w, "404 page not found", http.StatusNotFound)
}

// statusWriter replaces the status of the first WriteHeader so error
// pages can go through http.ServeFileFS.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.written = true
		code = w.status
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func serveWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	// conditional headers would turn the error page into a 304, and
	// ServeFileFS redirects any path ending in /index.html
	r2 := r.Clone(r.Context())
	r2.URL.Path = "/" + name
	r2.Header.Del("If-Modified-Since")
	r2.Header.Del("If-None-Match")
	http.ServeFileFS(&statusWriter{ResponseWriter: w, status: status}, r2, fsys, name)
}
