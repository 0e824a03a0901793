// Package siteapi serves the public, read-only JSON endpoints over the
// content directory and the video store.
package siteapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/folio/internal/apiresp"
	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/frontmatter"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/render"
	"github.com/keithlinneman/folio/internal/xerrors"
)

// ContentSource is satisfied by *content.Loader.
type ContentSource interface {
	LoadAll(ctx context.Context) ([]content.Item, error)
	LoadBySlug(ctx context.Context, slug string) (*content.Item, bool, error)
}

// VideoLocator is satisfied by *blob.S3Videos.
type VideoLocator interface {
	Lookup(ctx context.Context, name string) (url string, found bool, err error)
}

type APIOptions struct {
	Content ContentSource
	// Videos may be nil; /api/video then answers 500.
	Videos VideoLocator
}

type API struct {
	content ContentSource
	videos  VideoLocator
}

func NewAPI(opts APIOptions) (*API, error) {
	if opts.Content == nil {
		return nil, xerrors.New("site api: Content is required")
	}
	return &API{content: opts.Content, videos: opts.Videos}, nil
}

// collection describes one typed listing endpoint.
type collection struct {
	typ       string
	notFound  string
	fetchFail string
}

var (
	posts    = collection{typ: frontmatter.TypeBlog, notFound: "Post not found", fetchFail: "Failed to fetch posts"}
	projects = collection{typ: frontmatter.TypeProject, notFound: "Project not found", fetchFail: "Failed to fetch projects"}
)

func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/posts", api.typed(posts))
	r.Get("/api/projects", api.typed(projects))
	r.Get("/api/content", api.HandleContent)
	r.Get("/api/search", api.HandleSearch)
	r.Get("/api/categories", api.HandleCategories)
	r.Get("/api/video", api.HandleVideo)
}

// RenderedItem is an Item with its body rendered to HTML.
type RenderedItem struct {
	content.Item
	HTML string `json:"html"`
}

// typed serves one item when ?slug= is given, otherwise the full listing
// in loader order. ?format=html adds rendered bodies.
func (api *API) typed(c collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()
		asHTML := q.Get("format") == "html"

		if slug := q.Get("slug"); slug != "" {
			it, ok, err := api.content.LoadBySlug(ctx, slug)
			if err != nil {
				api.internal(ctx, w, err, c.fetchFail)
				return
			}
			if !ok || it.Type != c.typ {
				apiresp.Fail(ctx, w, http.StatusNotFound, c.notFound)
				return
			}
			if !asHTML {
				apiresp.JSON(ctx, w, http.StatusOK, it)
				return
			}
			out, err := renderItems([]content.Item{*it})
			if err != nil {
				api.internal(ctx, w, err, c.fetchFail)
				return
			}
			apiresp.JSON(ctx, w, http.StatusOK, out[0])
			return
		}

		items, err := api.content.LoadAll(ctx)
		if err != nil {
			api.internal(ctx, w, err, c.fetchFail)
			return
		}
		items = content.FilterByType(items, c.typ)
		if !asHTML {
			apiresp.JSON(ctx, w, http.StatusOK, items)
			return
		}
		out, err := renderItems(items)
		if err != nil {
			api.internal(ctx, w, err, c.fetchFail)
			return
		}
		apiresp.JSON(ctx, w, http.StatusOK, out)
	}
}

// HandleContent lists all items with optional type, tag (OR) and text filters.
func (api *API) HandleContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	t := q.Get("type")
	if t != "" && !frontmatter.ValidType(t) {
		apiresp.Fail(ctx, w, http.StatusBadRequest, "invalid type")
		return
	}
	items, err := api.content.LoadAll(ctx)
	if err != nil {
		api.internal(ctx, w, err, "Failed to fetch content")
		return
	}
	items = content.FilterByType(items, t)
	items = content.FilterByTags(items, splitList(q.Get("tags")))
	if s := strings.TrimSpace(q.Get("q")); s != "" {
		items = content.Search(items, s)
	}
	apiresp.JSON(ctx, w, http.StatusOK, items)
}

func (api *API) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := api.content.LoadAll(ctx)
	if err != nil {
		api.internal(ctx, w, err, "Failed to search content")
		return
	}
	apiresp.JSON(ctx, w, http.StatusOK, content.Search(items, strings.TrimSpace(r.URL.Query().Get("q"))))
}

func (api *API) HandleCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := api.content.LoadAll(ctx)
	if err != nil {
		api.internal(ctx, w, err, "Failed to fetch categories")
		return
	}
	apiresp.JSON(ctx, w, http.StatusOK, content.Categories(items))
}

type videoResponse struct {
	URL string `json:"url"`
}

// HandleVideo resolves ?fileName= to a playable URL. Failures report the
// underlying error message.
func (api *API) HandleVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := strings.TrimLeft(strings.TrimSpace(r.URL.Query().Get("fileName")), "/")
	if name == "" {
		apiresp.Fail(ctx, w, http.StatusBadRequest, "fileName parameter is required")
		return
	}
	if api.videos == nil {
		apiresp.Fail(ctx, w, http.StatusInternalServerError, "video storage is not configured")
		return
	}

	u, ok, err := api.videos.Lookup(ctx, name)
	if xerrors.Is(err, xerrors.KindValidation) {
		apiresp.Fail(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		log.FromContext(ctx).Error(ctx, err, "video lookup failed", "file_name", name)
		apiresp.Fail(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		apiresp.Fail(ctx, w, http.StatusNotFound, "Video not found")
		return
	}
	apiresp.JSON(ctx, w, http.StatusOK, videoResponse{URL: u})
}

func (api *API) internal(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	log.FromContext(ctx).Error(ctx, err, "public content request failed")
	apiresp.Fail(ctx, w, http.StatusInternalServerError, msg)
}

func renderItems(items []content.Item) ([]RenderedItem, error) {
	out := make([]RenderedItem, 0, len(items))
	for _, it := range items {
		html, err := render.Markdown(it.Content)
		if err != nil {
			return nil, xerrors.Wrapf(err, "render %s", it.Slug)
		}
		out = append(out, RenderedItem{Item: it, HTML: html})
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
