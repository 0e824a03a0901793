// Package adminhttp serves the authenticated content management API
// under /api/admin.
package adminhttp

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/folio/internal/apiresp"
	"github.com/keithlinneman/folio/internal/auth"
	"github.com/keithlinneman/folio/internal/frontmatter"
	"github.com/keithlinneman/folio/internal/log"
	"github.com/keithlinneman/folio/internal/store"
	"github.com/keithlinneman/folio/internal/xerrors"
)

// Operation names reported to AdminMetrics.
const (
	OpMe      = "me"
	OpList    = "list"
	OpGet     = "get"
	OpCreate  = "create"
	OpUpdate  = "update"
	OpArchive = "archive"
	OpDelete  = "delete"
)

const (
	resultOK       = "ok"
	defaultMaxBody = 1 << 20
)

// AdminMetrics is implemented by the metrics package.
type AdminMetrics interface {
	IncAdminOp(op, result string)
}

type APIOptions struct {
	Store     store.Store
	Gate      *auth.Gate
	Responder apiresp.Responder
	Metrics   AdminMetrics

	// MaxBodyBytes caps write request bodies; defaults to 1 MiB.
	MaxBodyBytes int64
}

type API struct {
	store   store.Store
	gate    *auth.Gate
	resp    apiresp.Responder
	metrics AdminMetrics
	maxBody int64
}

func NewAPI(opts APIOptions) (*API, error) {
	if opts.Store == nil {
		return nil, xerrors.New("admin api: Store is required")
	}
	if opts.Gate == nil {
		return nil, xerrors.New("admin api: Gate is required")
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBody
	}
	return &API{
		store:   opts.Store,
		gate:    opts.Gate,
		resp:    opts.Responder,
		metrics: opts.Metrics,
		maxBody: opts.MaxBodyBytes,
	}, nil
}

// RegisterRoutes mounts /api/admin behind the auth gate.
func (api *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(api.gate.Authenticate)

		r.Get("/me", api.HandleMe)
		r.Get("/content", api.HandleList)
		r.Get("/content/{slug}", api.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(api.gate.RequireRole(auth.RoleAdmin, auth.RoleEditor))
			r.Post("/content", api.HandleCreate)
			r.Put("/content/{slug}", api.HandleUpdate)
			r.Delete("/content/{slug}", api.HandleDelete)
		})
	})
}

func (api *API) HandleMe(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFromContext(r.Context())
	api.ok(w, r, OpMe, http.StatusOK, u)
}

func (api *API) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		f  store.ListFilter
		ve frontmatter.ValidationError
	)
	if t := q.Get("type"); t != "" {
		if !frontmatter.ValidType(t) {
			ve.Add("type", frontmatter.ProblemInvalid)
		}
		f.Type = t
	}
	if p := q.Get("published"); p != "" {
		b, err := strconv.ParseBool(p)
		if err != nil {
			ve.Add("published", frontmatter.ProblemInvalid)
		}
		f.Published = &b
	}
	if !ve.Empty() {
		api.fail(w, r, OpList, &ve)
		return
	}

	recs, err := api.store.List(ctx, f)
	if err != nil {
		api.fail(w, r, OpList, err)
		return
	}
	api.ok(w, r, OpList, http.StatusOK, recs)
}

func (api *API) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := api.store.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		api.fail(w, r, OpGet, err)
		return
	}
	api.ok(w, r, OpGet, http.StatusOK, rec)
}

func (api *API) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, _ := auth.UserFromContext(ctx)

	body, err := api.decode(w, r)
	if err != nil {
		api.fail(w, r, OpCreate, err)
		return
	}
	rec, err := buildRecord(store.Record{CommentsEnabled: true}, body, "")
	if err != nil {
		api.fail(w, r, OpCreate, err)
		return
	}
	rec.AuthorID = u.ID

	created, err := api.store.Create(ctx, rec)
	if err != nil {
		api.fail(w, r, OpCreate, err)
		return
	}
	log.FromContext(ctx).Info(ctx, "admin content created", "slug", created.Slug, "type", created.Type)
	api.ok(w, r, OpCreate, http.StatusCreated, created)
}

func (api *API) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	body, err := api.decode(w, r)
	if err != nil {
		api.fail(w, r, OpUpdate, err)
		return
	}
	cur, err := api.store.Get(ctx, slug)
	if err != nil {
		api.fail(w, r, OpUpdate, err)
		return
	}
	rec, err := buildRecord(*cur, body, slug)
	if err != nil {
		api.fail(w, r, OpUpdate, err)
		return
	}

	updated, err := api.store.Update(ctx, rec)
	if err != nil {
		api.fail(w, r, OpUpdate, err)
		return
	}
	log.FromContext(ctx).Info(ctx, "admin content updated", "slug", slug)
	api.ok(w, r, OpUpdate, http.StatusOK, updated)
}

// HandleDelete archives by default; ?hard=true removes the record and
// needs the admin role.
func (api *API) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	hard := false
	if v := r.URL.Query().Get("hard"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			var ve frontmatter.ValidationError
			ve.Add("hard", frontmatter.ProblemInvalid)
			api.fail(w, r, OpDelete, &ve)
			return
		}
		hard = b
	}

	if !hard {
		rec, err := api.store.Archive(ctx, slug)
		if err != nil {
			api.fail(w, r, OpArchive, err)
			return
		}
		log.FromContext(ctx).Info(ctx, "admin content archived", "slug", slug)
		api.ok(w, r, OpArchive, http.StatusOK, rec)
		return
	}

	u, _ := auth.UserFromContext(ctx)
	if !auth.HasRole(u, auth.RoleAdmin) {
		api.fail(w, r, OpDelete, xerrors.E(xerrors.KindForbidden, "hard delete requires the admin role"))
		return
	}
	if err := api.store.Delete(ctx, slug); err != nil {
		api.fail(w, r, OpDelete, err)
		return
	}
	log.FromContext(ctx).Warn(ctx, "admin content deleted", "slug", slug)
	api.ok(w, r, OpDelete, http.StatusOK, map[string]string{"slug": slug})
}

func (api *API) ok(w http.ResponseWriter, r *http.Request, op string, status int, data any) {
	api.record(op, resultOK)
	api.resp.OK(r.Context(), w, status, data)
}

func (api *API) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isTooLarge(err) {
		api.record(op, "too_large")
		apiresp.JSON(r.Context(), w, http.StatusRequestEntityTooLarge, apiresp.Envelope{
			Error: "request body too large",
			Code:  apiresp.CodeValidation,
		})
		return
	}
	api.record(op, string(xerrors.KindOf(err)))
	api.resp.Error(r.Context(), w, err)
}

func (api *API) record(op, result string) {
	if api.metrics != nil {
		api.metrics.IncAdminOp(op, result)
	}
}
