package siteapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/xerrors"
)

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

var site = fstest.MapFS{
	"first-post.md": file("---\ntitle: First Coffee\ndate: 2026-01-10\ntags: [go, life]\n---\n# Hi\n"),
	"second.md":     file("---\ntitle: Second\ndate: 2026-02-01\ntags: [web]\ncategory: Coffee Notes\n---\nbody\n"),
	"tool.md":       file("---\ntitle: Tool\ndate: 2025-12-01\ntags: [go]\ntype: project\ndescription: a CLI\n---\ntool\n"),
	"broken.md":     file("---\ndate: 2026-01-01\n---\nno title\n"),
}

func newHandler(t *testing.T, src ContentSource, videos VideoLocator) http.Handler {
	t.Helper()
	if src == nil {
		l, err := content.NewLoader(content.LoaderOptions{FS: site})
		if err != nil {
			t.Fatal(err)
		}
		src = l
	}
	api, err := NewAPI(APIOptions{Content: src, Videos: videos})
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Error
}

func slugs(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var items []content.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v (%s)", err, rec.Body.String())
	}
	out := []string{}
	for _, it := range items {
		out = append(out, it.Slug)
	}
	return out
}

func TestPosts_ListInLoaderOrder(t *testing.T) {
	rec := get(t, newHandler(t, nil, nil), "/api/posts")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.Join(slugs(t, rec), ","); got != "second,first-post" {
		t.Fatalf("slugs = %s", got)
	}
}

func TestPosts_BySlug(t *testing.T) {
	h := newHandler(t, nil, nil)

	rec := get(t, h, "/api/posts?slug=first-post")
	var it content.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &it); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("status=%d err=%v", rec.Code, err)
	}
	if it.ID != "first-post" || it.Excerpt != content.NoExcerpt || it.Category != "Uncategorized" {
		t.Fatalf("item = %+v", it)
	}

	for _, slug := range []string{"test-post", "tool", "broken", "../etc"} {
		rec := get(t, h, "/api/posts?slug="+slug)
		if rec.Code != http.StatusNotFound || errorBody(t, rec) != "Post not found" {
			t.Errorf("%s: %d %s", slug, rec.Code, rec.Body.String())
		}
	}
}

func TestPosts_RenderedHTML(t *testing.T) {
	rec := get(t, newHandler(t, nil, nil), "/api/posts?slug=first-post&format=html")
	var it RenderedItem
	if err := json.Unmarshal(rec.Body.Bytes(), &it); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(it.HTML, `<h1 id="hi">Hi</h1>`) || it.Slug != "first-post" {
		t.Fatalf("rendered = %+v", it)
	}
}

func TestProjects(t *testing.T) {
	h := newHandler(t, nil, nil)
	if got := strings.Join(slugs(t, get(t, h, "/api/projects")), ","); got != "tool" {
		t.Fatalf("projects = %s", got)
	}
	rec := get(t, h, "/api/projects?slug=second")
	if rec.Code != http.StatusNotFound || errorBody(t, rec) != "Project not found" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

type failingSource struct{}

func (failingSource) LoadAll(context.Context) ([]content.Item, error) {
	return nil, errors.New("content dir gone")
}
func (failingSource) LoadBySlug(context.Context, string) (*content.Item, bool, error) {
	return nil, false, errors.New("disk error")
}

func TestPosts_Failure(t *testing.T) {
	h := newHandler(t, failingSource{}, nil)
	for _, target := range []string{"/api/posts", "/api/posts?slug=x"} {
		rec := get(t, h, target)
		if rec.Code != http.StatusInternalServerError || errorBody(t, rec) != "Failed to fetch posts" {
			t.Errorf("%s: %d %s", target, rec.Code, rec.Body.String())
		}
	}
}

func TestContent_Filters(t *testing.T) {
	h := newHandler(t, nil, nil)
	cases := map[string]string{
		"/api/content":                   "second,first-post,tool",
		"/api/content?type=project":      "tool",
		"/api/content?tags=web,life":     "second,first-post",
		"/api/content?tags=go&q=coffee":  "first-post",
		"/api/search?q=COFFEE":           "second,first-post",
		"/api/search?q=cli":              "tool",
		"/api/content?tags=none-of-them": "",
	}
	for target, want := range cases {
		if got := strings.Join(slugs(t, get(t, h, target)), ","); got != want {
			t.Errorf("%s = %q, want %q", target, got, want)
		}
	}
	if rec := get(t, h, "/api/content?type=podcast"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type: %d", rec.Code)
	}
}

func TestCategories(t *testing.T) {
	rec := get(t, newHandler(t, nil, nil), "/api/categories")
	var cats []string
	if err := json.Unmarshal(rec.Body.Bytes(), &cats); err != nil {
		t.Fatal(err)
	}
	if strings.Join(cats, "|") != "Coffee Notes|Uncategorized" {
		t.Fatalf("categories = %v", cats)
	}
}

type stubVideos struct {
	url string
	ok  bool
	err error
}

func (s stubVideos) Lookup(context.Context, string) (string, bool, error) { return s.url, s.ok, s.err }

func TestVideo(t *testing.T) {
	tests := []struct {
		name   string
		videos VideoLocator
		target string
		status int
		want   string
	}{
		{"missing param", stubVideos{}, "/api/video", http.StatusBadRequest, `{"error":"fileName parameter is required"}`},
		{"slash only", stubVideos{}, "/api/video?fileName=/", http.StatusBadRequest, `{"error":"fileName parameter is required"}`},
		{"blank", stubVideos{}, "/api/video?fileName=%20%20", http.StatusBadRequest, `{"error":"fileName parameter is required"}`},
		{"rejected name", stubVideos{err: xerrors.E(xerrors.KindValidation, "file name is required")}, "/api/video?fileName=x", http.StatusBadRequest, `{"error":"file name is required"}`},
		{"not found", stubVideos{}, "/api/video?fileName=x", http.StatusNotFound, `{"error":"Video not found"}`},
		{"found", stubVideos{url: "https://cdn/x.mp4", ok: true}, "/api/video?fileName=x", http.StatusOK, `{"url":"https://cdn/x.mp4"}`},
		{"lookup error", stubVideos{err: errors.New("AccessDenied: nope")}, "/api/video?fileName=x", http.StatusInternalServerError, `{"error":"AccessDenied: nope"}`},
		{"unconfigured", nil, "/api/video?fileName=x", http.StatusInternalServerError, `{"error":"video storage is not configured"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newHandler(t, nil, tt.videos), tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.want {
				t.Fatalf("body = %s, want %s", got, tt.want)
			}
		})
	}
}
