package adminhttp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/frontmatter"
	"github.com/keithlinneman/folio/internal/store"
	"github.com/keithlinneman/folio/internal/xerrors"
)

const problemUnknown = "unknown field"

// writable lists the JSON fields a client may send. Everything else,
// including server-assigned fields, is rejected.
var writable = map[string]bool{
	"slug": true, "title": true, "date": true, "tags": true, "type": true,
	"category": true, "description": true, "excerpt": true, "image": true,
	"content": true, "published": true, "comments_enabled": true,
}

// metadataFields are validated by the frontmatter schema.
var metadataFields = []string{"title", "date", "tags", "type", "category", "description", "excerpt", "image"}

func (api *API) decode(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, api.maxBody))

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		if isTooLarge(err) {
			return nil, err
		}
		return nil, xerrors.WrapKind(err, xerrors.KindValidation, "request body must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if isTooLarge(err) {
			return nil, err
		}
		return nil, xerrors.E(xerrors.KindValidation, "request body must contain a single JSON object")
	}
	if body == nil {
		return nil, xerrors.E(xerrors.KindValidation, "request body must be a JSON object")
	}

	var ve frontmatter.ValidationError
	for k := range body {
		if !writable[k] {
			ve.Add(k, problemUnknown)
		}
	}
	if !ve.Empty() {
		return nil, &ve
	}
	return body, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// buildRecord overlays body on base and validates the merged result.
// pathSlug is empty on create; on update the body slug, if any, must match.
func buildRecord(base store.Record, body map[string]any, pathSlug string) (store.Record, error) {
	var ve frontmatter.ValidationError

	meta := metadataOf(base)
	for _, k := range metadataFields {
		if v, ok := body[k]; ok {
			meta[k] = v
		}
	}
	fm, err := frontmatter.Validate(meta)
	if err != nil {
		var fve *frontmatter.ValidationError
		if !errors.As(err, &fve) {
			return store.Record{}, err
		}
		ve.Fields = append(ve.Fields, fve.Fields...)
	}

	rec := base
	switch raw, ok := body["slug"]; {
	case pathSlug == "" && !ok:
		ve.Add("slug", frontmatter.ProblemMissing)
	case ok:
		s, isStr := raw.(string)
		switch {
		case !isStr:
			ve.Add("slug", frontmatter.ProblemWrongType)
		case !content.ValidSlug(s), pathSlug != "" && s != pathSlug:
			ve.Add("slug", frontmatter.ProblemInvalid)
		default:
			rec.Slug = s
		}
	default:
		rec.Slug = pathSlug
	}

	if raw, ok := body["content"]; ok {
		if s, isStr := raw.(string); isStr {
			rec.Content = s
		} else {
			ve.Add("content", frontmatter.ProblemWrongType)
		}
	}
	boolField(body, "published", &rec.Published, &ve)
	boolField(body, "comments_enabled", &rec.CommentsEnabled, &ve)

	if !ve.Empty() {
		return store.Record{}, &ve
	}

	rec.Title = fm.Title
	rec.Date = fm.Date
	rec.Tags = fm.Tags
	rec.Type = fm.Type
	rec.Category = fm.Category
	rec.Image = fm.Image
	rec.Excerpt = fm.Excerpt
	if strings.TrimSpace(rec.Excerpt) == "" {
		rec.Excerpt = fm.Description
	}
	return rec, nil
}

// metadataOf renders the stored fields as frontmatter so a partial
// update can be validated as a whole.
func metadataOf(r store.Record) frontmatter.Metadata {
	m := frontmatter.Metadata{}
	if r.Slug == "" {
		return m
	}
	m["title"] = r.Title
	m["date"] = r.Date
	m["tags"] = append([]string{}, r.Tags...)
	m["type"] = r.Type
	m["category"] = r.Category
	m["excerpt"] = r.Excerpt
	if r.Image != nil {
		m["image"] = *r.Image
	}
	return m
}

func boolField(body map[string]any, key string, dst *bool, ve *frontmatter.ValidationError) {
	raw, ok := body[key]
	if !ok {
		return
	}
	b, isBool := raw.(bool)
	if !isBool {
		ve.Add(key, frontmatter.ProblemWrongType)
		return
	}
	*dst = b
}
