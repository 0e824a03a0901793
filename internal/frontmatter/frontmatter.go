// Package frontmatter parses and schema-checks the metadata block at the
// top of a content file.
//
// Parsed metadata is an untyped map; nothing downstream trusts it until
// Validate has turned it into a Frontmatter.
package frontmatter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	adrg "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/folio/internal/xerrors"
)

const (
	TypeBlog    = "blog"
	TypeProject = "project"

	DefaultCategory = "Uncategorized"

	// DateLayout is used when a date arrives as a timestamp rather than text.
	DateLayout = "2006-01-02"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Metadata is frontmatter as decoded, before validation.
type Metadata map[string]any

type Frontmatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Tags        []string `yaml:"tags"`
	Type        string   `yaml:"type,omitempty"`
	Category    string   `yaml:"category,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Excerpt     string   `yaml:"excerpt,omitempty"`
	Image       *string  `yaml:"image,omitempty"`
}

// ValidType reports whether t is a known content type.
func ValidType(t string) bool { return t == TypeBlog || t == TypeProject }

// Parse splits r into its metadata block and the remaining body. YAML
// (---), TOML (+++) and JSON ({ }) blocks are recognised. Input without a
// block yields empty metadata and the whole input as body. A leading
// UTF-8 byte order mark is dropped.
func Parse(r io.Reader) (Metadata, []byte, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	var m map[string]any
	body, err := adrg.Parse(br, &m)
	if err != nil {
		return nil, nil, xerrors.WrapKind(err, xerrors.KindValidation, "parse frontmatter")
	}
	if m == nil {
		m = map[string]any{}
	}
	return Metadata(m), body, nil
}

// Validate checks m against the content schema. Every violation is
// reported in a single *ValidationError; there is no partial result.
func Validate(m Metadata) (*Frontmatter, error) {
	var v ValidationError
	fm := &Frontmatter{Type: TypeBlog, Category: DefaultCategory}

	fm.Title = requiredString(m, "title", &v)
	fm.Date = requiredDate(m, "date", &v)
	fm.Tags = requiredStrings(m, "tags", &v)

	if s, ok := optionalString(m, "type", &v); ok && s != "" {
		if ValidType(s) {
			fm.Type = s
		} else {
			v.Add("type", ProblemInvalid)
		}
	}
	if s, ok := optionalString(m, "category", &v); ok && strings.TrimSpace(s) != "" {
		fm.Category = s
	}
	fm.Description, _ = optionalString(m, "description", &v)
	fm.Excerpt, _ = optionalString(m, "excerpt", &v)

	if raw, present := m["image"]; present && raw != nil {
		if s, ok := raw.(string); ok {
			fm.Image = &s
		} else {
			v.Add("image", ProblemWrongType)
		}
	}

	if len(v.Fields) > 0 {
		v.sort()
		return nil, &v
	}
	return fm, nil
}

// Encode renders fm as a YAML block followed by body.
func Encode(fm Frontmatter, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, xerrors.Wrap(err, "encode frontmatter")
	}
	if err := enc.Close(); err != nil {
		return nil, xerrors.Wrap(err, "encode frontmatter")
	}
	buf.WriteString("---\n")
	if len(body) > 0 && body[0] != '\n' {
		buf.WriteByte('\n')
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

func requiredString(m Metadata, key string, v *ValidationError) string {
	raw, ok := m[key]
	if !ok || raw == nil {
		v.Add(key, ProblemMissing)
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.Add(key, ProblemWrongType)
		return ""
	}
	if strings.TrimSpace(s) == "" {
		v.Add(key, ProblemMissing)
	}
	return s
}

func requiredDate(m Metadata, key string, v *ValidationError) string {
	raw, ok := m[key]
	if !ok || raw == nil {
		v.Add(key, ProblemMissing)
		return ""
	}
	switch d := raw.(type) {
	case string:
		if strings.TrimSpace(d) == "" {
			v.Add(key, ProblemMissing)
		}
		return d
	case time.Time:
		return d.UTC().Format(DateLayout)
	default:
		v.Add(key, ProblemWrongType)
		return ""
	}
}

func requiredStrings(m Metadata, key string, v *ValidationError) []string {
	raw, ok := m[key]
	if !ok || raw == nil {
		v.Add(key, ProblemMissing)
		return nil
	}
	switch list := raw.(type) {
	case []string:
		return append([]string{}, list...)
	case []any:
		out := make([]string, 0, len(list))
		for i, e := range list {
			s, ok := e.(string)
			if !ok {
				v.Add(fmt.Sprintf("%s[%d]", key, i), ProblemWrongType)
				continue
			}
			out = append(out, s)
		}
		return out
	default:
		v.Add(key, ProblemWrongType)
		return nil
	}
}

// optionalString returns (value, present). Absent and null are both "not present".
func optionalString(m Metadata, key string, v *ValidationError) (string, bool) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		v.Add(key, ProblemWrongType)
		return "", false
	}
	return s, true
}

func (v *ValidationError) sort() {
	sort.SliceStable(v.Fields, func(i, j int) bool { return v.Fields[i].Field < v.Fields[j].Field })
}
