package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/log"
)

func TestReportContentProblems(t *testing.T) {
	var buf bytes.Buffer
	L, err := log.New(log.Options{App: "test", Level: slog.LevelInfo, StacktraceLevel: slog.LevelError + 4, JSON: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	loader, err := content.NewLoader(content.LoaderOptions{FS: fstest.MapFS{
		"good.md":   {Data: []byte("---\ntitle: Good\ndate: 2024-01-01\ntags: [go]\n---\nok\n")},
		"broken.md": {Data: []byte("---\ntitle: Broken\n---\nno date\n")},
		"good.mdx":  {Data: []byte("---\ntitle: Shadowed\ndate: 2024-01-02\ntags: [go]\n---\nok\n")},
	}})
	if err != nil {
		t.Fatal(err)
	}

	if n := reportContentProblems(context.Background(), L, loader); n != 2 {
		t.Fatalf("problems = %d, want 2", n)
	}
	out := buf.String()
	for _, want := range []string{`"file":"broken.md"`, `"file":"good.mdx"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %s:\n%s", want, out)
		}
	}
	if strings.Contains(out, `"file":"good.md"`) {
		t.Errorf("valid file reported:\n%s", out)
	}
}
