package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/frontmatter"
	"github.com/keithlinneman/folio/internal/store"
	"github.com/keithlinneman/folio/internal/xerrors"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		outDir      string
		typ         string
		unpublished bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write admin store records as Markdown content files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if typ != "" && !frontmatter.ValidType(typ) {
				return xerrors.Newf("unknown type %q", typ)
			}
			if outDir == "" {
				outDir = a.conf.ContentDir
			}
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			filter := store.ListFilter{Type: typ}
			if !unpublished {
				published := true
				filter.Published = &published
			}
			records, err := st.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return xerrors.Wrapf(err, "create %s", outDir)
			}
			for _, rec := range records {
				path, err := writeRecord(outDir, rec)
				if err != nil {
					return err
				}
				a.logger.Info(cmd.Context(), "exported", "slug", rec.Slug, "path", path)
			}
			printf(cmd.OutOrStdout(), "exported %d records to %s\n", len(records), outDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to --content-dir)")
	cmd.Flags().StringVar(&typ, "type", "", "only export blog or project records")
	cmd.Flags().BoolVar(&unpublished, "include-unpublished", false, "export drafts and archived records too")
	return cmd
}

func writeRecord(dir string, rec store.Record) (string, error) {
	if !content.ValidSlug(rec.Slug) {
		return "", xerrors.Newf("record %s has an unusable slug %q", rec.UUID, rec.Slug)
	}
	data, err := frontmatter.Encode(frontmatter.Frontmatter{
		Title:    rec.Title,
		Date:     rec.Date,
		Tags:     rec.Tags,
		Type:     rec.Type,
		Category: rec.Category,
		Excerpt:  rec.Excerpt,
		Image:    rec.Image,
	}, []byte(rec.Content))
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, rec.Slug+".md")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", xerrors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
