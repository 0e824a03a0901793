package main

import (
	"github.com/spf13/cobra"

	"github.com/keithlinneman/folio/internal/content"
	"github.com/keithlinneman/folio/internal/xerrors"
)

func (a *app) contentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Inspect the content directory",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [dir]",
		Short: "Check every content file against the frontmatter schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.conf.ContentDir
			if len(args) == 1 {
				dir = args[0]
			}
			loader, err := content.NewLoader(content.LoaderOptions{Dir: dir, Logger: a.logger})
			if err != nil {
				return err
			}
			reports, err := loader.Check(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			bad := 0
			for _, r := range reports {
				if r.Err != nil {
					bad++
					printf(out, "FAIL %s: %v\n", r.Name, r.Err)
					continue
				}
				printf(out, "ok   %s\n", r.Name)
			}
			if bad > 0 {
				return xerrors.Newf("%d of %d content files are invalid", bad, len(reports))
			}
			printf(out, "%d content files valid\n", len(reports))
			return nil
		},
	})
	return cmd
}
