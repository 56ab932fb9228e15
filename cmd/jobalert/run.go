package main

import (
	"github.com/spf13/cobra"

	"jobalert/internal/app"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one fetch, store and notify cycle",
		Long:  "Fetches postings for every configured query, stores the new ones and sends them to Telegram. With --dry-run the messages are logged instead of sent; postings are still stored.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.bootstrap()
			if err != nil {
				return err
			}
			defer e.Close()

			var opts []app.Option
			if dryRun {
				opts = append(opts, app.WithDryRun())
			}
			r, err := app.NewRunner(e.cfg, e.log, opts...)
			if err != nil {
				return err
			}
			defer r.Close()

			_, err = r.RunOnce(cmd.Context())
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log messages instead of sending them")
	return cmd
}
