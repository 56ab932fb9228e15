package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobalert/internal/app"
	logx "jobalert/pkg/logx"
)

func newInitDBCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the posting store schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.bootstrap()
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := app.InitStore(cmd.Context(), e.cfg, e.log)
			if err != nil {
				return err
			}
			e.log.Info("store ready", logx.String("driver", e.cfg.Storage.Driver), logx.Int64("postings", n))
			fmt.Fprintf(cmd.OutOrStdout(), "store ready: %d postings\n", n)
			return nil
		},
	}
}
