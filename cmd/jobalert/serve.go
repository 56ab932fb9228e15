package main

import (
	"github.com/spf13/cobra"

	"jobalert/internal/app"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run cycles on the configured schedule",
		Long:  "Runs the pipeline on schedule.spec until interrupted. The config file is watched and valid changes apply from the next cycle.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.bootstrap()
			if err != nil {
				return err
			}
			defer e.Close()

			d := app.NewDaemon(e.cfgm, e.log, app.DaemonOptions{
				Logs:      e.logs,
				LogConfig: e.logConfig,
			})
			return d.Run(cmd.Context())
		},
	}
}
