package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobalert/internal/app"
	"jobalert/internal/provider"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.bootstrap()
			if err != nil {
				return err
			}
			defer e.Close()

			cfg := e.cfg
			names, err := app.ProviderNames(cfg)
			if err != nil {
				return err
			}
			driver := cfg.Storage.Driver
			if driver == "" {
				driver = "sqlite"
			}
			queries := provider.BuildQueries(cfg.JobTitles, cfg.Locations, cfg.CountryIndeed)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "config %s is valid\n", g.configPath)
			fmt.Fprintf(w, "  job titles: %s\n", strings.Join(cfg.JobTitles, ", "))
			fmt.Fprintf(w, "  locations:  %s\n", strings.Join(cfg.Locations, ", "))
			fmt.Fprintf(w, "  queries:    %d\n", len(queries))
			fmt.Fprintf(w, "  providers:  %s\n", strings.Join(names, ", "))
			fmt.Fprintf(w, "  storage:    %s\n", driver)
			fmt.Fprintf(w, "  chat:       %s\n", cfg.Telegram.ChatID)
			fmt.Fprintf(w, "  schedule:   %s\n", cfg.Schedule.SpecOrDefault())
			return nil
		},
	}
}
