package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jobalert/internal/app"
	"jobalert/internal/config"
	logx "jobalert/pkg/logx"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFile    string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "jobalert",
		Short:         "Job posting alerts for Telegram",
		Long:          "jobalert searches job boards for the configured titles and locations, records postings it has not seen before and posts them to a Telegram chat.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "config.json", "Path to the JSON or YAML config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level override (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "Log file override; enables the file sink")

	root.AddCommand(
		newRunCmd(g),
		newServeCmd(g),
		newInitDBCmd(g),
		newValidateCmd(g),
	)
	return root
}

// env bundles what every command needs after startup.
type env struct {
	cfgm      *config.ConfigManager
	cfg       *config.Config
	logs      *logx.Service
	log       logx.Logger
	logConfig func(*config.Config) logx.Config
}

func (e *env) Close() {
	if e.logs != nil {
		_ = e.logs.Close()
	}
}

// logConfig applies command line overrides on top of the config file.
func (g *globalFlags) logConfig(cfg *config.Config) logx.Config {
	lc := app.LogConfig(cfg)
	if v := strings.TrimSpace(g.logLevel); v != "" {
		lc.Level = v
	}
	if v := strings.TrimSpace(g.logFile); v != "" {
		lc.File = logx.FileConfig{Enabled: true, Path: v}
	}
	return lc
}

// bootstrap loads and validates the config and starts logging.
// Config errors are returned before anything else runs.
func (g *globalFlags) bootstrap() (*env, error) {
	if v := strings.TrimSpace(g.logLevel); v != "" {
		if _, ok := logx.ParseLevel(v); !ok {
			return nil, fmt.Errorf("invalid --log-level %q", v)
		}
	}

	cfgm := config.NewConfigManager(g.configPath)
	cfgm.SetEnv(os.Getenv)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", g.configPath, err)
	}

	logs, log, err := logx.New(g.logConfig(cfg))
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	return &env{cfgm: cfgm, cfg: cfg, logs: logs, log: log, logConfig: g.logConfig}, nil
}
