package app

import (
	"fmt"
	"strings"
	"time"

	"jobalert/internal/compose"
	"jobalert/internal/config"
	"jobalert/internal/events"
	"jobalert/internal/notifier"
	"jobalert/internal/provider"
	"jobalert/internal/storage"
	"jobalert/internal/transport"
	"jobalert/internal/transport/telegram"
	logx "jobalert/pkg/logx"
)

// LogConfig maps the logging section to the logging service config.
func LogConfig(cfg *config.Config) logx.Config {
	level := strings.TrimSpace(cfg.Logging.Level)
	if level == "" {
		level = "INFO"
	}
	path := cfg.Logging.FileLogging()
	return logx.Config{
		Level:   level,
		Console: cfg.Logging.ConsoleLogging(),
		File:    logx.FileConfig{Enabled: path != "", Path: path},
	}
}

func mapStorageConfig(cfg *config.Config) storage.Config {
	sc := cfg.Storage
	return storage.Config{
		Driver:      strings.TrimSpace(sc.Driver),
		Path:        strings.TrimSpace(sc.Path),
		DSN:         strings.TrimSpace(sc.DSN),
		BusyTimeout: config.MustDuration(sc.BusyTimeout, 5*time.Second),
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		RatePerSec:     cfg.Telegram.RatePerSec,
		SendTimeout:    config.MustDuration(cfg.Telegram.SendTimeout, notifier.DefaultSendTimeout),
		ParseMode:      "HTML",
		DisablePreview: cfg.Telegram.DisablePreview,
	}
}

func mapChatTarget(cfg *config.Config) transport.ChatTarget {
	return transport.ChatTarget{ChatID: cfg.Telegram.ChatID.String(), ThreadID: cfg.Telegram.ThreadID}
}

func mapComposer(cfg *config.Config) compose.Composer {
	return compose.Composer{
		MaxLen:   cfg.Message.MaxLength,
		Header:   cfg.Message.Header,
		LinkText: cfg.Message.LinkText,
	}
}

func mapEventsConfig(cfg *config.Config) events.Config {
	return events.Config{URL: strings.TrimSpace(cfg.Events.NATSURL), Subject: cfg.Events.Subject}
}

func newTelegramSender(cfg *config.Config, log logx.Logger) (*telegram.Sender, error) {
	return telegram.New(telegram.Config{
		Token:   cfg.Telegram.BotToken,
		APIURL:  cfg.Telegram.APIURL,
		Timeout: config.MustDuration(cfg.Telegram.SendTimeout, notifier.DefaultSendTimeout),
	}, log)
}

// buildProviders creates the enabled providers in a fixed order:
// remotive, remoteok, then html boards as listed.
func buildProviders(cfg *config.Config) ([]provider.Provider, error) {
	client := provider.NewClient(
		config.MustDuration(cfg.Search.RequestTimeout, provider.DefaultTimeout),
		cfg.Search.UserAgent,
	)
	opts := provider.Options{
		ResultsWanted: cfg.Search.ResultsWanted,
		HoursOld:      cfg.Search.HoursOld,
	}

	var out []provider.Provider
	p := cfg.Providers
	if p.Remotive.On(true) {
		out = append(out, provider.NewRemotive(client, p.Remotive.BaseURL, p.Remotive.RatePerSec, opts))
	}
	if p.RemoteOK.On(false) {
		out = append(out, provider.NewRemoteOK(client, p.RemoteOK.BaseURL, p.RemoteOK.RatePerSec, opts))
	}
	for i, bc := range p.HTML {
		b, err := provider.NewBoard(bc.Board(), client, opts)
		if err != nil {
			return nil, fmt.Errorf("providers.html[%d]: %w", i, err)
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no provider enabled")
	}
	return out, nil
}

// ProviderNames lists the providers cfg enables, in fetch order.
func ProviderNames(cfg *config.Config) ([]string, error) {
	ps, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name())
	}
	return names, nil
}
