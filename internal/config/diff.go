package config

import (
	"reflect"
	"strings"

	logx "jobalert/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and safe
// structured attrs for logging. Tokens and DSNs are never included, only
// whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.JobTitles, newCfg.JobTitles) ||
		!reflect.DeepEqual(oldCfg.Locations, newCfg.Locations) ||
		oldCfg.CountryIndeed != newCfg.CountryIndeed {
		changed = append(changed, "search_terms")
		attrs = append(attrs,
			logx.Int("job_titles", len(newCfg.JobTitles)),
			logx.Int("locations", len(newCfg.Locations)),
			logx.String("country_indeed", newCfg.CountryIndeed),
		)
	}

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot.BotToken != nt.BotToken || ot.ChatID != nt.ChatID || ot.ThreadID != nt.ThreadID ||
		ot.APIURL != nt.APIURL || ot.DisablePreview != nt.DisablePreview ||
		ot.RatePerSec != nt.RatePerSec || strings.TrimSpace(ot.SendTimeout) != strings.TrimSpace(nt.SendTimeout) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.token_changed", ot.BotToken != nt.BotToken),
			logx.Bool("telegram.chat_changed", ot.ChatID != nt.ChatID),
			logx.Int("telegram.thread_id", nt.ThreadID),
			logx.Bool("telegram.api_url_set", strings.TrimSpace(nt.APIURL) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.ConsoleLogging()),
			logx.String("logging.file", newCfg.Logging.FileLogging()),
		)
	}

	if oldCfg.Storage != newCfg.Storage {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.String("storage.path", newCfg.Storage.Path),
			logx.Bool("storage.dsn_set", strings.TrimSpace(newCfg.Storage.DSN) != ""),
		)
	}

	for _, s := range []struct {
		name     string
		old, new any
	}{
		{"search", oldCfg.Search, newCfg.Search},
		{"providers", oldCfg.Providers, newCfg.Providers},
		{"message", oldCfg.Message, newCfg.Message},
		{"events", oldCfg.Events, newCfg.Events},
		{"schedule", oldCfg.Schedule, newCfg.Schedule},
	} {
		if !reflect.DeepEqual(s.old, s.new) {
			changed = append(changed, s.name)
		}
	}
	return changed, attrs
}
