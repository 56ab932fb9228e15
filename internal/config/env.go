package config

import "strings"

// Environment variables that override secrets in the file.
const (
	EnvTelegramToken  = "JOBALERT_TELEGRAM_TOKEN"
	EnvTelegramChatID = "JOBALERT_TELEGRAM_CHAT_ID"
	EnvDatabaseURL    = "JOBALERT_DATABASE_URL"
)

// ApplyEnv overrides config values from the environment. Non-empty variables win.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if cfg == nil || getenv == nil {
		return
	}
	if v := strings.TrimSpace(getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := strings.TrimSpace(getenv(EnvTelegramChatID)); v != "" {
		cfg.Telegram.ChatID = ChatID(v)
	}
	if v := strings.TrimSpace(getenv(EnvDatabaseURL)); v != "" {
		cfg.Storage.DSN = v
	}
}
