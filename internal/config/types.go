// Package config loads, validates and watches the jobalert configuration file.
//
// The file is JSON or YAML (chosen by extension). Both are decoded strictly:
// unknown fields and trailing data are errors. All durations are Go duration
// strings ("500ms", "10s", "1m").
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type Config struct {
	JobTitles     []string `json:"job_titles" validate:"required,min=1,dive,required"`
	Locations     []string `json:"locations" validate:"required,min=1,dive,required"`
	CountryIndeed string   `json:"country_indeed" validate:"required"`

	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Search    SearchConfig    `json:"search"`
	Providers ProvidersConfig `json:"providers"`
	Message   MessageConfig   `json:"message"`
	Events    EventsConfig    `json:"events"`
	Schedule  ScheduleConfig  `json:"schedule"`
}

type TelegramConfig struct {
	BotToken string `json:"bot_token" validate:"required"`
	ChatID   ChatID `json:"chat_id" validate:"required"`
	ThreadID int    `json:"thread_id,omitempty" validate:"min=0"`

	// APIURL points at a self-hosted Bot API server. Empty means api.telegram.org.
	APIURL         string  `json:"api_url,omitempty" validate:"omitempty,url"`
	DisablePreview bool    `json:"disable_preview,omitempty"`
	RatePerSec     float64 `json:"rate_per_sec,omitempty" validate:"min=0"`
	SendTimeout    string  `json:"send_timeout,omitempty"`
}

// ChatID accepts either a JSON string or number, so `"chat_id": -100123`
// and `"chat_id": "@channel"` both decode.
type ChatID string

func (c *ChatID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = ChatID(strings.TrimSpace(s))
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("chat_id: %w", err)
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("chat_id: %q is not an integer", n.String())
	}
	*c = ChatID(n.String())
	return nil
}

func (c ChatID) String() string { return string(c) }

type LoggingConfig struct {
	// Level is DEBUG, INFO, WARNING, ERROR or CRITICAL (case-insensitive).
	Level string `json:"level,omitempty"`
	// Console defaults to true when omitted.
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file"`
}

type LogFileConfig struct {
	// Enabled defaults to true when omitted.
	Enabled *bool  `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver,omitempty" validate:"omitempty,oneof=sqlite sqlite3 file postgres postgresql pgx"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type SearchConfig struct {
	ResultsWanted  int    `json:"results_wanted,omitempty" validate:"min=0,max=1000"`
	HoursOld       int    `json:"hours_old,omitempty" validate:"min=0"`
	Concurrency    int    `json:"concurrency,omitempty" validate:"min=0,max=32"`
	RequestTimeout string `json:"request_timeout,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
}

type ProvidersConfig struct {
	Remotive SourceConfig  `json:"remotive"`
	RemoteOK SourceConfig  `json:"remoteok"`
	HTML     []BoardConfig `json:"html,omitempty" validate:"dive"`
}

type SourceConfig struct {
	Enabled    *bool   `json:"enabled,omitempty"`
	BaseURL    string  `json:"base_url,omitempty" validate:"omitempty,url"`
	RatePerSec float64 `json:"rate_per_sec,omitempty" validate:"min=0"`
}

// On reports whether the source is enabled, using def when unset.
func (s SourceConfig) On(def bool) bool {
	if s.Enabled == nil {
		return def
	}
	return *s.Enabled
}

type BoardConfig struct {
	Name       string  `json:"name" validate:"required"`
	URL        string  `json:"url" validate:"required"`
	Item       string  `json:"item" validate:"required"`
	Title      string  `json:"title" validate:"required"`
	Link       string  `json:"link" validate:"required"`
	Company    string  `json:"company,omitempty"`
	Location   string  `json:"location,omitempty"`
	Date       string  `json:"date,omitempty"`
	RatePerSec float64 `json:"rate_per_sec,omitempty" validate:"min=0"`
}

type MessageConfig struct {
	MaxLength int    `json:"max_length,omitempty" validate:"omitempty,min=64,max=4096"`
	Header    string `json:"header,omitempty"`
	LinkText  string `json:"link_text,omitempty"`
}

type EventsConfig struct {
	NATSURL string `json:"nats_url,omitempty"`
	Subject string `json:"subject,omitempty"`
}

type ScheduleConfig struct {
	// Spec is a cron expression, interval ("55m") or HH:MM interval.
	Spec string `json:"spec,omitempty"`
	// RunOnStart defaults to true when omitted.
	RunOnStart *bool  `json:"run_on_start,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
}

const (
	DefaultLogFile  = "scraper.log"
	DefaultSchedule = "@hourly"
)

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// ConsoleLogging reports whether console logging is on.
func (l LoggingConfig) ConsoleLogging() bool { return boolOr(l.Console, true) }

// FileLogging returns the log file path, or "" when file logging is off.
func (l LoggingConfig) FileLogging() string {
	if !boolOr(l.File.Enabled, true) {
		return ""
	}
	if p := strings.TrimSpace(l.File.Path); p != "" {
		return p
	}
	return DefaultLogFile
}

func (s ScheduleConfig) SpecOrDefault() string {
	if v := strings.TrimSpace(s.Spec); v != "" {
		return v
	}
	return DefaultSchedule
}

func (s ScheduleConfig) RunOnStartOrDefault() bool { return boolOr(s.RunOnStart, true) }
