package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"jobalert/internal/provider"
	"jobalert/internal/schedule"
	logx "jobalert/pkg/logx"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their config key rather than the Go field name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg after env overrides have been applied.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}
	var problems []string

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if lv := strings.TrimSpace(cfg.Logging.Level); lv != "" {
		if _, ok := logx.ParseLevel(lv); !ok {
			problems = append(problems, fmt.Sprintf("logging.level: unknown level %q", lv))
		}
	}

	for _, d := range []struct{ path, raw string }{
		{"telegram.send_timeout", cfg.Telegram.SendTimeout},
		{"storage.busy_timeout", cfg.Storage.BusyTimeout},
		{"search.request_timeout", cfg.Search.RequestTimeout},
	} {
		if err := checkDuration(d.path, d.raw); err != nil {
			problems = append(problems, err.Error())
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "postgres", "postgresql", "pgx":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			problems = append(problems, "storage.dsn: required for postgres driver (or set "+EnvDatabaseURL+")")
		}
	case "file":
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			problems = append(problems, "storage.path: required for file driver")
		}
	}

	if !cfg.Providers.Remotive.On(true) && !cfg.Providers.RemoteOK.On(false) && len(cfg.Providers.HTML) == 0 {
		problems = append(problems, "providers: no provider enabled")
	}
	seen := map[string]bool{}
	for i, b := range cfg.Providers.HTML {
		name := strings.ToLower(strings.TrimSpace(b.Name))
		if name == "remotive" || name == "remoteok" || (name != "" && seen[name]) {
			problems = append(problems, fmt.Sprintf("providers.html[%d].name: %q is already used", i, b.Name))
		}
		seen[name] = true
		if u := strings.TrimSpace(b.URL); u != "" && !strings.Contains(u, "{term}") {
			problems = append(problems, fmt.Sprintf("providers.html[%d].url: must contain {term}", i))
		}
	}

	if _, err := schedule.Parse(cfg.Schedule.SpecOrDefault()); err != nil {
		problems = append(problems, "schedule.spec: "+err.Error())
	}
	if _, err := schedule.Location(cfg.Schedule.Timezone); err != nil {
		problems = append(problems, "schedule.timezone: "+err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + ": required"
	case "min", "max":
		return fmt.Sprintf("%s: must be %s %s", field, map[string]string{"min": ">=", "max": "<="}[fe.Tag()], fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", field, fe.Param())
	case "url":
		return field + ": must be a URL"
	default:
		return fmt.Sprintf("%s: failed %q", field, fe.Tag())
	}
}

// Board converts the config entry to the provider's board description.
func (b BoardConfig) Board() provider.BoardConfig {
	return provider.BoardConfig{
		Name:       strings.TrimSpace(b.Name),
		URL:        strings.TrimSpace(b.URL),
		Item:       b.Item,
		Title:      b.Title,
		Link:       b.Link,
		Company:    b.Company,
		Location:   b.Location,
		Date:       b.Date,
		RatePerSec: b.RatePerSec,
	}
}
