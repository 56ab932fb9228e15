package config

import (
	"fmt"
	"strings"
	"time"
)

// checkDuration validates an optional duration field. Empty is allowed.
func checkDuration(field, raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%s: %q is not a duration (e.g. \"500ms\", \"10s\")", field, raw)
	}
	if d < 0 {
		return fmt.Errorf("%s: must not be negative", field)
	}
	return nil
}

// MustDuration parses a duration that already passed Validate, falling back
// to def when raw is empty, zero or malformed.
func MustDuration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
