package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`{
  "job_titles": ["golang developer"],
  "locations": ["Berlin", "Munich"],
  "country_indeed": "germany",
  "telegram": {"bot_token": "123:abc", "chat_id": "@gojobs"},
  "logging": {"console": false, "file": {"enabled": false}},
  "storage": {"driver": "file", "path": %q}%s
}`, filepath.Join(dir, "postings.jsonl"), extra)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeConfig(t, "")
	out, err := execute(t, "validate", "--config", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, want := range []string{"is valid", "queries:    3", "providers:  remotive", "storage:    file", "chat:       @gojobs"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCommandRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `, "unknown": true`)
	if _, err := execute(t, "validate", "--config", path); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := execute(t, "validate", "--config", path, "--log-level", "LOUD"); err == nil {
		t.Fatalf("expected error for bad log level")
	}
}

func TestInitDBCommand(t *testing.T) {
	path := writeConfig(t, "")
	out, err := execute(t, "init-db", "--config", path, "--log-level", "ERROR")
	if err != nil {
		t.Fatalf("init-db: %v", err)
	}
	if !strings.Contains(out, "store ready: 0 postings") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestMissingConfig(t *testing.T) {
	if _, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing config")
	}
}
