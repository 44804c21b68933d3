package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRenderPlist(t *testing.T) {
	p := Paths{
		Binary:    "/usr/local/bin/scribe",
		WorkDir:   "/Users/me/.scribe",
		StdoutLog: "/Users/me/Library/Logs/scribe-bot.log",
		StderrLog: "/Users/me/Library/Logs/scribe-bot.err.log",
	}
	out, err := RenderPlist(p)
	if err != nil {
		t.Fatalf("RenderPlist: %v", err)
	}
	for _, want := range []string{
		"<string>com.scribe.bot</string>",
		"<string>/usr/local/bin/scribe</string>\n\t\t<string>bot</string>",
		"<string>/Users/me/.scribe</string>",
		"<string>/Users/me/Library/Logs/scribe-bot.err.log</string>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected plist to contain %q", want)
		}
	}
}

func TestWorkDir(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config")

	if got := workDir(cfg); got != dir {
		t.Errorf("expected config dir without a config file, got %q", got)
	}

	os.WriteFile(cfg, []byte("DATABASE_PATH=/var/lib/scribe.db\n"), 0o600)
	if got := workDir(cfg); got != dir {
		t.Errorf("expected config dir for absolute db path, got %q", got)
	}

	os.WriteFile(cfg, []byte("DATABASE_PATH=./scribe.db\n"), 0o600)
	wd, _ := os.Getwd()
	if got := workDir(cfg); got != wd {
		t.Errorf("expected working dir for relative db path, got %q", got)
	}
}

func TestSeedConfig(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	cfg := filepath.Join(dir, "home", "config")

	if err := seedConfig(env, cfg); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
	if _, err := os.Stat(cfg); !os.IsNotExist(err) {
		t.Error("expected no config without a .env")
	}

	os.WriteFile(env, []byte("OPENAI_API_KEY=sk-test\n"), 0o600)
	if err := seedConfig(env, cfg); err != nil {
		t.Fatalf("seedConfig: %v", err)
	}
	data, _ := os.ReadFile(cfg)
	if string(data) != "OPENAI_API_KEY=sk-test\n" {
		t.Errorf("expected copied config, got %q", data)
	}

	os.WriteFile(env, []byte("OPENAI_API_KEY=sk-other\n"), 0o600)
	seedConfig(env, cfg)
	data, _ = os.ReadFile(cfg)
	if string(data) != "OPENAI_API_KEY=sk-test\n" {
		t.Errorf("existing config must not be overwritten, got %q", data)
	}
}
