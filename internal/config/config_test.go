// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	cfg "github.com/toeirei/warden/internal/config"
)

// isolate points the user config dir at a temp dir and runs from another
// temp dir so no real warden.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "sqlite" || got.Database.Dsn != "./warden.db" {
		t.Errorf("unexpected database defaults: %+v", got.Database)
	}
	if got.Language != "en" || got.Log.Level != "info" {
		t.Errorf("unexpected defaults: %+v", got)
	}
	if got.Recovery.DedupeVotes || got.Recovery.StrictCaller {
		t.Errorf("recovery policies must default to off: %+v", got.Recovery)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	isolate(t)
	tmp := t.TempDir()
	yaml := "database:\n  type: postgres\n  dsn: postgresql://user@/db\nlanguage: de\nrecovery:\n  dedupe_votes: true\n"
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "postgres" {
		t.Fatalf("expected postgres, got %q", got.Database.Type)
	}
	if got.Language != "de" {
		t.Fatalf("expected de, got %q", got.Language)
	}
	if !got.Recovery.DedupeVotes {
		t.Fatalf("expected dedupe_votes from file")
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(file, []byte("identity: alice\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WARDEN_IDENTITY", "bob")
	t.Setenv("WARDEN_RECOVERY_STRICT_CALLER", "true")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatal(err)
	}
	if got.Identity != "bob" {
		t.Errorf("expected env identity bob, got %q", got.Identity)
	}
	if !got.Recovery.StrictCaller {
		t.Errorf("expected strict_caller from env")
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("WARDEN_ACCOUNT", "from-env")

	cmd := &cobra.Command{}
	cmd.Flags().String("account", "", "")
	if err := cmd.Flags().Set("account", "from-flag"); err != nil {
		t.Fatal(err)
	}
	got, err := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Account != "from-flag" {
		t.Fatalf("expected flag value, got %q", got.Account)
	}
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(file, []byte("database: [unclosed\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	isolate(t)

	c := cfg.Config{}
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./warden.db"
	c.Language = "en"
	c.Recovery.DedupeVotes = true

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}

	want, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if path != want {
		t.Fatalf("wrote to %s, want %s", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "dedupe_votes: true") {
		t.Fatalf("written yaml missing recovery settings:\n%s", data)
	}

	// The written file must load back.
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Recovery.DedupeVotes || got.Database.Dsn != "./warden.db" {
		t.Fatalf("round trip lost values: %+v", got)
	}
}
