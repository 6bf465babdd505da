package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != "json" {
		t.Errorf("DatabaseDriver = %q, want json", cfg.DatabaseDriver)
	}
	if cfg.DatabasePath != "./shotsmarts-data/savedParameters.json" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.ListenAddr != "127.0.0.1:9080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.BackupSchedule != "@daily" {
		t.Errorf("BackupSchedule = %q", cfg.BackupSchedule)
	}
	if cfg.BackupKeep != 7 {
		t.Errorf("BackupKeep = %d", cfg.BackupKeep)
	}
	if cfg.Locale != "en" {
		t.Errorf("Locale = %q", cfg.Locale)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "shotsmarts.yaml")
	content := "database_driver: bolt\ndatabase_path: " + filepath.Join(dir, "db.bolt") + "\nbackup_keep: 3\nlocale: zh-Hans\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SHOTSMARTS_LOG_LEVEL", "debug")
	t.Setenv("SHOTSMARTS_BACKUP_KEEP", "10")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != "bolt" {
		t.Errorf("DatabaseDriver = %q, want bolt", cfg.DatabaseDriver)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from env", cfg.LogLevel)
	}
	if cfg.BackupKeep != 10 {
		t.Errorf("BackupKeep = %d, want env override 10", cfg.BackupKeep)
	}
	if cfg.Locale != "zh-Hans" {
		t.Errorf("Locale = %q", cfg.Locale)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SHOTSMARTS_DATABASE_DRIVER=sqlite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("SHOTSMARTS_DATABASE_DRIVER") })

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("DatabaseDriver = %q, want sqlite from .env", cfg.DatabaseDriver)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHOTSMARTS_DATABASE_DRIVER", "mongo")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), "database_driver") {
		t.Errorf("error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			DatabaseDriver: "json",
			DatabasePath:   "x.json",
			LogLevel:       "info",
			ListenAddr:     "127.0.0.1:9080",
			BackupSchedule: "@daily",
			BackupDir:      "backups",
			BackupKeep:     7,
			Locale:         "en",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty path", func(c *Config) { c.DatabasePath = "" }, "database_path"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"empty addr", func(c *Config) { c.ListenAddr = "" }, "listen_addr"},
		{"bad cron", func(c *Config) { c.BackupSchedule = "every day" }, "backup_schedule"},
		{"disabled backups", func(c *Config) { c.BackupSchedule = ""; c.BackupDir = "" }, ""},
		{"cron without dir", func(c *Config) { c.BackupDir = "" }, "backup_dir"},
		{"keep zero", func(c *Config) { c.BackupKeep = 0 }, "backup_keep"},
		{"empty locale", func(c *Config) { c.Locale = "" }, "locale"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		DatabasePath: filepath.Join(dir, "data", "history.json"),
		BackupDir:    filepath.Join(dir, "backups"),
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, p := range []string{filepath.Join(dir, "data"), cfg.BackupDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", p, err)
		}
	}
}
