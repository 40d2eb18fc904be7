package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/keyring"
)

func setupTestDir(t *testing.T) string {
	gokeyring.MockInit()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return t.TempDir()
}

func TestLoadDefaults(t *testing.T) {
	dir := setupTestDir(t)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store != constants.StoreSQLite {
		t.Errorf("store = %q, want sqlite", cfg.Store)
	}
	if cfg.SQLitePath != filepath.Join(dir, constants.DefaultDBFileName) {
		t.Errorf("sqlite path = %q", cfg.SQLitePath)
	}
	if cfg.Debug || cfg.UserID != "" || cfg.AppSecret != "" {
		t.Errorf("unexpected values: %+v", cfg)
	}
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := setupTestDir(t)
	yaml := "store: memory\nuser_id: local-1\ndebug: true\nsupabase_url: https://example.supabase.co\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("AGENDA_STORE", "supabase")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store != constants.StoreSupabase {
		t.Errorf("env should override file, store = %q", cfg.Store)
	}
	if cfg.UserID != "local-1" || !cfg.Debug || cfg.SupabaseURL != "https://example.supabase.co" {
		t.Errorf("unexpected values: %+v", cfg)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := setupTestDir(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AGENDA_APP_SECRET=from-dotenv\n"), 0600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Setenv("AGENDA_APP_SECRET", "")
	os.Unsetenv("AGENDA_APP_SECRET")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppSecret != "from-dotenv" {
		t.Errorf("app secret = %q, want value from .env", cfg.AppSecret)
	}
}

func TestSecretPrecedence(t *testing.T) {
	dir := setupTestDir(t)
	if err := keyring.Set(keyring.AppSecret, "from-keyring"); err != nil {
		t.Fatalf("failed to seed keyring: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppSecret != "from-keyring" {
		t.Errorf("app secret = %q, want keyring value", cfg.AppSecret)
	}

	t.Setenv(EnvAppSecret, "from-env")
	cfg, err = Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AppSecret != "from-env" {
		t.Errorf("app secret = %q, env should win", cfg.AppSecret)
	}
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	dir := setupTestDir(t)
	t.Setenv("AGENDA_STORE", "mongo")
	if _, err := Load(dir); !errors.Is(err, ErrUnknownStore) {
		t.Errorf("expected ErrUnknownStore, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := setupTestDir(t)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.Store = constants.StoreMemory
	cfg.UserID = "local-abc"
	cfg.AppSecret = "do-not-save"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(cfg.File())
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	if strings.Contains(string(data), "do-not-save") {
		t.Error("secrets must not be written to the config file")
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.Store != constants.StoreMemory || reloaded.UserID != "local-abc" {
		t.Errorf("reloaded config = %+v", reloaded)
	}
}

func TestDataDirExpandsHome(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	dir, err := DataDir("")
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir == constants.DefaultConfigDir || !filepath.IsAbs(dir) {
		t.Errorf("DataDir() = %q, want an expanded absolute path", dir)
	}
}
