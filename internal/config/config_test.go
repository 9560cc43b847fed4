package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "config.json")
}

func writeTestConfig(t *testing.T, path string, cfg *Config) {
	t.Helper()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
}

func TestSave_ReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := Default()
	original.DataDir = "/tmp/test-data"
	original.LogLevel = "debug"
	original.MaxConcurrent = 8
	original.Telegram.Token = "123456:bot-token"
	original.Gist.Token = "ghp_roundtrip"
	original.Gist.ID = "abc123"
	original.Store.DeletePolicy = PolicyFailClosed
	original.Admin.Password = "12345678"
	original.HTTP.Enabled = true

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file does not exist after Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.DataDir != original.DataDir {
		t.Errorf("DataDir mismatch: %v != %v", loaded.DataDir, original.DataDir)
	}
	if loaded.LogLevel != original.LogLevel {
		t.Errorf("LogLevel mismatch: %v != %v", loaded.LogLevel, original.LogLevel)
	}
	if loaded.MaxConcurrent != original.MaxConcurrent {
		t.Errorf("MaxConcurrent mismatch: %v != %v", loaded.MaxConcurrent, original.MaxConcurrent)
	}
	if loaded.Telegram.Token != original.Telegram.Token {
		t.Errorf("Telegram.Token mismatch: %v != %v", loaded.Telegram.Token, original.Telegram.Token)
	}
	if loaded.Gist.ID != original.Gist.ID {
		t.Errorf("Gist.ID mismatch: %v != %v", loaded.Gist.ID, original.Gist.ID)
	}
	if loaded.Store.DeletePolicy != PolicyFailClosed {
		t.Errorf("Store.DeletePolicy mismatch: %v", loaded.Store.DeletePolicy)
	}
	if loaded.Admin.Password != "12345678" {
		t.Errorf("Admin.Password mismatch: %v", loaded.Admin.Password)
	}
	if !loaded.HTTP.Enabled {
		t.Error("HTTP.Enabled should survive the round trip")
	}
}

func TestLoad_CreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}
	if cfg.Gist.Filename != "registros.json" {
		t.Errorf("expected default gist filename, got %q", cfg.Gist.Filename)
	}
	if cfg.Telegram.Mode != ModePolling {
		t.Errorf("expected polling mode, got %q", cfg.Telegram.Mode)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte(`{"log_level":"warn","gist":{"id":"xyz"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log_level=warn, got %q", cfg.LogLevel)
	}
	if cfg.Gist.ID != "xyz" {
		t.Errorf("expected gist.id=xyz, got %q", cfg.Gist.ID)
	}
	if cfg.Gist.BaseURL != "https://api.github.com" {
		t.Errorf("expected default base url, got %q", cfg.Gist.BaseURL)
	}
	if cfg.Session.SweepSchedule != "@every 5m" {
		t.Errorf("expected default sweep schedule, got %q", cfg.Session.SweepSchedule)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := tempConfigPath(t)
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	t.Setenv("BOT_TOKEN", "env-bot-token")
	t.Setenv("GIST_TOKEN", "env-gist-token")
	t.Setenv("GIST_ID", "env-gist-id")
	t.Setenv("ADMIN_PASSWORD", "env-secret")
	t.Setenv("KERNEL6_MAX_CONCURRENT", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telegram.Token != "env-bot-token" {
		t.Errorf("expected env bot token, got %q", cfg.Telegram.Token)
	}
	if cfg.Gist.Token != "env-gist-token" || cfg.Gist.ID != "env-gist-id" {
		t.Errorf("expected env gist credentials, got %q/%q", cfg.Gist.Token, cfg.Gist.ID)
	}
	if cfg.Admin.Password != "env-secret" {
		t.Errorf("expected env admin password, got %q", cfg.Admin.Password)
	}
	if cfg.MaxConcurrent != 2 {
		t.Errorf("expected max_concurrent=2, got %d", cfg.MaxConcurrent)
	}
	if cfg.StoreMode() != BackendGist {
		t.Errorf("expected gist store mode, got %q", cfg.StoreMode())
	}
}

func TestLoad_PlatformEnv(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	t.Setenv("PORT", "10000")
	t.Setenv("RENDER_EXTERNAL_HOSTNAME", "civic-bot.onrender.com")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Listen != ":10000" {
		t.Errorf("expected http on :10000, got enabled=%v listen=%q", cfg.HTTP.Enabled, cfg.HTTP.Listen)
	}
	if cfg.Telegram.Mode != ModeWebhook {
		t.Errorf("expected webhook mode, got %q", cfg.Telegram.Mode)
	}
	if cfg.Telegram.WebhookURL != "https://civic-bot.onrender.com" {
		t.Errorf("unexpected webhook url %q", cfg.Telegram.WebhookURL)
	}
}

func TestLoad_PlatformEnvKeepsExplicitWebhookURL(t *testing.T) {
	path := tempConfigPath(t)
	cfg := Default()
	cfg.Telegram.WebhookURL = "https://reports.example.org"
	writeTestConfig(t, path, cfg)

	t.Setenv("RENDER_EXTERNAL_HOSTNAME", "civic-bot.onrender.com")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Telegram.WebhookURL != "https://reports.example.org" {
		t.Errorf("explicit webhook url should win, got %q", loaded.Telegram.WebhookURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.Telegram.Mode = "push" }, "telegram.mode"},
		{"bad backend", func(c *Config) { c.Store.Backend = "s3" }, "store.backend"},
		{"bad policy", func(c *Config) { c.Store.DeletePolicy = "never" }, "store.delete_policy"},
		{"bad timeout", func(c *Config) { c.Session.IdleTimeout = "soon" }, "session.idle_timeout"},
		{"negative timeout", func(c *Config) { c.Session.IdleTimeout = "-1m" }, "session.idle_timeout"},
		{"webhook without url", func(c *Config) { c.Telegram.Mode = ModeWebhook }, "webhook_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Store.Backend = "s3"
	cfg.Store.DeletePolicy = "never"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "store.backend") || !strings.Contains(err.Error(), "store.delete_policy") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestStoreMode(t *testing.T) {
	tests := []struct {
		backend string
		token   string
		id      string
		want    string
	}{
		{BackendAuto, "", "", BackendMemory},
		{BackendAuto, "tok", "", BackendMemory},
		{BackendAuto, "", "id", BackendMemory},
		{BackendAuto, "tok", "id", BackendGist},
		{BackendFile, "tok", "id", BackendFile},
		{BackendMemory, "tok", "id", BackendMemory},
		{BackendGist, "", "", BackendGist},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.Store.Backend = tt.backend
		cfg.Gist.Token = tt.token
		cfg.Gist.ID = tt.id
		if got := cfg.StoreMode(); got != tt.want {
			t.Errorf("backend=%s token=%q id=%q: expected %s, got %s", tt.backend, tt.token, tt.id, tt.want, got)
		}
	}
}

func TestIdleTimeout(t *testing.T) {
	cfg := Default()
	d, err := cfg.IdleTimeout()
	if err != nil {
		t.Fatal(err)
	}
	if d != 30*time.Minute {
		t.Errorf("expected 30m, got %v", d)
	}

	cfg.Session.IdleTimeout = ""
	d, err = cfg.IdleTimeout()
	if err != nil || d != 0 {
		t.Errorf("empty timeout should disable the sweep, got %v, %v", d, err)
	}
}

func TestWebhookEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.WebhookURL = "https://reports.example.org/"

	if got := cfg.WebhookPath(); got != "/123:abc" {
		t.Errorf("unexpected path %q", got)
	}
	if got := cfg.WebhookEndpoint(); got != "https://reports.example.org/123:abc" {
		t.Errorf("unexpected endpoint %q", got)
	}
}

func TestSave_AtomicWrite(t *testing.T) {
	path := tempConfigPath(t)

	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file should not exist after successful save")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved config: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Errorf("saved file is not valid JSON: %v", err)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "config.json")
	if err := Save(path, Default()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func TestToMap(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/test"
	cfg.Gist.ID = "abc123"

	m, err := ToMap(cfg)
	if err != nil {
		t.Fatalf("ToMap failed: %v", err)
	}
	if m["data_dir"] != "/tmp/test" {
		t.Errorf("expected data_dir=/tmp/test, got %v", m["data_dir"])
	}
	gist, ok := m["gist"].(map[string]any)
	if !ok {
		t.Fatalf("expected gist to be map, got %T", m["gist"])
	}
	if gist["id"] != "abc123" {
		t.Errorf("expected gist.id=abc123, got %v", gist["id"])
	}
	// JSON numbers are float64
	if m["max_concurrent"] != float64(4) {
		t.Errorf("expected max_concurrent=4, got %v", m["max_concurrent"])
	}
}

func TestListValues(t *testing.T) {
	cfg := Default()
	cfg.Telegram.Token = "123456:ABCDEFGH"
	cfg.Admin.Password = "supersecret"

	plain, err := ListValues(cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	if plain["telegram.token"] != "123456:ABCDEFGH" {
		t.Errorf("unmasked listing should show the token, got %v", plain["telegram.token"])
	}

	masked, err := ListValues(cfg, true)
	if err != nil {
		t.Fatal(err)
	}
	if masked["telegram.token"] != "***EFGH" {
		t.Errorf("expected masked token, got %v", masked["telegram.token"])
	}
	if masked["admin.password"] != "***cret" {
		t.Errorf("expected masked password, got %v", masked["admin.password"])
	}
	if masked["gist.token"] != "" {
		t.Errorf("empty secrets stay empty, got %v", masked["gist.token"])
	}
	if masked["store.backend"] != BackendAuto {
		t.Errorf("non-secret values are unchanged, got %v", masked["store.backend"])
	}
}

func TestGetValue(t *testing.T) {
	path := tempConfigPath(t)
	cfg := Default()
	cfg.Gist.ID = "abc123"
	writeTestConfig(t, path, cfg)

	v, err := GetValue(path, "gist.id")
	if err != nil {
		t.Fatal(err)
	}
	if v != "abc123" {
		t.Errorf("expected abc123, got %v", v)
	}

	v, err = GetValue(path, "max_concurrent")
	if err != nil {
		t.Fatal(err)
	}
	if v != float64(4) {
		t.Errorf("expected 4, got %v", v)
	}

	if _, err := GetValue(path, "nope.missing"); err == nil {
		t.Error("expected unknown key error")
	}
}

func TestGetValue_CreatesDefault(t *testing.T) {
	path := tempConfigPath(t)

	v, err := GetValue(path, "store.delete_policy")
	if err != nil {
		t.Fatal(err)
	}
	if v != PolicyOptimistic {
		t.Errorf("expected optimistic, got %v", v)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected default file to be created: %v", err)
	}
}

func TestSetValue(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	tests := []struct {
		key   string
		value string
		want  any
	}{
		{"gist.id", "abc123", "abc123"},
		{"admin.password", "12345678", "12345678"},
		{"max_concurrent", "6", float64(6)},
		{"http.enabled", "true", true},
		{"extra.flag", "false", false},
		{"extra.count", "3", float64(3)},
		{"extra.name", "civic", "civic"},
	}
	for _, tt := range tests {
		if err := SetValue(path, tt.key, tt.value); err != nil {
			t.Fatalf("SetValue(%s): %v", tt.key, err)
		}
		got, err := GetValue(path, tt.key)
		if err != nil {
			t.Fatalf("GetValue(%s): %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("%s: expected %v (%T), got %v (%T)", tt.key, tt.want, tt.want, got, got)
		}
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load after SetValue failed: %v", err)
	}
	if cfg.Admin.Password != "12345678" || cfg.MaxConcurrent != 6 || !cfg.HTTP.Enabled {
		t.Errorf("typed values did not load back: %+v", cfg)
	}
}

func TestSetValue_TypeMismatch(t *testing.T) {
	path := tempConfigPath(t)
	writeTestConfig(t, path, Default())

	if err := SetValue(path, "max_concurrent", "many"); err == nil {
		t.Error("expected number error")
	}
	if err := SetValue(path, "http.enabled", "sometimes"); err == nil {
		t.Error("expected boolean error")
	}
}

func TestSetValue_NonexistentFile(t *testing.T) {
	path := tempConfigPath(t)
	if err := SetValue(path, "gist.id", "abc"); err == nil {
		t.Error("expected error for missing file")
	}
}
