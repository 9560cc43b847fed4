package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends.
const (
	BackendAuto   = "auto"
	BackendGist   = "gist"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Telegram intake modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Deletion persistence policies.
const (
	PolicyOptimistic = "optimistic"
	PolicyFailClosed = "fail_closed"
)

type Config struct {
	DataDir       string `json:"data_dir" env:"KERNEL6_DATA_DIR"`
	LogLevel      string `json:"log_level" env:"LOG_LEVEL"`
	MaxConcurrent int    `json:"max_concurrent" env:"KERNEL6_MAX_CONCURRENT"`
	Telegram      struct {
		Token      string `json:"token" env:"BOT_TOKEN"`
		Mode       string `json:"mode" env:"TELEGRAM_MODE"`
		WebhookURL string `json:"webhook_url" env:"WEBHOOK_URL"`
	} `json:"telegram"`
	Gist struct {
		Token    string `json:"token" env:"GIST_TOKEN"`
		ID       string `json:"id" env:"GIST_ID"`
		Filename string `json:"filename" env:"GIST_FILENAME"`
		BaseURL  string `json:"base_url" env:"GIST_BASE_URL"`
	} `json:"gist"`
	Store struct {
		Backend      string `json:"backend" env:"STORE_BACKEND"`
		DeletePolicy string `json:"delete_policy" env:"DELETE_POLICY"`
	} `json:"store"`
	Admin struct {
		Password string `json:"password" env:"ADMIN_PASSWORD"`
	} `json:"admin"`
	Session struct {
		IdleTimeout   string `json:"idle_timeout" env:"SESSION_IDLE_TIMEOUT"`
		SweepSchedule string `json:"sweep_schedule" env:"SESSION_SWEEP_SCHEDULE"`
	} `json:"session"`
	HTTP struct {
		Enabled bool   `json:"enabled" env:"HTTP_ENABLED"`
		Listen  string `json:"listen" env:"HTTP_LISTEN"`
	} `json:"http"`
}

// platformEnv holds variables set by the hosting platform rather than by
// the operator.
type platformEnv struct {
	Port       string `env:"PORT"`
	RenderHost string `env:"RENDER_EXTERNAL_HOSTNAME"`
}

// Default returns the configuration used when no file or environment
// overrides exist.
func Default() *Config {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".kernel6"),
		LogLevel:      "info",
		MaxConcurrent: 4,
	}
	cfg.Telegram.Mode = ModePolling
	cfg.Gist.Filename = "registros.json"
	cfg.Gist.BaseURL = "https://api.github.com"
	cfg.Store.Backend = BackendAuto
	cfg.Store.DeletePolicy = PolicyOptimistic
	cfg.Session.IdleTimeout = "30m"
	cfg.Session.SweepSchedule = "@every 5m"
	cfg.HTTP.Listen = "127.0.0.1:8080"
	return cfg
}

// Load reads the config file at path (writing defaults when it does not
// exist) and applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with environment variables (highest precedence).
func applyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	var platform platformEnv
	if err := env.Parse(&platform); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if platform.Port != "" {
		cfg.HTTP.Enabled = true
		cfg.HTTP.Listen = ":" + platform.Port
	}
	if platform.RenderHost != "" {
		if cfg.Telegram.WebhookURL == "" {
			cfg.Telegram.WebhookURL = "https://" + platform.RenderHost
		}
		cfg.Telegram.Mode = ModeWebhook
	}
	return nil
}

// Validate checks enumerated values and durations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Telegram.Mode {
	case ModePolling, ModeWebhook:
	default:
		errs = append(errs, fmt.Errorf("telegram.mode: unknown mode %q", c.Telegram.Mode))
	}
	switch c.Store.Backend {
	case BackendAuto, BackendGist, BackendFile, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	switch c.Store.DeletePolicy {
	case PolicyOptimistic, PolicyFailClosed:
	default:
		errs = append(errs, fmt.Errorf("store.delete_policy: unknown policy %q", c.Store.DeletePolicy))
	}
	if _, err := c.IdleTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Telegram.Mode == ModeWebhook && c.Telegram.WebhookURL == "" {
		errs = append(errs, errors.New("telegram.webhook_url is required in webhook mode"))
	}
	return errors.Join(errs...)
}

// StoreMode resolves the record store backend once. "auto" selects the gist
// backend when both its token and id are set, memory otherwise.
func (c *Config) StoreMode() string {
	if c.Store.Backend != BackendAuto {
		return c.Store.Backend
	}
	if c.Gist.Token != "" && c.Gist.ID != "" {
		return BackendGist
	}
	return BackendMemory
}

// IdleTimeout parses session.idle_timeout. Zero disables the sweep.
func (c *Config) IdleTimeout() (time.Duration, error) {
	if c.Session.IdleTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Session.IdleTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("session.idle_timeout: invalid duration %q", c.Session.IdleTimeout)
	}
	return d, nil
}

// WebhookPath is the HTTP path Telegram posts updates to. The bot token in
// the path keeps it unguessable.
func (c *Config) WebhookPath() string {
	return "/" + c.Telegram.Token
}

// WebhookEndpoint is the public URL registered with Telegram.
func (c *Config) WebhookEndpoint() string {
	return strings.TrimRight(c.Telegram.WebhookURL, "/") + c.WebhookPath()
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts cfg to a generic nested map via its JSON form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns the flattened config, optionally with secrets masked.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return m, nil
}

// GetValue returns the value stored in the config file under the
// dot-separated key. The file is created with defaults when missing.
func GetValue(path, key string) (any, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, Default()); err != nil {
			return nil, err
		}
	}
	m, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	v, ok := Flatten(m)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue stores value under the dot-separated key in an existing config
// file. Known keys keep the JSON type of their field; unknown keys store
// booleans and numbers with their JSON type.
func SetValue(path, key, value string) error {
	m, err := readRaw(path)
	if err != nil {
		return err
	}
	v, err := coerce(key, value)
	if err != nil {
		return err
	}
	flat := Flatten(m)
	flat[key] = v
	data, err := json.MarshalIndent(Unflatten(flat), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeFile(path, data)
}

func coerce(key, value string) (any, error) {
	defaults, err := ListValues(Default(), false)
	if err != nil {
		return nil, err
	}
	switch defaults[key].(type) {
	case string:
		return value, nil
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s: expected a boolean, got %q", key, value)
		}
		return b, nil
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: expected a number, got %q", key, value)
		}
		return f, nil
	}
	if value == "true" || value == "false" {
		return value == "true", nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f, nil
	}
	return value, nil
}
