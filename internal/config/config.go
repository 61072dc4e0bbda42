// Package config loads FinansManager configuration from defaults, an optional
// YAML file, a .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all FinansManager configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Sessions SessionsConfig `yaml:"sessions"`
	Store    StoreConfig    `yaml:"store"`
	Advice   AdviceConfig   `yaml:"advice"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Notion   NotionConfig   `yaml:"notion"`
	Client   ClientConfig   `yaml:"client"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the proxy HTTP server.
type ServerConfig struct {
	Port           string  `yaml:"port"`
	AllowedOrigin  string  `yaml:"allowed_origin"`
	RateLimit      float64 `yaml:"rate_limit"` // requests per second, 0 disables
	RateBurst      int     `yaml:"rate_burst"`
	ReadTimeout    string  `yaml:"read_timeout"`
	WriteTimeout   string  `yaml:"write_timeout"`
	RequestTimeout string  `yaml:"request_timeout"`
}

// LLMConfig configures the hosted model.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// SessionsConfig configures the per-user session store.
type SessionsConfig struct {
	TTL             string `yaml:"ttl"`
	CleanupInterval string `yaml:"cleanup_interval"`
	MaxSessions     int    `yaml:"max_sessions"`
	Policy          string `yaml:"policy"` // refresh, pin, reject
}

// StoreConfig selects the document database backend.
type StoreConfig struct {
	Backend         string `yaml:"backend"` // memory, sqlite, bigquery
	SQLitePath      string `yaml:"sqlite_path"`
	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`
	PollInterval    string `yaml:"poll_interval"`
}

// AdviceConfig configures the financial analysis.
type AdviceConfig struct {
	Mode  string `yaml:"mode"` // model, template; empty picks model when an API key is set
	Delay string `yaml:"delay"`
}

// ArchiveConfig configures ledger exports.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
}

// NotionConfig configures the Notion mirror.
type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

// ClientConfig configures the finctl chat client.
type ClientConfig struct {
	ProxyURL string `yaml:"proxy_url"`
	UserID   string `yaml:"user_id"`
	Timeout  string `yaml:"timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console, json
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBigQuery = "bigquery"
)

// Advice modes.
const (
	AdviceModeModel    = "model"
	AdviceModeTemplate = "template"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "3001",
			AllowedOrigin:  "http://localhost:5173",
			RateLimit:      10,
			RateBurst:      20,
			ReadTimeout:    "15s",
			WriteTimeout:   "60s",
			RequestTimeout: "45s",
		},
		LLM: LLMConfig{
			Model: "gemini-2.5-flash",
		},
		Sessions: SessionsConfig{
			TTL:             "24h",
			CleanupInterval: "10m",
			MaxSessions:     1000,
			Policy:          "refresh",
		},
		Store: StoreConfig{
			// Persistent so that finctl setup, chat and the API share one ledger.
			Backend:         BackendSQLite,
			SQLitePath:      "finansmanager.db",
			BigQueryDataset: "finansmanager",
			PollInterval:    "5s",
		},
		Advice: AdviceConfig{
			Delay: "3s",
		},
		Client: ClientConfig{
			ProxyURL: "http://localhost:3001",
			UserID:   "demo-user-123",
			Timeout:  "60s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first if present; path may be empty or point to a missing file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: read .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("Load: parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("Load: read %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("Save: create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("Save: marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("Save: write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"GEMINI_API_KEY":  &c.LLM.APIKey,
		"GEMINI_MODEL":    &c.LLM.Model,
		"PORT":            &c.Server.Port,
		"FRONTEND_ORIGIN": &c.Server.AllowedOrigin,
		"STORE_BACKEND":   &c.Store.Backend,
		"SQLITE_PATH":     &c.Store.SQLitePath,
		"BQ_PROJECT":      &c.Store.BigQueryProject,
		"BQ_DATASET":      &c.Store.BigQueryDataset,
		"SESSION_TTL":     &c.Sessions.TTL,
		"SESSION_POLICY":  &c.Sessions.Policy,
		"ADVICE_MODE":     &c.Advice.Mode,
		"ADVICE_DELAY":    &c.Advice.Delay,
		"GCS_BUCKET":      &c.Archive.Bucket,
		"NOTION_TOKEN":    &c.Notion.Token,
		"NOTION_DB_ID":    &c.Notion.DatabaseID,
		"LOG_LEVEL":       &c.Logging.Level,
		"LOG_FORMAT":      &c.Logging.Format,
		"PROXY_URL":       &c.Client.ProxyURL,
		"FINANS_USER_ID":  &c.Client.UserID,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if c.Store.BigQueryProject == "" {
		c.Store.BigQueryProject = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}

	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("applyEnvOverrides: MAX_SESSIONS: %w", err)
		}
		c.Sessions.MaxSessions = n
	}
	return nil
}

// AdviceMode resolves an empty mode to model when an API key is configured.
func (c *Config) AdviceMode() string {
	if c.Advice.Mode != "" {
		return c.Advice.Mode
	}
	if c.LLM.APIKey != "" {
		return AdviceModeModel
	}
	return AdviceModeTemplate
}

// Duration getters fall back to the default when the value does not parse;
// Validate reports such values.

func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Sessions.TTL, 24*time.Hour)
}

func (c *Config) GetCleanupInterval() time.Duration {
	return parseDuration(c.Sessions.CleanupInterval, 10*time.Minute)
}

func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 15*time.Second)
}

func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 60*time.Second)
}

func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 45*time.Second)
}

func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Store.PollInterval, 5*time.Second)
}

func (c *Config) GetAdviceDelay() time.Duration {
	return parseDuration(c.Advice.Delay, 3*time.Second)
}

func (c *Config) GetClientTimeout() time.Duration {
	return parseDuration(c.Client.Timeout, 60*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// ValidBackends lists the supported store backends.
var ValidBackends = []string{BackendMemory, BackendSQLite, BackendBigQuery}

// Validate checks enums, durations and backend requirements. The API key is
// checked by the commands that need it.
func (c *Config) Validate() error {
	var errs []error

	if !contains(ValidBackends, c.Store.Backend) {
		errs = append(errs, fmt.Errorf("invalid store backend %q (valid: %v)", c.Store.Backend, ValidBackends))
	}
	if c.Store.Backend == BackendSQLite && c.Store.SQLitePath == "" {
		errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
	}
	if c.Store.Backend == BackendBigQuery && (c.Store.BigQueryProject == "" || c.Store.BigQueryDataset == "") {
		errs = append(errs, errors.New("store.bigquery_project and store.bigquery_dataset are required for the bigquery backend"))
	}

	switch strings.ToLower(c.Sessions.Policy) {
	case "", "refresh", "pin", "reject":
	default:
		errs = append(errs, fmt.Errorf("invalid session policy %q", c.Sessions.Policy))
	}
	switch c.Advice.Mode {
	case "", AdviceModeModel, AdviceModeTemplate:
	default:
		errs = append(errs, fmt.Errorf("invalid advice mode %q", c.Advice.Mode))
	}
	if c.Advice.Mode == AdviceModeModel && c.LLM.APIKey == "" {
		errs = append(errs, errors.New("advice mode model requires GEMINI_API_KEY"))
	}
	if c.Sessions.MaxSessions < 0 {
		errs = append(errs, errors.New("sessions.max_sessions must not be negative"))
	}
	if c.Server.AllowedOrigin == "" {
		errs = append(errs, errors.New("server.allowed_origin is required"))
	}

	for name, v := range map[string]string{
		"sessions.ttl":              c.Sessions.TTL,
		"sessions.cleanup_interval": c.Sessions.CleanupInterval,
		"server.read_timeout":       c.Server.ReadTimeout,
		"server.write_timeout":      c.Server.WriteTimeout,
		"server.request_timeout":    c.Server.RequestTimeout,
		"store.poll_interval":       c.Store.PollInterval,
		"advice.delay":              c.Advice.Delay,
		"client.timeout":            c.Client.Timeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
