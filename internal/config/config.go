package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// EnvConfigPath names the environment variable that points at the config file.
	EnvConfigPath = "STUDYHELPER_CONFIG"

	DefaultServerAddress  = ":8090"
	DefaultDatabase       = "sqlite3"
	DefaultSQLiteDSN      = "study_data.db"
	DefaultProvider       = "openai"
	DefaultSecretsPath    = ".studyhelper/secrets.env"
	DefaultDraftStore     = "memory"
	DefaultDraftTTLMinute = 60
)

// Config represents runtime configuration for the study helper.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Providers   map[string]ProviderConfig `json:"providers"`
}

type BasicConfig struct {
	ServerAddress   string `json:"server_address"`
	Database        string `json:"database"`
	Provider        string `json:"provider"`
	LogMode         string `json:"log_mode"`
	SecretsPath     string `json:"secrets_path"`
	DraftStore      string `json:"draft_store"`
	DraftTTLMinutes int    `json:"draft_ttl_minutes"`

	// Upper bound for one web generation cycle, in seconds. Zero means none.
	GenerateTimeoutSeconds int `json:"generate_timeout_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type ProviderConfig struct {
	BaseURL   string `json:"base_url"`
	Model     string `json:"model"`
	APIKeyEnv string `json:"api_key_env"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the provided path (defaults to config.json).
// A missing default file is not an error; built-in defaults are used instead.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()

	if _, ok := cfg.Databases[cfg.BasicConfig.Database]; !ok {
		return nil, fmt.Errorf("database config for %s not found", cfg.BasicConfig.Database)
	}
	if _, ok := cfg.Providers[cfg.BasicConfig.Provider]; !ok {
		return nil, fmt.Errorf("provider %s not configured", cfg.BasicConfig.Provider)
	}

	baseDir := filepath.Dir(absPath)
	if db, ok := cfg.Databases["sqlite3"]; ok && isPlainPath(db.DSN) && !filepath.IsAbs(db.DSN) {
		db.DSN = filepath.Join(baseDir, db.DSN)
		cfg.Databases["sqlite3"] = db
	}
	if !filepath.IsAbs(cfg.BasicConfig.SecretsPath) {
		cfg.BasicConfig.SecretsPath = filepath.Join(baseDir, cfg.BasicConfig.SecretsPath)
	}

	return &cfg, nil
}

// ProviderSettings returns the selected provider name and its settings.
func (c *Config) ProviderSettings() (string, ProviderConfig) {
	name := c.BasicConfig.Provider
	return name, c.Providers[name]
}

func (c *Config) applyDefaults() {
	b := &c.BasicConfig
	if b.ServerAddress == "" {
		b.ServerAddress = DefaultServerAddress
	}
	if b.Database == "" {
		b.Database = DefaultDatabase
	}
	b.Database = NormalizeDatabase(b.Database)
	if b.Provider == "" {
		b.Provider = DefaultProvider
	}
	b.Provider = strings.ToLower(b.Provider)
	if b.LogMode == "" {
		b.LogMode = "dev"
	}
	if b.SecretsPath == "" {
		b.SecretsPath = DefaultSecretsPath
	}
	if b.DraftStore == "" {
		b.DraftStore = DefaultDraftStore
	}
	if b.DraftTTLMinutes <= 0 {
		b.DraftTTLMinutes = DefaultDraftTTLMinute
	}
	if b.GenerateTimeoutSeconds < 0 {
		b.GenerateTimeoutSeconds = 0
	}

	c.Databases = normalizeDatabases(c.Databases)
	if db, ok := c.Databases["sqlite3"]; !ok || db.DSN == "" {
		db.DSN = DefaultSQLiteDSN
		c.Databases["sqlite3"] = db
	}

	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	for name, def := range defaultProviders {
		p := c.Providers[name]
		if p.Model == "" {
			p.Model = def.Model
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = def.APIKeyEnv
		}
		c.Providers[name] = p
	}
}

var defaultProviders = map[string]ProviderConfig{
	"openai": {Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY"},
	"gemini": {Model: "gemini-2.5-flash", APIKeyEnv: "GOOGLE_API_KEY"},
	"claude": {Model: "claude-3-5-haiku-latest", APIKeyEnv: "ANTHROPIC_API_KEY"},
}

// NormalizeDatabase lower-cases a driver name and folds "sqlite" into
// "sqlite3".
func NormalizeDatabase(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "sqlite" {
		return "sqlite3"
	}
	return name
}

// normalizeDatabases re-keys dbs by normalized driver name. An entry already
// under the canonical name wins over an alias.
func normalizeDatabases(dbs map[string]DatabaseConfig) map[string]DatabaseConfig {
	out := make(map[string]DatabaseConfig, len(dbs))
	for name, db := range dbs {
		key := NormalizeDatabase(name)
		if _, taken := out[key]; taken && key != name {
			continue
		}
		out[key] = db
	}
	return out
}

func isPlainPath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}
