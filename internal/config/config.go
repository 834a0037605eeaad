package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/folio-dev/folio/internal/catalog"
	"github.com/folio-dev/folio/internal/model"
)

// FileName is the project configuration file at the project root.
const FileName = "folio.yaml"

// Store backends.
const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

// Config represents the top-level folio.yaml configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Rates     RatesConfig     `yaml:"rates"`
	Valuation ValuationConfig `yaml:"valuation"`
	Catalog   catalog.Catalog `yaml:"catalog"`
	Server    ServerConfig    `yaml:"server"`
	Git       GitConfig       `yaml:"git"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig selects where ledger partitions live.
type StoreConfig struct {
	Backend     string `yaml:"backend" env:"FOLIO_STORE_BACKEND"`
	Dir         string `yaml:"dir" env:"FOLIO_STORE_DIR"` // relative to the project root unless absolute
	DatabaseURL string `yaml:"database_url,omitempty" env:"FOLIO_DATABASE_URL"`
}

// RatesConfig describes the FX quote source.
type RatesConfig struct {
	URL      string            `yaml:"url" env:"FOLIO_RATES_URL"`
	Timeout  time.Duration     `yaml:"timeout" env:"FOLIO_RATES_TIMEOUT"`
	TTL      time.Duration     `yaml:"ttl" env:"FOLIO_RATES_TTL"`
	NamePath string            `yaml:"name_path"`
	BuyPath  string            `yaml:"buy_path"`
	SellPath string            `yaml:"sell_path"`
	Aliases  map[string]string `yaml:"aliases,omitempty"` // source house name -> rate kind
}

// ValuationConfig lists the rate kinds a summary can be valued in.
type ValuationConfig struct {
	DefaultKind string   `yaml:"default_kind" env:"FOLIO_VALUATION"`
	Kinds       []string `yaml:"kinds"`
}

// ServerConfig controls the HTTP boundary.
type ServerConfig struct {
	Addr        string   `yaml:"addr" env:"FOLIO_ADDR"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" env:"FOLIO_CORS_ORIGINS" envSeparator:","`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit" env:"FOLIO_GIT_AUTO_COMMIT"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" env:"FOLIO_LOG_LEVEL"`
	Development bool   `yaml:"development" env:"FOLIO_LOG_DEVELOPMENT"`
}

// Load reads a folio.yaml file from disk. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadProject loads <root>/.env when present, then <root>/folio.yaml, then
// applies FOLIO_* environment overrides and validates the result.
func LoadProject(root string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := Load(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with FOLIO_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints. It rewrites
// valuation.default_kind to the spelling used in valuation.kinds.
func (c *Config) Validate() error {
	var problems []string
	switch c.Store.Backend {
	case BackendCSV:
		if c.Store.Dir == "" {
			problems = append(problems, "store.dir is required for the csv backend")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store.backend %q", c.Store.Backend))
	}
	if c.Rates.Timeout <= 0 {
		problems = append(problems, "rates.timeout must be positive")
	}
	if c.Rates.TTL <= 0 {
		problems = append(problems, "rates.ttl must be positive")
	}
	if i := slices.IndexFunc(c.Valuation.Kinds, func(k string) bool {
		return strings.EqualFold(k, strings.TrimSpace(c.Valuation.DefaultKind))
	}); i >= 0 {
		c.Valuation.DefaultKind = c.Valuation.Kinds[i]
	} else {
		problems = append(problems, fmt.Sprintf("valuation.default_kind %q is not in valuation.kinds", c.Valuation.DefaultKind))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// StoreDir resolves the CSV ledger directory against the project root.
func (c *Config) StoreDir(root string) string {
	if filepath.IsAbs(c.Store.Dir) {
		return c.Store.Dir
	}
	return filepath.Join(root, c.Store.Dir)
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendCSV,
			Dir:     "ledger",
		},
		Rates: RatesConfig{
			URL:      "https://dolarapi.com/v1/dolares",
			Timeout:  5 * time.Second,
			TTL:      10 * time.Minute,
			NamePath: "$.casa",
			BuyPath:  "$.compra",
			SellPath: "$.venta",
			Aliases:  map[string]string{"bolsa": model.KindMEP},
		},
		Valuation: ValuationConfig{
			DefaultKind: model.KindMEP,
			Kinds:       []string{model.KindMEP, model.KindBlue, model.KindCripto},
		},
		Catalog: catalog.Default(),
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Folio",
			AuthorEmail: "folio@localhost",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
