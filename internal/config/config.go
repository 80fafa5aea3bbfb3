package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"commodex/internal/domain"
	"commodex/internal/index"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for commodex.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Logging   Logging   `yaml:"logging"`
	Index     Index     `yaml:"index"`
	Run       Run       `yaml:"run"`
	Reference Reference `yaml:"reference"`
}

// Storage holds paths of the input stores.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Index holds the index methodology parameters.
type Index struct {
	StartLevel    float64       `yaml:"start_level"`
	Mode          string        `yaml:"mode"`
	PriceFallback PriceFallback `yaml:"price_fallback"`
}

// PriceFallback selects what happens when a commodity entering the basket
// has no prior-date price. Policy is "default" or "reject".
type PriceFallback struct {
	Policy       string  `yaml:"policy"`
	DefaultPrice float64 `yaml:"default_price"`
}

// Run describes the default date range of a computation.
type Run struct {
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	Calendar  string `yaml:"calendar"`
}

// Reference points at the commodity catalog. An empty path selects the
// built-in catalog.
type Reference struct {
	CatalogPath string `yaml:"catalog_path"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/commodex.db",
		},
		Logging: Logging{Level: "info", Format: "text"},
		Index: Index{
			StartLevel: index.DefaultStartLevel,
			Mode:       string(domain.ModeExcessReturn),
			PriceFallback: PriceFallback{
				Policy:       "default",
				DefaultPrice: index.DefaultFallbackPrice,
			},
		},
		Run: Run{Calendar: "weekdays"},
	}
}

// Load reads the YAML configuration file at the given path on top of
// Default(), and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty. Otherwise it returns
// Default() with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("INDEX_MODE"); v != "" {
		cfg.Index.Mode = v
	}

	if v := os.Getenv("INDEX_START_LEVEL"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Index.StartLevel = f
		}
	}
}

// IndexConfig converts the index section into an index.Config, rejecting
// unknown modes and fallback policies.
func (c *Config) IndexConfig() (index.Config, error) {
	mode := domain.Mode(strings.ToUpper(c.Index.Mode))
	if mode == "" {
		mode = domain.ModeExcessReturn
	}
	if !mode.Valid() {
		return index.Config{}, fmt.Errorf("config: unknown index mode %q", c.Index.Mode)
	}

	out := index.Config{
		StartLevel: c.Index.StartLevel,
		Mode:       mode,
	}

	switch strings.ToLower(c.Index.PriceFallback.Policy) {
	case "", "default":
		p := c.Index.PriceFallback.DefaultPrice
		if p <= 0 {
			p = index.DefaultFallbackPrice
		}
		out.Fallback = index.FallbackDefault(p)
	case "reject":
		out.Fallback = index.FallbackReject()
	default:
		return index.Config{}, fmt.Errorf("config: unknown price fallback policy %q", c.Index.PriceFallback.Policy)
	}

	return out, nil
}
