package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"

	"gamedex/internal/catalog"
	"gamedex/internal/logging"
	"gamedex/internal/query"
	"gamedex/internal/storage"
	"gamedex/pkg/database"
)

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "GAMEDEX_CONFIG"

type Config struct {
	Catalog CatalogConfig `koanf:"catalog"`
	Storage StorageConfig `koanf:"storage"`
	Query   QueryConfig   `koanf:"query"`
	Logging LoggingConfig `koanf:"logging"`
	Server  ServerConfig  `koanf:"server"`
}

type CatalogConfig struct {
	BaseURL            string        `koanf:"base_url" validate:"required,url"`
	Timeout            time.Duration `koanf:"timeout" validate:"gt=0"`
	BreakerEnabled     bool          `koanf:"breaker_enabled"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"gte=1"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=sqlite badger memory"`
	Path   string `koanf:"path" validate:"required_unless=Driver memory"`
}

type QueryConfig struct {
	Debounce     time.Duration `koanf:"debounce" validate:"gte=0"`
	Locale       string        `koanf:"locale" validate:"required,bcp47_language_tag"`
	ClearOnError bool          `koanf:"clear_on_error"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

type ServerConfig struct {
	Addr     string `koanf:"addr" validate:"required"`
	DBPath   string `koanf:"db_path" validate:"required"`
	SeedFile string `koanf:"seed_file"`
}

func defaultConfig() *Config {
	cc := catalog.DefaultConfig()
	sc := storage.DefaultConfig()
	return &Config{
		Catalog: CatalogConfig{
			BaseURL:            cc.BaseURL,
			Timeout:            cc.Timeout,
			BreakerEnabled:     cc.Breaker.Enabled,
			BreakerMaxFailures: cc.Breaker.MaxFailures,
			BreakerOpenTimeout: cc.Breaker.OpenTimeout,
		},
		Storage: StorageConfig{Driver: sc.Driver, Path: sc.Path},
		Query: QueryConfig{
			Debounce: query.DefaultDebounce,
			Locale:   "it",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Server: ServerConfig{
			Addr:     ":3001",
			DBPath:   filepath.Join(database.HomeDir(), "catalog.db"),
			SeedFile: "data/games.json",
		},
	}
}

// Load layers configuration: built-in defaults, then a YAML file, then
// GAMEDEX_* environment variables. An explicit path must exist; without one
// the first of GAMEDEX_CONFIG, ./gamedex.yaml and ~/.gamedex/config.yaml
// that exists is used.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("GAMEDEX_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{os.Getenv(ConfigPathEnvVar), "gamedex.yaml", filepath.Join(database.HomeDir(), "config.yaml")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"gamedex_api_url":              "catalog.base_url",
	"gamedex_api_timeout":          "catalog.timeout",
	"gamedex_breaker_enabled":      "catalog.breaker_enabled",
	"gamedex_breaker_max_failures": "catalog.breaker_max_failures",
	"gamedex_breaker_open_timeout": "catalog.breaker_open_timeout",
	"gamedex_storage_driver":       "storage.driver",
	"gamedex_storage_path":         "storage.path",
	"gamedex_search_debounce":      "query.debounce",
	"gamedex_locale":               "query.locale",
	"gamedex_clear_on_error":       "query.clear_on_error",
	"gamedex_log_level":            "logging.level",
	"gamedex_log_format":           "logging.format",
	"gamedex_server_addr":          "server.addr",
	"gamedex_db_path":              "server.db_path",
	"gamedex_seed_file":            "server.seed_file",
}

// envTransform maps known variables to config paths and drops the rest.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

var validate = validator.New()

func (c *Config) Validate() error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return err
}

// Overrides carries command-line flags that win over file and env values.
// Zero fields leave the loaded value alone.
type Overrides struct {
	APIURL    string
	LogLevel  string
	Ephemeral bool // keep client state in memory for this run only
}

func (c *Config) Apply(o Overrides) {
	if o.APIURL != "" {
		c.Catalog.BaseURL = o.APIURL
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.Ephemeral {
		c.Storage.Driver = storage.DriverMemory
		c.Storage.Path = ""
	}
}

func (c *Config) CatalogConfig() catalog.Config {
	return catalog.Config{
		BaseURL: c.Catalog.BaseURL,
		Timeout: c.Catalog.Timeout,
		Breaker: catalog.BreakerConfig{
			Enabled:     c.Catalog.BreakerEnabled,
			MaxFailures: c.Catalog.BreakerMaxFailures,
			OpenTimeout: c.Catalog.BreakerOpenTimeout,
		},
	}
}

func (c *Config) StorageConfig() storage.Config {
	return storage.Config{Driver: c.Storage.Driver, Path: c.Storage.Path}
}

func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}

// Locale returns the collation and formatting locale. Validate has already
// rejected unparsable tags.
func (c *Config) Locale() language.Tag {
	tag, err := language.Parse(c.Query.Locale)
	if err != nil {
		return language.Italian
	}
	return tag
}
