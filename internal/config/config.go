// Package config loads settings from defaults, an optional homescholar.yaml,
// a .env file and HOMESCHOLAR_* environment variables, in increasing
// priority. Command-line flags bound on the viper instance win over all.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/logging"
	"github.com/atozfamily/homescholar/internal/research"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/server"
	"github.com/atozfamily/homescholar/internal/store"
)

const EnvPrefix = "HOMESCHOLAR"

// StoreConfig selects the database. An empty DSN with the sqlite driver
// means the default data path.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ClientConfig points the terminal wizard at a server. An empty URL runs
// the pipeline in-process.
type ClientConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

type Config struct {
	Server     server.Config     `mapstructure:"server"`
	Store      StoreConfig       `mapstructure:"store"`
	Log        logging.Config    `mapstructure:"log"`
	LLM        llm.Config        `mapstructure:"llm"`
	Search     search.Config     `mapstructure:"search"`
	Research   research.Config   `mapstructure:"research"`
	Curriculum curriculum.Config `mapstructure:"curriculum"`
	Client     ClientConfig      `mapstructure:"client"`
}

// New returns a viper instance carrying every default and reading
// HOMESCHOLAR_* variables, e.g. HOMESCHOLAR_SERVER_ADDR for server.addr.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	srv := server.DefaultConfig()
	v.SetDefault("server.addr", srv.Addr)
	v.SetDefault("server.cors_allowed_origins", srv.CorsAllowedOrigins)
	v.SetDefault("server.body_limit", srv.BodyLimit)

	v.SetDefault("store.driver", store.DriverSQLite)
	v.SetDefault("store.dsn", "")

	lg := logging.DefaultConfig()
	v.SetDefault("log.file", "")
	v.SetDefault("log.level", lg.Level)
	v.SetDefault("log.production", lg.Production)
	v.SetDefault("log.quiet", lg.Quiet)
	v.SetDefault("log.max_size_mb", lg.MaxSizeMB)
	v.SetDefault("log.max_backups", lg.MaxBackups)
	v.SetDefault("log.max_age_days", lg.MaxAgeDays)

	l := llm.DefaultConfig()
	// No default provider: an empty value triggers API key discovery.
	_ = v.BindEnv("llm.provider")
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", l.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", l.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", l.Gemini.Model)
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", l.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", "")
	v.SetDefault("llm.retry.max_attempts", l.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", l.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", l.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", l.Retry.Multiplier)

	s := search.DefaultConfig()
	v.SetDefault("search.backend", s.Backend)
	v.SetDefault("search.email", s.Email)
	v.SetDefault("search.max_results", s.MaxResults)
	v.SetDefault("search.timeout", s.Timeout)
	v.SetDefault("search.cache_ttl", s.CacheTTL)

	r := research.DefaultConfig()
	v.SetDefault("research.timeout", r.Timeout)
	v.SetDefault("research.max_tool_calls", r.MaxToolCalls)
	v.SetDefault("research.max_tokens", r.MaxTokens)
	v.SetDefault("research.temperature", r.Temperature)

	c := curriculum.DefaultConfig()
	v.SetDefault("curriculum.timeout", c.Timeout)
	v.SetDefault("curriculum.max_tokens", c.MaxTokens)
	v.SetDefault("curriculum.temperature", c.Temperature)

	v.SetDefault("client.server_url", "")
}

// Load reads .env (when present), the config file and the environment into
// a Config. configFile overrides the search for homescholar.yaml in the
// working directory and ~/.config/homescholar.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("homescholar")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "homescholar"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// Without an explicit provider, use whichever API key is present.
	if cfg.LLM.Provider == "" {
		if found, ok := llm.DiscoverConfig(cfg.LLM); ok {
			cfg.LLM = found
		} else {
			cfg.LLM.Provider = "mock"
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	switch c.Store.Driver {
	case store.DriverSQLite:
	case store.DriverPgx:
		if c.Store.DSN == "" {
			return errors.New("HOMESCHOLAR_STORE_DSN is required for the pgx driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Research.Timeout <= 0 || c.Curriculum.Timeout <= 0 {
		return errors.New("research and curriculum timeouts must be positive")
	}
	return nil
}

// StoreDSN resolves the DSN, defaulting SQLite to the per-user data file.
func (c Config) StoreDSN() (string, error) {
	if c.Store.DSN != "" || c.Store.Driver != store.DriverSQLite {
		return c.Store.DSN, nil
	}
	return store.DefaultDBPath()
}
