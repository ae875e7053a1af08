package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Matching MatchingConfig `yaml:"matching" mapstructure:"matching"`
	Brands   BrandsConfig   `yaml:"brands" mapstructure:"brands"`
	Feeds    FeedsConfig    `yaml:"feeds" mapstructure:"feeds"`
	Sweep    SweepConfig    `yaml:"sweep" mapstructure:"sweep"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// MatchingConfig tunes brand matching thresholds.
type MatchingConfig struct {
	SuggestThreshold float64 `yaml:"suggest_threshold" mapstructure:"suggest_threshold"`
	ResolveThreshold float64 `yaml:"resolve_threshold" mapstructure:"resolve_threshold"`
	MaxSuggestions   int     `yaml:"max_suggestions" mapstructure:"max_suggestions"`
}

// BrandsConfig configures the brand corpus sources.
type BrandsConfig struct {
	StaticPath    string `yaml:"static_path" mapstructure:"static_path"`
	RetentionDays int    `yaml:"retention_days" mapstructure:"retention_days"`
}

// FeedsConfig configures recall corpus file ingestion.
type FeedsConfig struct {
	Dir       string   `yaml:"dir" mapstructure:"dir"`
	Countries []string `yaml:"countries" mapstructure:"countries"`
}

// SweepConfig configures the corpus re-check sweep.
type SweepConfig struct {
	Concurrency  int  `yaml:"concurrency" mapstructure:"concurrency"`
	AllowRescind bool `yaml:"allow_rescind" mapstructure:"allow_rescind"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RatePerSecond  float64  `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "recall.db")
	v.SetDefault("matching.suggest_threshold", 0.6)
	v.SetDefault("matching.resolve_threshold", 0.7)
	v.SetDefault("matching.max_suggestions", 5)
	v.SetDefault("brands.static_path", "brands.yaml")
	v.SetDefault("brands.retention_days", 180)
	v.SetDefault("feeds.dir", "feeds")
	v.SetDefault("sweep.concurrency", 8)
	v.SetDefault("sweep.allow_rescind", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
