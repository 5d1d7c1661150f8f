// Package config loads application configuration from YAML and environment
// and initializes the global logger.
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
	Mapa   MapaConfig   `yaml:"mapa" mapstructure:"mapa"`
	COP    COPConfig    `yaml:"cop" mapstructure:"cop"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// MapaConfig configures the mapa-puntos-interes remote.
type MapaConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateBurst    int     `yaml:"rate_burst" mapstructure:"rate_burst"`

	// Circuit breaker over remote calls. Zero threshold disables it.
	BreakerFailureThreshold int `yaml:"breaker_failure_threshold" mapstructure:"breaker_failure_threshold"`
	BreakerResetSecs        int `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// COPConfig configures the fusion engine.
type COPConfig struct {
	AutoSync           bool    `yaml:"auto_sync" mapstructure:"auto_sync"`
	AutoLoad           bool    `yaml:"auto_load" mapstructure:"auto_load"`
	DistanceThresholdM float64 `yaml:"distance_threshold_m" mapstructure:"distance_threshold_m"`
	TimeWindowSecs     float64 `yaml:"time_window_secs" mapstructure:"time_window_secs"`
	SyncParallelism    int     `yaml:"sync_parallelism" mapstructure:"sync_parallelism"`
}

// ServerConfig configures the HTTP tool server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("COPFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	for key, val := range Defaults() {
		v.SetDefault(key, val)
	}

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

// Defaults returns the default configuration values keyed by viper path.
func Defaults() map[string]any {
	return map[string]any{
		"mapa.base_url":                  "http://localhost:3000",
		"mapa.timeout_secs":              5,
		"mapa.rate_limit_rps":            20.0,
		"mapa.rate_burst":                20,
		"mapa.breaker_failure_threshold": 5,
		"mapa.breaker_reset_secs":        30,
		"cop.auto_sync":                  true,
		"cop.auto_load":                  false,
		"cop.distance_threshold_m":       500.0,
		"cop.time_window_secs":           300.0,
		"cop.sync_parallelism":           4,
		"server.port":                    8011,
		"log.level":                      "info",
		"log.format":                     "json",
	}
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
