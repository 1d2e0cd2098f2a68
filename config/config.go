// Package config loads furiganafmt settings from defaults, an optional TOML file
// and FURIGANA_* environment variables, in increasing precedence.
package config

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "furigana.toml"

// Config is the full runtime configuration.
type Config struct {
	DictDir   string          `mapstructure:"dict_dir"`
	OutputDir string          `mapstructure:"output_dir"`
	Workers   int             `mapstructure:"workers"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Log       LogConfig       `mapstructure:"log"`
	Review    ReviewConfig    `mapstructure:"review"`
}

// FallbackConfig throttles the okurigana fallback. RatePerSecond 0 disables throttling.
type FallbackConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

type TokenizerConfig struct {
	Dictionary string `mapstructure:"dictionary"`
}

type LogConfig struct {
	JSON    bool `mapstructure:"json"`
	Verbose bool `mapstructure:"verbose"`
}

// ReviewConfig names the JSON file listing records that needed the fallback.
// An empty File disables it.
type ReviewConfig struct {
	File string `mapstructure:"file"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("dict_dir", "dicts")
	v.SetDefault("output_dir", "output")
	v.SetDefault("workers", 4)

	v.SetDefault("fallback.rate_per_second", 0.0)
	v.SetDefault("fallback.burst", 1)

	v.SetDefault("tokenizer.dictionary", "ipa")

	v.SetDefault("log.json", false)
	v.SetDefault("log.verbose", false)

	v.SetDefault("review.file", "alignment_review")
}

// NewViper returns a viper instance with defaults and environment binding.
// If path is empty, DefaultFile is read when it exists.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("FURIGANA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return v, nil
		}
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	return v, nil
}

// Load reads configuration from path (see NewViper) and validates it.
func Load(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return LoadWithViper(v)
}

// LoadWithViper unmarshals and validates configuration from v.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DictDir == "" {
		return errors.New("dict_dir cannot be empty")
	}
	if c.OutputDir == "" {
		return errors.New("output_dir cannot be empty")
	}
	if c.Workers < 1 {
		return errors.Newf("workers must be >= 1, got %d", c.Workers)
	}
	if c.Fallback.RatePerSecond < 0 {
		return errors.Newf("fallback.rate_per_second must be >= 0, got %f", c.Fallback.RatePerSecond)
	}
	if c.Fallback.RatePerSecond > 0 && c.Fallback.Burst < 1 {
		return errors.Newf("fallback.burst must be >= 1 when throttling, got %d", c.Fallback.Burst)
	}
	switch c.Tokenizer.Dictionary {
	case "ipa", "uni":
	default:
		return errors.Newf("tokenizer.dictionary must be ipa or uni, got %q", c.Tokenizer.Dictionary)
	}
	return nil
}
