// Package config loads autotrade settings from a YAML file, defaults and AUTOTRADE_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUTOTRADE_TRADING_MAGIC.
const EnvPrefix = "AUTOTRADE"

type Config struct {
	Trading     TradingConfig     `mapstructure:"trading" yaml:"trading"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring" yaml:"monitoring"`
	Annotations AnnotationsConfig `mapstructure:"annotations" yaml:"annotations"`
	Venue       VenueConfig       `mapstructure:"venue" yaml:"venue"`
	Advisory    AdvisoryConfig    `mapstructure:"advisory" yaml:"advisory"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Notify      NotifyConfig      `mapstructure:"notify" yaml:"notify"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Report      ReportConfig      `mapstructure:"report" yaml:"report"`
}

type TradingConfig struct {
	// Magic is stamped on every order this system places.
	Magic              int64   `mapstructure:"magic" yaml:"magic" validate:"gt=0"`
	Deviation          int     `mapstructure:"deviation" yaml:"deviation" validate:"gte=0"`
	SafetyBufferPoints float64 `mapstructure:"safety_buffer_points" yaml:"safety_buffer_points" validate:"gte=0"`
}

type MonitoringConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval" validate:"gt=0"`
	PriceCacheTTL time.Duration `mapstructure:"price_cache_ttl" yaml:"price_cache_ttl" validate:"gte=0"`
	ClosePause    time.Duration `mapstructure:"close_pause" yaml:"close_pause" validate:"gte=0"`
	ErrorBackoff  time.Duration `mapstructure:"error_backoff" yaml:"error_backoff" validate:"gte=0"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout" yaml:"stop_timeout" validate:"gt=0"`
}

type AnnotationsConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=duckdb postgres"`
	Path   string `mapstructure:"path" yaml:"path" validate:"required_if=Driver duckdb"`
	DSN    string `mapstructure:"dsn" yaml:"dsn" validate:"required_if=Driver postgres"`
}

type VenueConfig struct {
	Provider  string        `mapstructure:"provider" yaml:"provider" validate:"oneof=paper bridge binance-paper binance-live"`
	BridgeURL string        `mapstructure:"bridge_url" yaml:"bridge_url" validate:"omitempty,url"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	APIKey    string        `mapstructure:"api_key" yaml:"api_key"`
	SecretKey string        `mapstructure:"secret_key" yaml:"secret_key"`
	// QuoteAsset is the Binance asset balances are priced in.
	QuoteAsset string `mapstructure:"quote_asset" yaml:"quote_asset"`
	// PaperSeed is a YAML file with symbols, quotes and positions for the paper venue.
	PaperSeed string `mapstructure:"paper_seed" yaml:"paper_seed"`
}

type AdvisoryConfig struct {
	BaseURL         string        `mapstructure:"base_url" yaml:"base_url" validate:"omitempty,url"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	Model           string        `mapstructure:"model" yaml:"model"`
	Temperature     float64       `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens       int           `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gt=0"`
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries" validate:"gte=1"`
	DefaultInterval time.Duration `mapstructure:"default_interval" yaml:"default_interval" validate:"gt=0"`
	MinInterval     time.Duration `mapstructure:"min_interval" yaml:"min_interval" validate:"gt=0"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval" validate:"gtefield=MinInterval"`
	// PromptDir holds system.txt and user.txt for the cadence loop.
	PromptDir string `mapstructure:"prompt_dir" yaml:"prompt_dir"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type NotifyConfig struct {
	TelegramToken  string `mapstructure:"telegram_token" yaml:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id" yaml:"telegram_chat_id"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

type ReportConfig struct {
	// Dir receives one YAML report per executed plan. Empty disables reports.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	v := newViper()

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)

	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("trading.magic", 100001)
	v.SetDefault("trading.deviation", 10)
	v.SetDefault("trading.safety_buffer_points", 5.0)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.poll_interval", time.Second)
	v.SetDefault("monitoring.price_cache_ttl", 500*time.Millisecond)
	v.SetDefault("monitoring.close_pause", 2*time.Second)
	v.SetDefault("monitoring.error_backoff", 5*time.Second)
	v.SetDefault("monitoring.stop_timeout", 5*time.Second)

	v.SetDefault("annotations.driver", "duckdb")
	v.SetDefault("annotations.path", "data/annotations.duckdb")
	v.SetDefault("annotations.dsn", "")

	v.SetDefault("venue.provider", "paper")
	v.SetDefault("venue.bridge_url", "http://127.0.0.1:8787")
	v.SetDefault("venue.timeout", 15*time.Second)
	v.SetDefault("venue.api_key", "")
	v.SetDefault("venue.secret_key", "")
	v.SetDefault("venue.quote_asset", "USDT")
	v.SetDefault("venue.paper_seed", "")

	v.SetDefault("advisory.base_url", "https://api.openai.com/v1")
	v.SetDefault("advisory.api_key", "")
	v.SetDefault("advisory.model", "")
	v.SetDefault("advisory.temperature", 1.0)
	v.SetDefault("advisory.max_tokens", 2000)
	v.SetDefault("advisory.timeout", 60*time.Second)
	v.SetDefault("advisory.max_retries", 3)
	v.SetDefault("advisory.default_interval", 60*time.Second)
	v.SetDefault("advisory.min_interval", 30*time.Second)
	v.SetDefault("advisory.max_interval", time.Hour)
	v.SetDefault("advisory.prompt_dir", "prompts")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("notify.telegram_token", "")
	v.SetDefault("notify.telegram_chat_id", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("report.dir", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads path (optional, YAML) on top of the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	return nil
}
