package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/Lfy181/sea-daily-briefing/internal/logging"
	"github.com/Lfy181/sea-daily-briefing/internal/monitor"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	History  HistoryConfig  `mapstructure:"history"`
	Database DatabaseConfig `mapstructure:"database"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Pairs    []PairConfig   `mapstructure:"pairs"`
	Juhe     JuheConfig     `mapstructure:"juhe"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HistoryConfig locates the baseline history file.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity for the audit trail.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MonitorConfig holds the global anomaly-detection parameters.
type MonitorConfig struct {
	ThresholdPct float64 `mapstructure:"threshold_pct"`
	RateMin      float64 `mapstructure:"rate_min"`
	RateMax      float64 `mapstructure:"rate_max"`
}

// PairConfig 描述一个被监控的货币对，阈值与合理范围可按对覆盖。
type PairConfig struct {
	Base         string   `mapstructure:"base"`
	Quote        string   `mapstructure:"quote"`
	ThresholdPct *float64 `mapstructure:"threshold_pct"`
	RateMin      *float64 `mapstructure:"rate_min"`
	RateMax      *float64 `mapstructure:"rate_max"`
}

// Pair returns the monitored pair identifier.
func (p PairConfig) Pair() monitor.Pair {
	return monitor.Pair{Base: p.Base, Quote: p.Quote}
}

// JuheConfig captures Juhe onebox currency API connectivity.
type JuheConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RequestsPerSec  int           `mapstructure:"requests_per_sec"`
	MaxRetryElapsed time.Duration `mapstructure:"max_retry_elapsed"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Channels []string       `mapstructure:"channels"`
	DingTalk DingTalkConfig `mapstructure:"dingtalk"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// DingTalkConfig 描述钉钉群机器人 webhook 参数。
type DingTalkConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Webhook string        `mapstructure:"webhook"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SEABRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindLegacyEnv(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fxmonitor")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("history.path", "data/exchange_history.json")

	v.SetDefault("monitor.threshold_pct", 5.0)
	v.SetDefault("monitor.rate_min", 0.01)
	v.SetDefault("monitor.rate_max", 10000.0)

	// 东南亚四国货币对（人民币基准）。
	v.SetDefault("pairs", []map[string]any{
		{"base": "CNY", "quote": "PHP"},
		{"base": "CNY", "quote": "IDR"},
		{"base": "CNY", "quote": "VND"},
		{"base": "CNY", "quote": "MYR"},
	})

	v.SetDefault("juhe.base_url", "http://op.juhe.cn/onebox/exchange/currency")
	v.SetDefault("juhe.timeout", "10s")
	v.SetDefault("juhe.requests_per_sec", 2)
	v.SetDefault("juhe.max_retry_elapsed", "30s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.channels", []string{"dingtalk"})
	v.SetDefault("alerting.dingtalk.enabled", false)
	v.SetDefault("alerting.dingtalk.timeout", "10s")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

// bindLegacyEnv keeps the original deployment's environment names working.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("juhe.api_key", "SEABRIEF_JUHE_API_KEY", "JUHE_API_KEY")
	_ = v.BindEnv("alerting.dingtalk.webhook", "SEABRIEF_ALERTING_DINGTALK_WEBHOOK", "DINGTALK_WEBHOOK")
	_ = v.BindEnv("alerting.telegram.bot_token", "SEABRIEF_ALERTING_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty")
	}
	if c.Monitor.ThresholdPct < 0 {
		return fmt.Errorf("monitor.threshold_pct cannot be negative")
	}
	if c.Monitor.RateMin <= 0 || c.Monitor.RateMax <= c.Monitor.RateMin {
		return fmt.Errorf("monitor rate range invalid: min=%v max=%v", c.Monitor.RateMin, c.Monitor.RateMax)
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("至少需要配置一个货币对")
	}
	for i, pair := range c.Pairs {
		if pair.Base == "" || pair.Quote == "" {
			return fmt.Errorf("pairs[%d]: base 与 quote 必须配置", i)
		}
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.DingTalk.Enabled && c.Alerting.DingTalk.Webhook == "" {
		return fmt.Errorf("alerting.dingtalk.webhook 必须配置")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// EvaluatorConfig resolves the effective evaluation parameters for one pair,
// applying per-pair overrides on top of the global monitor settings.
func (c *Config) EvaluatorConfig(pair PairConfig) monitor.Config {
	threshold := c.Monitor.ThresholdPct
	if pair.ThresholdPct != nil {
		threshold = *pair.ThresholdPct
	}
	rateMin := c.Monitor.RateMin
	if pair.RateMin != nil {
		rateMin = *pair.RateMin
	}
	rateMax := c.Monitor.RateMax
	if pair.RateMax != nil {
		rateMax = *pair.RateMax
	}

	return monitor.Config{
		ThresholdPct: decimal.NewFromFloat(threshold),
		RateMin:      decimal.NewFromFloat(rateMin),
		RateMax:      decimal.NewFromFloat(rateMax),
	}
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
