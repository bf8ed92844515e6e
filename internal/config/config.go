// Package config provides configuration loading and validation.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration. It is built once at startup
// by Load and handed to every module by reference; nothing mutates it
// afterward.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFile     string `mapstructure:"log_file"`
	TradeLogFile string `mapstructure:"trade_log_file"`
	Mode        string `mapstructure:"-"` // "auto" or "monitor", set from the -mode flag
}

// ExchangeConfig holds the venue connection and credential settings.
type ExchangeConfig struct {
	RESTBaseURL    string `mapstructure:"rest_base_url"`
	WSBaseURL      string `mapstructure:"ws_base_url"`
	APIKey         string `mapstructure:"api_key"`
	SecretKey      string `mapstructure:"secret_key"`
	Passphrase     string `mapstructure:"passphrase"`
	Sandbox        bool   `mapstructure:"-"` // derived from the "flag" key ("1" == sandbox)
	SandboxFlagRaw string `mapstructure:"flag"`
}

// PathStepConfig is one leg of a configured arbitrage path.
type PathStepConfig struct {
	Pair   string `json:"pair"`
	Action string `json:"action"`
}

// PathConfig is a single `path*`-keyed cycle definition.
type PathConfig struct {
	Route string           `json:"route"`
	Steps []PathStepConfig `json:"steps"`
}

// TradingConfig holds fee/slippage/profit thresholds, seed balances, and
// the configured arbitrage paths.
type TradingConfig struct {
	InitialBalances        map[string]decimal.Decimal `mapstructure:"-"`
	FeeRate                float64                    `mapstructure:"fee_rate"`
	FeeRateOverrides       map[string]float64         `mapstructure:"-"`
	SlippageTolerance      float64                    `mapstructure:"slippage_tolerance"`
	MinProfitThreshold     float64                    `mapstructure:"min_profit_threshold"`
	OrderTimeoutSeconds    float64                    `mapstructure:"order_timeout"`
	MinTradeAmount         float64                    `mapstructure:"min_trade_amount"`
	MonitorIntervalSeconds float64                    `mapstructure:"monitor_interval"`

	FreshnessBudgetMS        float64 `mapstructure:"freshness_budget_ms"`
	OpportunityMaxAgeSeconds float64 `mapstructure:"opportunity_max_age"`
	QuantityStep             float64 `mapstructure:"quantity_step"`
	PriceStep                float64 `mapstructure:"price_step"`
	DustThreshold            float64 `mapstructure:"dust_threshold"`
	MaxProfitRateThreshold   float64 `mapstructure:"max_profit_rate_threshold"`
	MaxPriceSpread           float64 `mapstructure:"max_price_spread"`
	MaxStablecoinSpread      float64 `mapstructure:"max_stablecoin_spread"`
	StablecoinPriceRangeMin  float64 `mapstructure:"stablecoin_price_range_min"`
	StablecoinPriceRangeMax  float64 `mapstructure:"stablecoin_price_range_max"`

	Paths []PathConfig `mapstructure:"-"`
}

// OrderTimeout returns the per-leg order timeout as a time.Duration.
func (c *TradingConfig) OrderTimeout() time.Duration {
	return time.Duration(c.OrderTimeoutSeconds * float64(time.Second))
}

// MonitorInterval returns the scan interval as a time.Duration.
func (c *TradingConfig) MonitorInterval() time.Duration {
	return time.Duration(c.MonitorIntervalSeconds * float64(time.Second))
}

// FreshnessBudget returns the maximum permitted order-book age for
// execution-path decisions.
func (c *TradingConfig) FreshnessBudget() time.Duration {
	return time.Duration(c.FreshnessBudgetMS) * time.Millisecond
}

// OpportunityMaxAge returns how long an evaluated opportunity remains
// actionable before the risk gate rejects it as expired.
func (c *TradingConfig) OpportunityMaxAge() time.Duration {
	return time.Duration(c.OpportunityMaxAgeSeconds * float64(time.Second))
}

// FeeRateFor returns the per-pair fee rate override if one exists, else the
// global FeeRate.
func (c *TradingConfig) FeeRateFor(pair string) decimal.Decimal {
	if r, ok := c.FeeRateOverrides[pair]; ok {
		return decimal.NewFromFloat(r)
	}
	return decimal.NewFromFloat(c.FeeRate)
}

// RiskConfig holds position sizing and loss-limit thresholds.
type RiskConfig struct {
	MaxPositionRatio       float64 `mapstructure:"max_position_ratio"`
	MaxSingleTradeRatio    float64 `mapstructure:"max_single_trade_ratio"`
	MinArbitrageIntervalS  float64 `mapstructure:"min_arbitrage_interval"`
	MaxDailyTrades         int     `mapstructure:"max_daily_trades"`
	MaxDailyLossRatio      float64 `mapstructure:"max_daily_loss_ratio"`
	StopLossRatio          float64 `mapstructure:"stop_loss_ratio"`
	NetworkRetryCount      int     `mapstructure:"network_retry_count"`
	NetworkRetryDelayS     float64 `mapstructure:"network_retry_delay"`
}

// MinArbitrageInterval returns the cooldown after any execution attempt,
// whatever its route.
func (c *RiskConfig) MinArbitrageInterval() time.Duration {
	return time.Duration(c.MinArbitrageIntervalS * float64(time.Second))
}

// NetworkRetryDelay returns the REST retry backoff as a time.Duration.
func (c *RiskConfig) NetworkRetryDelay() time.Duration {
	return time.Duration(c.NetworkRetryDelayS * float64(time.Second))
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// recognizedKeys is the full set of keys Validate accepts, used to fail
// fast on typos and stale keys from a previous deployment.
var recognizedKeys = map[string]bool{
	"app.name": true, "app.environment": true, "app.log_level": true, "app.log_file": true,
	"app.trade_log_file": true,

	"exchange.rest_base_url": true, "exchange.ws_base_url": true,
	"exchange.api_key": true, "exchange.secret_key": true,
	"exchange.passphrase": true, "exchange.flag": true,

	"trading.fee_rate": true, "trading.slippage_tolerance": true,
	"trading.min_profit_threshold": true, "trading.order_timeout": true,
	"trading.min_trade_amount": true, "trading.monitor_interval": true,
	"trading.freshness_budget_ms": true, "trading.opportunity_max_age": true,
	"trading.quantity_step": true, "trading.price_step": true, "trading.dust_threshold": true,
	"trading.max_profit_rate_threshold": true, "trading.max_price_spread": true,
	"trading.max_stablecoin_spread": true,
	"trading.stablecoin_price_range_min": true, "trading.stablecoin_price_range_max": true,
	"trading.price_adjustment": true, // deprecated alias for slippage_tolerance

	"risk.max_position_ratio": true, "risk.max_single_trade_ratio": true,
	"risk.min_arbitrage_interval": true, "risk.max_daily_trades": true,
	"risk.max_daily_loss_ratio": true, "risk.stop_loss_ratio": true,
	"risk.network_retry_count": true, "risk.network_retry_delay": true,

	"telemetry.enabled": true, "telemetry.service_name": true,
	"telemetry.otlp_endpoint": true, "telemetry.otlp_headers": true,
	"telemetry.prometheus_port": true,
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()
	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := checkUnknownKeys(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Exchange.Sandbox = cfg.Exchange.SandboxFlagRaw == "1"
	cfg.Trading.InitialBalances = parseInitialBalances(v)
	cfg.Trading.FeeRateOverrides = parseFeeRateOverrides(v)

	paths, err := parsePaths(v)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Trading.Paths = paths

	applyDeprecatedAliases(v, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.log_file", "ARB_LOG_FILE", "LOG_FILE")

	v.BindEnv("exchange.rest_base_url", "ARB_EXCHANGE_REST_URL")
	v.BindEnv("exchange.ws_base_url", "ARB_EXCHANGE_WS_URL")
	v.BindEnv("exchange.api_key", "ARB_API_KEY", "API_KEY")
	v.BindEnv("exchange.secret_key", "ARB_SECRET_KEY", "SECRET_KEY")
	v.BindEnv("exchange.passphrase", "ARB_PASSPHRASE", "PASSPHRASE")
	v.BindEnv("exchange.flag", "ARB_SANDBOX_FLAG", "FLAG")

	v.BindEnv("trading.fee_rate", "ARB_FEE_RATE")
	v.BindEnv("trading.slippage_tolerance", "ARB_SLIPPAGE_TOLERANCE")
	v.BindEnv("trading.min_profit_threshold", "ARB_MIN_PROFIT_THRESHOLD")

	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "triangular-arbitrage-bot")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.trade_log_file", "tradelog.jsonl")

	v.SetDefault("exchange.rest_base_url", "https://api.exchange.example")
	v.SetDefault("exchange.ws_base_url", "wss://stream.exchange.example")

	v.SetDefault("trading.fee_rate", 0.001)
	v.SetDefault("trading.slippage_tolerance", 0.002)
	v.SetDefault("trading.min_profit_threshold", 0.003)
	v.SetDefault("trading.order_timeout", 3)
	v.SetDefault("trading.min_trade_amount", 10.0)
	v.SetDefault("trading.monitor_interval", 1)
	v.SetDefault("trading.freshness_budget_ms", 500.0)
	v.SetDefault("trading.opportunity_max_age", 5.0)
	v.SetDefault("trading.quantity_step", 0.000001)
	v.SetDefault("trading.price_step", 0.01)
	v.SetDefault("trading.dust_threshold", 0.00001)

	v.SetDefault("risk.max_position_ratio", 0.2)
	v.SetDefault("risk.max_single_trade_ratio", 0.1)
	v.SetDefault("risk.min_arbitrage_interval", 10)
	v.SetDefault("risk.max_daily_trades", 100)
	v.SetDefault("risk.max_daily_loss_ratio", 0.05)
	v.SetDefault("risk.stop_loss_ratio", 0.1)
	v.SetDefault("risk.network_retry_count", 3)
	v.SetDefault("risk.network_retry_delay", 1)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "triangular-arbitrage-bot")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// checkUnknownKeys fails fast on any key present in the file/env that
// Validate does not recognize. initial_<asset>, fee_rate_<pair>, and path*
// are dynamic prefixes handled separately.
func checkUnknownKeys(v *viper.Viper) error {
	for _, key := range v.AllKeys() {
		if recognizedKeys[key] {
			continue
		}
		if strings.HasPrefix(key, "trading.initial_") {
			continue
		}
		if strings.HasPrefix(key, "trading.fee_rate_") {
			continue
		}
		if strings.HasPrefix(key, "trading.path") {
			continue
		}
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func parseInitialBalances(v *viper.Viper) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, key := range v.AllKeys() {
		if !strings.HasPrefix(key, "trading.initial_") {
			continue
		}
		asset := strings.ToUpper(strings.TrimPrefix(key, "trading.initial_"))
		out[asset] = decimal.NewFromFloat(v.GetFloat64(key))
	}
	return out
}

func parseFeeRateOverrides(v *viper.Viper) map[string]float64 {
	out := make(map[string]float64)
	for _, key := range v.AllKeys() {
		if !strings.HasPrefix(key, "trading.fee_rate_") || key == "trading.fee_rate" {
			continue
		}
		pair := strings.ToUpper(strings.TrimPrefix(key, "trading.fee_rate_"))
		out[pair] = v.GetFloat64(key)
	}
	return out
}

func parsePaths(v *viper.Viper) ([]PathConfig, error) {
	var out []PathConfig
	for _, key := range v.AllKeys() {
		if !strings.HasPrefix(key, "trading.path") {
			continue
		}
		raw := v.GetString(key)
		if raw == "" {
			continue
		}
		var p PathConfig
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("%s: malformed path JSON: %w", key, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// applyDeprecatedAliases maps price_adjustment onto slippage_tolerance with
// a warning. The warning is logged whenever the legacy key is set; the
// substitution is only performed when the new key was left at its default.
func applyDeprecatedAliases(v *viper.Viper, cfg *Config) {
	if v.IsSet("trading.price_adjustment") {
		log.Printf("config: trading.price_adjustment is deprecated, use trading.slippage_tolerance")
	}
	if v.IsSet("trading.price_adjustment") && !v.IsSet("trading.slippage_tolerance") {
		cfg.Trading.SlippageTolerance = v.GetFloat64("trading.price_adjustment")
	}
}

// Validate validates the configuration, failing fast on out-of-range
// values. Unknown-key rejection happens earlier, in Load, while the raw
// viper keys are still available.
func (c *Config) Validate() error {
	if c.Exchange.RESTBaseURL == "" {
		return fmt.Errorf("exchange.rest_base_url is required")
	}
	if c.Exchange.WSBaseURL == "" {
		return fmt.Errorf("exchange.ws_base_url is required")
	}
	if c.Trading.FeeRate < 0 || c.Trading.FeeRate > 1 {
		return fmt.Errorf("trading.fee_rate must be within [0,1]")
	}
	if c.Trading.SlippageTolerance < 0 || c.Trading.SlippageTolerance > 0.02 {
		return fmt.Errorf("trading.slippage_tolerance must be within [0,0.02]")
	}
	if c.Trading.MinProfitThreshold < 0 || c.Trading.MinProfitThreshold > 0.05 {
		return fmt.Errorf("trading.min_profit_threshold must be within [0,0.05]")
	}
	if c.Trading.OrderTimeoutSeconds < 0 || c.Trading.OrderTimeoutSeconds > 60 {
		return fmt.Errorf("trading.order_timeout must be within [0,60]")
	}
	if c.Trading.MinTradeAmount <= 0 {
		return fmt.Errorf("trading.min_trade_amount must be > 0")
	}
	if c.Trading.MonitorIntervalSeconds <= 0 {
		return fmt.Errorf("trading.monitor_interval must be > 0")
	}
	if c.Trading.FreshnessBudgetMS <= 0 || c.Trading.FreshnessBudgetMS > 60000 {
		return fmt.Errorf("trading.freshness_budget_ms must be within (0,60000]")
	}
	if c.Trading.OpportunityMaxAgeSeconds <= 0 || c.Trading.OpportunityMaxAgeSeconds > 60 {
		return fmt.Errorf("trading.opportunity_max_age must be within (0,60]")
	}
	if c.Trading.QuantityStep <= 0 {
		return fmt.Errorf("trading.quantity_step must be > 0")
	}
	if c.Trading.PriceStep <= 0 {
		return fmt.Errorf("trading.price_step must be > 0")
	}
	if c.Trading.DustThreshold < 0 {
		return fmt.Errorf("trading.dust_threshold must be >= 0")
	}
	if c.Risk.MaxPositionRatio < 0 || c.Risk.MaxPositionRatio > 1 {
		return fmt.Errorf("risk.max_position_ratio must be within [0,1]")
	}
	if c.Risk.MaxSingleTradeRatio < 0 || c.Risk.MaxSingleTradeRatio > 1 {
		return fmt.Errorf("risk.max_single_trade_ratio must be within [0,1]")
	}
	if c.Risk.MinArbitrageIntervalS < 0 || c.Risk.MinArbitrageIntervalS > 3600 {
		return fmt.Errorf("risk.min_arbitrage_interval must be within [0,3600]")
	}
	if c.Risk.MaxDailyTrades < 1 || c.Risk.MaxDailyTrades > 10000 {
		return fmt.Errorf("risk.max_daily_trades must be within [1,10000]")
	}
	if c.Risk.MaxDailyLossRatio < 0 || c.Risk.MaxDailyLossRatio > 1 {
		return fmt.Errorf("risk.max_daily_loss_ratio must be within [0,1]")
	}
	if c.Risk.StopLossRatio < 0 || c.Risk.StopLossRatio > 1 {
		return fmt.Errorf("risk.stop_loss_ratio must be within [0,1]")
	}
	if c.Risk.NetworkRetryCount < 0 || c.Risk.NetworkRetryCount > 10 {
		return fmt.Errorf("risk.network_retry_count must be within [0,10]")
	}
	for _, p := range c.Trading.Paths {
		if p.Route == "" || len(p.Steps) == 0 {
			return fmt.Errorf("path definition missing route or steps: %+v", p)
		}
	}
	return nil
}
