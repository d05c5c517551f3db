// Package ops loads and validates the runtime configuration.
package ops

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/Xtley001/front-run-vanilla/internal/execution"
	"github.com/Xtley001/front-run-vanilla/internal/risk"
	"github.com/Xtley001/front-run-vanilla/internal/trader"
)

// DefaultPath is used when CONFIG_FILE is not set.
const DefaultPath = "config/production.toml"

// Config mirrors the TOML layout.
type Config struct {
	General        GeneralConfig        `toml:"general"`
	Strategy       StrategyConfig       `toml:"strategy"`
	PositionSizing PositionSizingConfig `toml:"position_sizing"`
	Risk           RiskConfig           `toml:"risk"`
	Exchange       ExchangeConfig       `toml:"exchange"`
	Latency        LatencyConfig        `toml:"latency"`
	Logging        LoggingConfig        `toml:"logging"`
	Metrics        MetricsConfig        `toml:"metrics"`
	Profiling      ProfilingConfig      `toml:"profiling"`
	Journal        JournalConfig        `toml:"journal"`
}

type GeneralConfig struct {
	Symbol        string `toml:"symbol"`
	BaseCurrency  string `toml:"base_currency"`
	QuoteCurrency string `toml:"quote_currency"`
	Environment   string `toml:"environment"`
}

type StrategyConfig struct {
	Name                 string  `toml:"name"`
	Enabled              bool    `toml:"enabled"`
	ImbalanceLevels      int     `toml:"imbalance_levels"`
	ImbalanceWindow      int     `toml:"imbalance_window"`
	ImbalanceThreshold   float64 `toml:"imbalance_threshold"`
	FlowWindow           int     `toml:"flow_window"`
	FlowTimeWindowMs     int64   `toml:"flow_time_window_ms"`
	FlowThreshold        float64 `toml:"flow_threshold"`
	PrimaryThreshold     float64 `toml:"primary_threshold"`
	ConfirmingThreshold  float64 `toml:"confirming_threshold"`
	MinConfirmingSignals int     `toml:"min_confirming_signals"`
	TakeProfitPct        float64 `toml:"take_profit_pct"`
	StopLossPct          float64 `toml:"stop_loss_pct"`
	MaxHoldTimeMs        int64   `toml:"max_hold_time_ms"`
	SignalEvery          int     `toml:"signal_check_every_updates"`
}

type PositionSizingConfig struct {
	BaseNotionalUSD float64 `toml:"base_notional_usd"`
	MaxPositionUSD  float64 `toml:"max_position_usd"`
}

type RiskConfig struct {
	MaxPortfolioExposureUSD float64 `toml:"max_portfolio_exposure_usd"`
	MaxDailyLossUSD         float64 `toml:"max_daily_loss_usd"`
	MaxDrawdownPct          float64 `toml:"max_drawdown_pct"`
	MaxTradesPerHour        int     `toml:"max_trades_per_hour"`
	MaxTradesPerDay         int     `toml:"max_trades_per_day"`
	InitialEquityUSD        float64 `toml:"initial_equity_usd"`
}

type ExchangeConfig struct {
	Name        string `toml:"name"`
	Testnet     bool   `toml:"testnet"`
	APIEndpoint string `toml:"api_endpoint"`
	WSEndpoint  string `toml:"ws_endpoint"`
}

type LatencyConfig struct {
	MaxAcceptableLatencyMs int64 `toml:"max_acceptable_latency_ms"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
}

type ProfilingConfig struct {
	Enabled       bool   `toml:"enabled"`
	ServerAddress string `toml:"server_address"`
}

type JournalConfig struct {
	Enabled  bool   `toml:"enabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Database string `toml:"database"`
}

// Default returns a runnable testnet configuration.
func Default() Config {
	return Config{
		General: GeneralConfig{
			Symbol:        "BTCUSDT",
			BaseCurrency:  "BTC",
			QuoteCurrency: "USDT",
			Environment:   "testnet",
		},
		Strategy: StrategyConfig{
			Name:                 "front-run-vanilla",
			Enabled:              true,
			ImbalanceLevels:      5,
			ImbalanceWindow:      100,
			ImbalanceThreshold:   3.0,
			FlowWindow:           20,
			FlowTimeWindowMs:     5000,
			FlowThreshold:        0.6,
			PrimaryThreshold:     3.0,
			ConfirmingThreshold:  1.5,
			MinConfirmingSignals: 2,
			TakeProfitPct:        0.3,
			StopLossPct:          0.15,
			MaxHoldTimeMs:        30_000,
			SignalEvery:          10,
		},
		PositionSizing: PositionSizingConfig{
			BaseNotionalUSD: 1000,
			MaxPositionUSD:  5000,
		},
		Risk: RiskConfig{
			MaxPortfolioExposureUSD: 10000,
			MaxDailyLossUSD:         500,
			MaxDrawdownPct:          10,
			MaxTradesPerHour:        30,
			MaxTradesPerDay:         200,
			InitialEquityUSD:        10000,
		},
		Exchange: ExchangeConfig{
			Name:        "binance-futures",
			Testnet:     true,
			APIEndpoint: "https://testnet.binancefuture.com",
			WSEndpoint:  "wss://stream.binancefuture.com",
		},
		Latency: LatencyConfig{
			MaxAcceptableLatencyMs: 500,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Metrics: MetricsConfig{
			Enabled:     true,
			BindAddress: ":9090",
		},
	}
}

// Load reads a TOML file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromEnv resolves the config path from CONFIG_FILE.
func LoadFromEnv() (Config, error) {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	if c.General.Symbol == "" {
		return errors.New("config: general.symbol required")
	}
	if c.Strategy.ImbalanceWindow <= 0 {
		return errors.New("config: strategy.imbalance_window must be positive")
	}
	if c.Strategy.ImbalanceThreshold <= 0 {
		return errors.New("config: strategy.imbalance_threshold must be positive")
	}
	if c.Strategy.FlowThreshold <= 0 || c.Strategy.FlowThreshold > 1 {
		return errors.New("config: strategy.flow_threshold must be in (0, 1]")
	}
	if c.PositionSizing.BaseNotionalUSD <= 0 {
		return errors.New("config: position_sizing.base_notional_usd must be positive")
	}
	if c.Risk.MaxDailyLossUSD <= 0 {
		return errors.New("config: risk.max_daily_loss_usd must be positive")
	}
	if c.Exchange.APIEndpoint == "" || c.Exchange.WSEndpoint == "" {
		return errors.New("config: exchange endpoints required")
	}
	return nil
}

// RiskLimits maps the config onto circuit breaker limits.
func (c Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxPositionSize:      decimal.NewFromFloat(c.PositionSizing.MaxPositionUSD),
		MaxPortfolioExposure: decimal.NewFromFloat(c.Risk.MaxPortfolioExposureUSD),
		MaxDailyLoss:         decimal.NewFromFloat(c.Risk.MaxDailyLossUSD),
		MaxDrawdownPercent:   decimal.NewFromFloat(c.Risk.MaxDrawdownPct),
		MaxTradesPerHour:     c.Risk.MaxTradesPerHour,
		MaxTradesPerDay:      c.Risk.MaxTradesPerDay,
		MaxLatency:           time.Duration(c.Latency.MaxAcceptableLatencyMs) * time.Millisecond,
	}
}

// ExecutionConfig maps the config onto the execution engine settings.
func (c Config) ExecutionConfig() execution.Config {
	return execution.Config{
		Symbol:            c.General.Symbol,
		BasePositionSize:  decimal.NewFromFloat(c.PositionSizing.BaseNotionalUSD),
		TakerFeeRate:      decimal.NewFromFloat(0.0004),
		TakeProfitPercent: decimal.NewFromFloat(c.Strategy.TakeProfitPct),
		StopLossPercent:   decimal.NewFromFloat(c.Strategy.StopLossPct),
		MaxHold:           time.Duration(c.Strategy.MaxHoldTimeMs) * time.Millisecond,
	}
}

// TraderConfig maps the config onto the decision loop settings.
func (c Config) TraderConfig() trader.Config {
	cfg := trader.DefaultConfig(c.General.Symbol)
	if c.Strategy.SignalEvery > 0 {
		cfg.SignalEvery = c.Strategy.SignalEvery
	}
	cfg.MinConfirming = c.Strategy.MinConfirmingSignals
	return cfg
}

// Credentials reads the exchange API keys from the environment. Keys
// never live in the config file.
type Credentials struct {
	APIKey    string
	SecretKey string
}

func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:    os.Getenv("BINANCE_API_KEY"),
		SecretKey: os.Getenv("BINANCE_SECRET_KEY"),
	}
}
