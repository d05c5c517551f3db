package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[general]
symbol = "ETHUSDT"
base_currency = "ETH"
quote_currency = "USDT"
environment = "production"

[strategy]
imbalance_threshold = 2.5
min_confirming_signals = 1
take_profit_pct = 0.5
signal_check_every_updates = 5

[position_sizing]
base_notional_usd = 2500.0

[risk]
max_daily_loss_usd = 750.0
max_trades_per_hour = 60

[exchange]
testnet = false
api_endpoint = "https://fapi.binance.com"
ws_endpoint = "wss://fstream.binance.com"

[metrics]
bind_address = ":9100"

[journal]
enabled = true
host = "db.internal"
database = "journal"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.General.Symbol)
	assert.Equal(t, "production", cfg.General.Environment)
	assert.Equal(t, 2.5, cfg.Strategy.ImbalanceThreshold)
	assert.Equal(t, 1, cfg.Strategy.MinConfirmingSignals)
	assert.Equal(t, 2500.0, cfg.PositionSizing.BaseNotionalUSD)
	assert.Equal(t, 750.0, cfg.Risk.MaxDailyLossUSD)
	assert.Equal(t, 60, cfg.Risk.MaxTradesPerHour)
	assert.False(t, cfg.Exchange.Testnet)
	assert.Equal(t, "wss://fstream.binance.com", cfg.Exchange.WSEndpoint)
	assert.Equal(t, ":9100", cfg.Metrics.BindAddress)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "db.internal", cfg.Journal.Host)

	// untouched sections keep default values
	assert.Equal(t, int64(30_000), cfg.Strategy.MaxHoldTimeMs)
	assert.Equal(t, int64(500), cfg.Latency.MaxAcceptableLatencyMs)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := writeConfig(t, "[general\nsymbol = ")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"empty symbol":          func(c *Config) { c.General.Symbol = "" },
		"zero window":           func(c *Config) { c.Strategy.ImbalanceWindow = 0 },
		"negative threshold":    func(c *Config) { c.Strategy.ImbalanceThreshold = -1 },
		"flow threshold over 1": func(c *Config) { c.Strategy.FlowThreshold = 1.5 },
		"zero notional":         func(c *Config) { c.PositionSizing.BaseNotionalUSD = 0 },
		"zero daily loss":       func(c *Config) { c.Risk.MaxDailyLossUSD = 0 },
		"missing ws endpoint":   func(c *Config) { c.Exchange.WSEndpoint = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `
[general]
symbol = "SOLUSDT"
`)
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", cfg.General.Symbol)
}

func TestRiskLimitsMapping(t *testing.T) {
	cfg := Default()
	cfg.Risk.MaxDailyLossUSD = 321
	cfg.Latency.MaxAcceptableLatencyMs = 250

	limits := cfg.RiskLimits()
	assert.True(t, limits.MaxDailyLoss.Equal(decimal.NewFromInt(321)))
	assert.Equal(t, 250*time.Millisecond, limits.MaxLatency)
	assert.Equal(t, 30, limits.MaxTradesPerHour)
}

func TestExecutionConfigMapping(t *testing.T) {
	cfg := Default()
	cfg.Strategy.TakeProfitPct = 0.5
	cfg.Strategy.MaxHoldTimeMs = 45_000

	ec := cfg.ExecutionConfig()
	assert.Equal(t, "BTCUSDT", ec.Symbol)
	assert.True(t, ec.TakeProfitPercent.Equal(decimal.NewFromFloat(0.5)))
	assert.Equal(t, 45*time.Second, ec.MaxHold)
}

func TestTraderConfigMapping(t *testing.T) {
	cfg := Default()
	cfg.Strategy.SignalEvery = 4
	cfg.Strategy.MinConfirmingSignals = 3

	tc := cfg.TraderConfig()
	assert.Equal(t, "BTCUSDT", tc.Symbol)
	assert.Equal(t, 4, tc.SignalEvery)
	assert.Equal(t, 3, tc.MinConfirming)
}
