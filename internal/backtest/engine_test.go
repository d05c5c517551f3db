package backtest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

func depthAt(ts time.Time, mid float64) *model.MarketEvent {
	return &model.MarketEvent{
		Kind: model.EventDepthUpdate,
		Recv: ts,
		Depth: &model.DepthUpdate{
			Symbol:    "BTCUSDT",
			EventTime: ts,
			Bids:      []model.PriceLevel{{Price: decimal.NewFromFloat(mid - 0.5), Quantity: decimal.NewFromInt(10)}},
			Asks:      []model.PriceLevel{{Price: decimal.NewFromFloat(mid + 0.5), Quantity: decimal.NewFromInt(10)}},
		},
	}
}

func TestEngineStartsFlat(t *testing.T) {
	e := NewEngine(DefaultConfig("BTCUSDT"))

	assert.True(t, e.Equity().Equal(decimal.NewFromInt(10000)))
	assert.Zero(t, e.OpenPositions())
}

func TestProcessMaintainsEquityCurve(t *testing.T) {
	e := NewEngine(DefaultConfig("BTCUSDT"))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, e.Process(depthAt(start.Add(time.Duration(i)*100*time.Millisecond), 50000)))
	}

	results := e.Results()
	assert.Len(t, results.EquityCurve, 5)
	for _, p := range results.EquityCurve {
		assert.True(t, p.Equity.Equal(decimal.NewFromInt(10000)))
	}
}

func TestSimulateFillAppliesSlippageAndCommission(t *testing.T) {
	cfg := DefaultConfig("BTCUSDT")
	e := NewEngine(cfg)

	price := decimal.NewFromInt(50000)
	notional := decimal.NewFromInt(1000)

	// buys pay up 2 bps
	buy := e.simulateFill(model.SideBuy, price, notional)
	assert.True(t, buy.price.Equal(decimal.NewFromInt(50010)), "got %s", buy.price)
	// 1000 * 4bps = 0.4
	assert.True(t, buy.commission.Equal(decimal.NewFromFloat(0.4)))

	// sells receive 2 bps less
	sell := e.simulateFill(model.SideSell, price, notional)
	assert.True(t, sell.price.Equal(decimal.NewFromInt(49990)), "got %s", sell.price)
}

func TestBpsOffset(t *testing.T) {
	entry := decimal.NewFromInt(50000)

	// long: TP 10 bps above, SL 5 bps below
	tp := bpsOffset(entry, model.SideBuy, decimal.NewFromInt(10), true)
	sl := bpsOffset(entry, model.SideBuy, decimal.NewFromInt(5), false)
	assert.True(t, tp.Equal(decimal.NewFromInt(50050)))
	assert.True(t, sl.Equal(decimal.NewFromInt(49975)))

	// short mirrors
	tp = bpsOffset(entry, model.SideSell, decimal.NewFromInt(10), true)
	sl = bpsOffset(entry, model.SideSell, decimal.NewFromInt(5), false)
	assert.True(t, tp.Equal(decimal.NewFromInt(49950)))
	assert.True(t, sl.Equal(decimal.NewFromInt(50025)))
}

func TestGeneratorIsDeterministic(t *testing.T) {
	cfg := DefaultGeneratorConfig("BTCUSDT")
	g1 := NewGenerator(cfg)
	g2 := NewGenerator(cfg)

	for _iter := 0; _iter < 100; _iter++ {
		ev1 := g1.Next()
		ev2 := g2.Next()
		require.Equal(t, len(ev1), len(ev2))
		require.NotNil(t, ev1[0].Depth)
		assert.True(t, ev1[0].Depth.Bids[0].Price.Equal(ev2[0].Depth.Bids[0].Price))
	}
}

func TestGeneratorProducesValidStream(t *testing.T) {
	cfg := DefaultGeneratorConfig("BTCUSDT")
	cfg.Levels = 5
	g := NewGenerator(cfg)

	depths, trades := 0, 0
	for _iter := 0; _iter < 1000; _iter++ {
		for _, ev := range g.Next() {
			switch ev.Kind {
			case model.EventDepthUpdate:
				depths++
				require.Equal(t, 5, liveLevels(ev.Depth.Bids))
				require.Equal(t, 5, liveLevels(ev.Depth.Asks))
				// best bid must sit below best ask
				assert.True(t, ev.Depth.Bids[0].Price.LessThan(ev.Depth.Asks[0].Price))
			case model.EventTrade:
				trades++
				assert.True(t, ev.Trade.Price.Sign() > 0)
				assert.True(t, ev.Trade.Quantity.Sign() > 0)
			}
		}
	}
	assert.Equal(t, 1000, depths)
	assert.Positive(t, trades)
}

func TestFullReplayRunsClean(t *testing.T) {
	gcfg := DefaultGeneratorConfig("BTCUSDT")
	gcfg.BurstEvery = 200
	g := NewGenerator(gcfg)

	cfg := DefaultConfig("BTCUSDT")
	// loosen thresholds so the synthetic bursts actually trade
	cfg.ImbalanceWindow = 40
	cfg.ImbalanceThreshold = 2.0
	cfg.PrimaryThreshold = 2.0
	cfg.ConfirmThreshold = 1.0
	cfg.MinConfirming = 0
	e := NewEngine(cfg)

	for _iter := 0; _iter < 5000; _iter++ {
		for _, ev := range g.Next() {
			require.NoError(t, e.Process(ev))
		}
	}

	results := e.Results()
	assert.NotEmpty(t, results.EquityCurve)
	assert.Equal(t, len(results.Trades), results.TotalTrades)
	assert.Equal(t, results.TotalTrades, results.WinningTrades+results.LosingTrades+countFlat(results.Trades))
	// equity accounting closes: final equity equals capital plus net pnl
	net := decimal.Zero
	for _, tr := range results.Trades {
		net = net.Add(tr.PnL)
	}
	assert.True(t, results.FinalEquity.Equal(cfg.InitialCapital.Add(net)))
}

func liveLevels(levels []model.PriceLevel) int {
	n := 0
	for _, l := range levels {
		if l.Quantity.Sign() > 0 {
			n++
		}
	}
	return n
}

func countFlat(trades []TradeRecord) int {
	n := 0
	for _, t := range trades {
		if t.PnL.IsZero() {
			n++
		}
	}
	return n
}

func TestResultsMetrics(t *testing.T) {
	cfg := DefaultConfig("BTCUSDT")
	trades := []TradeRecord{
		{PnL: decimal.NewFromInt(100)},
		{PnL: decimal.NewFromInt(50)},
		{PnL: decimal.NewFromInt(-50)},
	}
	curve := []EquityPoint{
		{Equity: decimal.NewFromInt(10000)},
		{Equity: decimal.NewFromInt(10100)},
		{Equity: decimal.NewFromInt(10050)},
		{Equity: decimal.NewFromInt(10100)},
	}

	r := newResults(cfg, trades, curve, decimal.NewFromInt(10100))

	assert.True(t, r.TotalReturn.Equal(decimal.NewFromInt(100)))
	assert.True(t, r.TotalReturnPct.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 2, r.WinningTrades)
	assert.Equal(t, 1, r.LosingTrades)
	assert.InDelta(t, 2.0/3.0, r.WinRate, 1e-9)
	assert.InDelta(t, 3.0, r.ProfitFactor, 1e-9)
	assert.True(t, r.AverageWin.Equal(decimal.NewFromInt(75)))
	assert.True(t, r.AverageLoss.Equal(decimal.NewFromInt(50)))
	assert.True(t, r.LargestWin.Equal(decimal.NewFromInt(100)))
	assert.True(t, r.LargestLoss.Equal(decimal.NewFromInt(-50)))
	assert.True(t, r.MaxDrawdown.Equal(decimal.NewFromInt(50)))
	assert.NotZero(t, r.SharpeRatio)
}

func TestResultsEmptyRun(t *testing.T) {
	cfg := DefaultConfig("BTCUSDT")
	r := newResults(cfg, nil, nil, cfg.InitialCapital)

	assert.Zero(t, r.TotalTrades)
	assert.Zero(t, r.WinRate)
	assert.Zero(t, r.ProfitFactor)
	assert.True(t, r.TotalReturn.IsZero())
}
