package backtest

import (
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

// GeneratorConfig controls the synthetic market stream.
type GeneratorConfig struct {
	Symbol    string
	Seed      int64
	StartTime time.Time
	BasePrice decimal.Decimal
	// Tick is the interval between depth updates.
	Tick time.Duration
	// NoiseBps bounds the per-tick random walk.
	NoiseBps float64
	// Levels is the book depth per side.
	Levels int
	// TradesPerTick is the average number of trades between depth updates.
	TradesPerTick float64
	// BurstEvery injects a one-sided depth and flow burst every N ticks.
	// Zero disables bursts.
	BurstEvery int
	// BurstLength is the duration of a burst in ticks.
	BurstLength int
}

// DefaultGeneratorConfig returns a stream resembling a quiet BTC book with
// occasional directional bursts.
func DefaultGeneratorConfig(symbol string) GeneratorConfig {
	return GeneratorConfig{
		Symbol:        symbol,
		Seed:          1,
		StartTime:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		BasePrice:     decimal.NewFromInt(100000),
		Tick:          100 * time.Millisecond,
		NoiseBps:      10,
		Levels:        10,
		TradesPerTick: 0.5,
		BurstEvery:    500,
		BurstLength:   30,
	}
}

// Generator produces a deterministic synthetic event stream. Replace with
// historical data loading for real evaluation runs.
type Generator struct {
	cfg       GeneratorConfig
	rng       *rand.Rand
	now       time.Time
	price     float64
	tickIndex int
	burstLeft int
	burstSide model.Side
	tradeID   int64

	prevBids map[string]decimal.Decimal
	prevAsks map[string]decimal.Decimal
}

func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	if cfg.Levels <= 0 {
		cfg.Levels = 10
	}
	return &Generator{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		now:      cfg.StartTime,
		price:    cfg.BasePrice.InexactFloat64(),
		prevBids: make(map[string]decimal.Decimal),
		prevAsks: make(map[string]decimal.Decimal),
	}
}

// Next returns the events for one tick: a depth update plus zero or more
// trades.
func (g *Generator) Next() []*model.MarketEvent {
	g.tickIndex++
	g.now = g.now.Add(g.cfg.Tick)

	// random walk
	drift := (g.rng.Float64()*2 - 1) * g.cfg.NoiseBps / 10000
	g.price *= 1 + drift

	if g.cfg.BurstEvery > 0 && g.burstLeft == 0 && g.tickIndex%g.cfg.BurstEvery == 0 {
		g.burstLeft = g.cfg.BurstLength
		g.burstSide = model.SideBuy
		if g.rng.Intn(2) == 0 {
			g.burstSide = model.SideSell
		}
	}

	events := []*model.MarketEvent{g.depthEvent()}

	trades := g.tradeCount()
	for t := 0; t < trades; t++ {
		events = append(events, g.tradeEvent())
	}
	if g.burstLeft > 0 {
		g.burstLeft--
	}
	return events
}

// depthEvent emits the current window on both sides plus zero-quantity
// rows for prices that left the window, keeping the replayed book bounded.
func (g *Generator) depthEvent() *model.MarketEvent {
	// quantize to a fixed grid so the walk revisits the same levels
	step := g.cfg.BasePrice.InexactFloat64() * 0.0001
	mid := float64(int64(g.price/step)) * step

	bidScale, askScale := 1.0, 1.0
	if g.burstLeft > 0 {
		if g.burstSide == model.SideBuy {
			bidScale = 3.0
		} else {
			askScale = 3.0
		}
	}

	newBids := make(map[string]decimal.Decimal, g.cfg.Levels)
	newAsks := make(map[string]decimal.Decimal, g.cfg.Levels)
	bids := make([]model.PriceLevel, 0, g.cfg.Levels*2)
	asks := make([]model.PriceLevel, 0, g.cfg.Levels*2)

	for i := 0; i < g.cfg.Levels; i++ {
		offset := float64(i+1) * step
		bidPrice := decimal.NewFromFloat(mid - offset)
		askPrice := decimal.NewFromFloat(mid + offset)
		bidQty := decimal.NewFromFloat((0.1 + g.rng.Float64()*4.9) * bidScale)
		askQty := decimal.NewFromFloat((0.1 + g.rng.Float64()*4.9) * askScale)

		newBids[bidPrice.String()] = bidPrice
		newAsks[askPrice.String()] = askPrice
		bids = append(bids, model.PriceLevel{Price: bidPrice, Quantity: bidQty})
		asks = append(asks, model.PriceLevel{Price: askPrice, Quantity: askQty})
	}

	for key, price := range g.prevBids {
		if _, ok := newBids[key]; !ok {
			bids = append(bids, model.PriceLevel{Price: price, Quantity: decimal.Zero})
		}
	}
	for key, price := range g.prevAsks {
		if _, ok := newAsks[key]; !ok {
			asks = append(asks, model.PriceLevel{Price: price, Quantity: decimal.Zero})
		}
	}
	g.prevBids = newBids
	g.prevAsks = newAsks

	return &model.MarketEvent{
		Kind: model.EventDepthUpdate,
		Recv: g.now,
		Depth: &model.DepthUpdate{
			Symbol:        g.cfg.Symbol,
			EventTime:     g.now,
			FirstUpdateID: int64(g.tickIndex),
			FinalUpdateID: int64(g.tickIndex),
			Bids:          bids,
			Asks:          asks,
		},
	}
}

func (g *Generator) tradeCount() int {
	count := 0
	p := g.cfg.TradesPerTick
	for p >= 1 {
		count++
		p--
	}
	if g.rng.Float64() < p {
		count++
	}
	if g.burstLeft > 0 {
		count += 2
	}
	return count
}

func (g *Generator) tradeEvent() *model.MarketEvent {
	g.tradeID++

	side := model.SideBuy
	if g.rng.Intn(2) == 0 {
		side = model.SideSell
	}
	if g.burstLeft > 0 {
		side = g.burstSide
	}

	return &model.MarketEvent{
		Kind: model.EventTrade,
		Recv: g.now,
		Trade: &model.Trade{
			ID:           g.tradeID,
			Price:        decimal.NewFromFloat(g.price),
			Quantity:     decimal.NewFromFloat(0.01 + g.rng.Float64()*0.5),
			Side:         side,
			Timestamp:    g.now,
			IsBuyerMaker: side == model.SideSell,
		},
	}
}
