package strategy

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/model"
)

// decayFactor discounts older trades by 5% per step walking back from the
// newest trade.
const decayFactor = 0.95

// FlowAnalyzer watches the trade stream for clusters of same-direction
// aggressive trades. Independent of the order book.
type FlowAnalyzer struct {
	windowSize int
	timeWindow time.Duration
	threshold  float64

	trades []model.Trade
	now    func() time.Time
}

// NewFlowAnalyzer creates an analyzer over at most `windowSize` trades no
// older than `timeWindowMs` milliseconds, with a flow imbalance threshold
// in (0, 1].
func NewFlowAnalyzer(windowSize int, timeWindowMs int64, threshold float64) *FlowAnalyzer {
	return &FlowAnalyzer{
		windowSize: windowSize,
		timeWindow: time.Duration(timeWindowMs) * time.Millisecond,
		threshold:  threshold,
		trades:     make([]model.Trade, 0, windowSize),
		now:        time.Now,
	}
}

// ProcessTrade appends a trade to the window and returns a signal when the
// decayed flow imbalance exceeds the threshold. Nil means no signal.
func (f *FlowAnalyzer) ProcessTrade(trade model.Trade) *model.Signal {
	f.trades = append(f.trades, trade)
	f.evict()

	if len(f.trades) < f.windowSize/4 {
		return nil
	}

	buyVolume, sellVolume := f.weightedVolumes()
	total := buyVolume.Add(sellVolume)
	if total.IsZero() {
		return nil
	}

	imbalance := buyVolume.Sub(sellVolume).Div(total).InexactFloat64()
	if math.Abs(imbalance) < f.threshold {
		return nil
	}

	direction := model.SideBuy
	if imbalance < 0 {
		direction = model.SideSell
	}

	// normalize by threshold so a reading right at the threshold has unit
	// strength; magnitude is deliberately unbounded above that
	strength := imbalance / f.threshold

	countFactor := math.Min(float64(len(f.trades))/float64(f.windowSize), 1.0)
	imbalanceFactor := math.Min(math.Abs(imbalance), 1.0)
	confidence := math.Min(0.3*countFactor+0.7*imbalanceFactor, 1.0)

	return &model.Signal{
		Strength:   strength,
		Direction:  direction,
		Confidence: confidence,
		Timestamp:  f.now(),
		Components: []model.SignalComponent{
			{Name: "buy_volume", Value: buyVolume.InexactFloat64(), Weight: 1},
			{Name: "sell_volume", Value: sellVolume.InexactFloat64(), Weight: 1},
			{Name: "imbalance", Value: imbalance, Weight: 1},
			{Name: "trade_count", Value: float64(len(f.trades))},
		},
	}
}

// weightedVolumes walks the window newest to oldest, decaying the weight at
// each step, and splits volume by aggressor side.
func (f *FlowAnalyzer) weightedVolumes() (buyVolume, sellVolume decimal.Decimal) {
	weight := 1.0
	for i := len(f.trades) - 1; i >= 0; i-- {
		trade := f.trades[i]
		weighted := trade.Quantity.Mul(decimal.NewFromFloat(weight))

		if trade.IsAggressiveBuy() {
			buyVolume = buyVolume.Add(weighted)
		} else if trade.IsAggressiveSell() {
			sellVolume = sellVolume.Add(weighted)
		}

		weight *= decayFactor
	}
	return buyVolume, sellVolume
}

// evict drops trades outside the time window, then trims to the count cap.
func (f *FlowAnalyzer) evict() {
	cutoff := f.now().Add(-f.timeWindow)

	idx := 0
	for idx < len(f.trades) && f.trades[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		f.trades = append(f.trades[:0], f.trades[idx:]...)
	}

	if overflow := len(f.trades) - f.windowSize; overflow > 0 {
		f.trades = append(f.trades[:0], f.trades[overflow:]...)
	}
}

// FlowStats is a monitoring snapshot of the analyzer state.
type FlowStats struct {
	TradeCount int
	BuyVolume  decimal.Decimal
	SellVolume decimal.Decimal
	Imbalance  *float64
}

// Stats returns the current decayed volumes and imbalance.
func (f *FlowAnalyzer) Stats() FlowStats {
	buyVolume, sellVolume := f.weightedVolumes()
	stats := FlowStats{
		TradeCount: len(f.trades),
		BuyVolume:  buyVolume,
		SellVolume: sellVolume,
	}

	total := buyVolume.Add(sellVolume)
	if !total.IsZero() {
		imbalance := buyVolume.Sub(sellVolume).Div(total).InexactFloat64()
		stats.Imbalance = &imbalance
	}
	return stats
}

// Reset clears the trade window.
func (f *FlowAnalyzer) Reset() {
	f.trades = f.trades[:0]
}
