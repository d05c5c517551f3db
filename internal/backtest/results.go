package backtest

import (
	"math"

	"github.com/shopspring/decimal"
)

// Results carries the performance metrics of a completed run.
type Results struct {
	Config      Config
	Trades      []TradeRecord
	EquityCurve []EquityPoint
	FinalEquity decimal.Decimal

	TotalReturn    decimal.Decimal
	TotalReturnPct decimal.Decimal
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
	ProfitFactor   float64
	AverageWin     decimal.Decimal
	AverageLoss    decimal.Decimal
	LargestWin     decimal.Decimal
	LargestLoss    decimal.Decimal
	MaxDrawdown    decimal.Decimal
	MaxDrawdownPct decimal.Decimal
	SharpeRatio    float64
}

func newResults(cfg Config, trades []TradeRecord, curve []EquityPoint, finalEquity decimal.Decimal) *Results {
	r := &Results{
		Config:      cfg,
		Trades:      trades,
		EquityCurve: curve,
		FinalEquity: finalEquity,
		TotalTrades: len(trades),
	}

	r.TotalReturn = finalEquity.Sub(cfg.InitialCapital)
	if !cfg.InitialCapital.IsZero() {
		r.TotalReturnPct = r.TotalReturn.Div(cfg.InitialCapital).Mul(decimal.NewFromInt(100))
	}

	totalWins, totalLosses := decimal.Zero, decimal.Zero
	for _, t := range trades {
		switch t.PnL.Sign() {
		case 1:
			r.WinningTrades++
			totalWins = totalWins.Add(t.PnL)
			if t.PnL.GreaterThan(r.LargestWin) {
				r.LargestWin = t.PnL
			}
		case -1:
			r.LosingTrades++
			totalLosses = totalLosses.Add(t.PnL.Abs())
			if t.PnL.LessThan(r.LargestLoss) {
				r.LargestLoss = t.PnL
			}
		}
	}

	if len(trades) > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(len(trades))
	}
	if totalLosses.IsZero() {
		if !totalWins.IsZero() {
			r.ProfitFactor = math.Inf(1)
		}
	} else {
		r.ProfitFactor = totalWins.Div(totalLosses).InexactFloat64()
	}
	if r.WinningTrades > 0 {
		r.AverageWin = totalWins.Div(decimal.NewFromInt(int64(r.WinningTrades)))
	}
	if r.LosingTrades > 0 {
		r.AverageLoss = totalLosses.Div(decimal.NewFromInt(int64(r.LosingTrades)))
	}

	r.MaxDrawdown, r.MaxDrawdownPct = maxDrawdown(curve, cfg.InitialCapital)
	r.SharpeRatio = sharpeRatio(trades)
	return r
}

func maxDrawdown(curve []EquityPoint, initialCapital decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	peak := initialCapital
	maxDD := decimal.Zero
	for _, p := range curve {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
		if dd := peak.Sub(p.Equity); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	if peak.IsZero() {
		return maxDD, decimal.Zero
	}
	return maxDD, maxDD.Div(peak).Mul(decimal.NewFromInt(100))
}

// sharpeRatio is the per-trade mean return over its standard deviation,
// risk-free rate taken as zero.
func sharpeRatio(trades []TradeRecord) float64 {
	if len(trades) < 2 {
		return 0
	}
	returns := make([]float64, len(trades))
	sum := 0.0
	for i, t := range trades {
		returns[i] = t.PnL.InexactFloat64()
		sum += returns[i]
	}
	mean := sum / float64(len(returns))

	variance := 0.0
	for _, v := range returns {
		diff := v - mean
		variance += diff * diff
	}
	stddev := math.Sqrt(variance / float64(len(returns)))
	if stddev == 0 {
		return 0
	}
	return mean / stddev
}
