// Package backtest replays market events through the live signal stack
// against simulated fills with slippage and commission.
package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/book"
	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/internal/risk"
	"github.com/Xtley001/front-run-vanilla/internal/strategy"
	"github.com/Xtley001/front-run-vanilla/pkg/exception"
)

// Config tunes the simulation.
type Config struct {
	Symbol         string
	InitialCapital decimal.Decimal
	PositionSize   decimal.Decimal
	TakeProfitBps  decimal.Decimal
	StopLossBps    decimal.Decimal
	MaxHold        time.Duration
	SlippageBps    decimal.Decimal
	CommissionBps  decimal.Decimal
	MinConfirming  int

	ImbalanceLevels    int
	ImbalanceWindow    int
	ImbalanceThreshold float64
	FlowWindow         int
	FlowTimeWindowMs   int64
	FlowThreshold      float64
	PrimaryThreshold   float64
	ConfirmThreshold   float64
}

// DefaultConfig mirrors the live strategy defaults with tighter exit
// targets suited to the 100ms replay cadence.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:         symbol,
		InitialCapital: decimal.NewFromInt(10000),
		PositionSize:   decimal.NewFromInt(1000),
		TakeProfitBps:  decimal.NewFromInt(10),
		StopLossBps:    decimal.NewFromInt(5),
		MaxHold:        5 * time.Second,
		SlippageBps:    decimal.NewFromInt(2),
		CommissionBps:  decimal.NewFromInt(4),
		MinConfirming:  2,

		ImbalanceLevels:    5,
		ImbalanceWindow:    100,
		ImbalanceThreshold: 3.0,
		FlowWindow:         20,
		FlowTimeWindowMs:   5000,
		FlowThreshold:      0.6,
		PrimaryThreshold:   3.0,
		ConfirmThreshold:   1.5,
	}
}

// TradeRecord is one completed round trip.
type TradeRecord struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Side       model.Side
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Quantity   decimal.Decimal
	PnL        decimal.Decimal
	Fees       decimal.Decimal
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Time   time.Time
	Equity decimal.Decimal
}

// simulatedFill is a fill adjusted for slippage and commission.
type simulatedFill struct {
	price      decimal.Decimal
	commission decimal.Decimal
}

// Engine replays events through the strategy stack. One position at a
// time, matching the live engine's exposure discipline at backtest scale.
type Engine struct {
	cfg        Config
	book       *book.OrderBook
	positions  *risk.PositionManager
	riskMgr    *risk.Manager
	detector   *strategy.ImbalanceDetector
	flow       *strategy.FlowAnalyzer
	aggregator *strategy.SignalAggregator

	currentTime time.Time
	equity      decimal.Decimal
	curve       []EquityPoint
	trades      []TradeRecord
	lastFlow    *model.Signal
	entryFees   decimal.Decimal
}

func NewEngine(cfg Config) *Engine {
	limits := risk.Limits{
		MaxPositionSize:      cfg.PositionSize.Mul(decimal.NewFromInt(5)),
		MaxPortfolioExposure: cfg.InitialCapital,
		MaxDailyLoss:         cfg.InitialCapital.Mul(decimal.NewFromFloat(0.05)),
		MaxDrawdownPercent:   decimal.NewFromInt(10),
		MaxTradesPerHour:     30,
		MaxTradesPerDay:      200,
		MaxLatency:           500 * time.Millisecond,
	}

	return &Engine{
		cfg:        cfg,
		book:       book.New(cfg.Symbol),
		positions:  risk.NewPositionManager(),
		riskMgr:    risk.NewManager(limits, cfg.InitialCapital),
		detector:   strategy.NewImbalanceDetector(cfg.ImbalanceLevels, cfg.ImbalanceWindow, cfg.ImbalanceThreshold),
		flow:       strategy.NewFlowAnalyzer(cfg.FlowWindow, cfg.FlowTimeWindowMs, cfg.FlowThreshold),
		aggregator: strategy.NewSignalAggregator(cfg.PrimaryThreshold, cfg.ConfirmThreshold, cfg.MinConfirming),
		equity:     cfg.InitialCapital,
	}
}

// Process consumes one replayed market event.
func (e *Engine) Process(ev *model.MarketEvent) error {
	switch ev.Kind {
	case model.EventDepthUpdate:
		if ev.Depth == nil {
			return exception.ErrInvalidArgument.With("reason", "depth event without payload")
		}
		e.currentTime = ev.Depth.EventTime
		if err := e.book.ApplyDepth(ev.Depth); err != nil {
			return err
		}
		e.checkSignals()
		e.checkExits()
		e.recordEquity()

	case model.EventTrade:
		if ev.Trade == nil {
			return exception.ErrInvalidArgument.With("reason", "trade event without payload")
		}
		e.currentTime = ev.Trade.Timestamp
		if sig := e.flow.ProcessTrade(*ev.Trade); sig != nil {
			e.lastFlow = sig
		}
	}
	return nil
}

func (e *Engine) checkSignals() {
	var signals []model.Signal
	if sig := e.detector.CalculateSignal(e.book); sig != nil {
		signals = append(signals, *sig)
	}
	if e.lastFlow != nil {
		signals = append(signals, *e.lastFlow)
	}
	if len(signals) == 0 {
		return
	}

	composite := e.aggregator.Aggregate(signals)
	if composite == nil || !composite.IsTradeable(e.cfg.MinConfirming) {
		return
	}
	e.enterPosition(composite)
}

func (e *Engine) enterPosition(sig *strategy.CompositeSignal) {
	if e.positions.OpenCount() > 0 {
		return
	}
	if v := e.riskMgr.CanOpenPosition(e.cfg.PositionSize, e.positions.TotalExposure()); v != nil && v.Severity != risk.SeverityWarning {
		return
	}
	mid, ok := e.book.MidPrice()
	if !ok {
		return
	}

	fill := e.simulateFill(sig.Direction, mid, e.cfg.PositionSize)
	quantity := e.cfg.PositionSize.Div(fill.price)

	pos := &risk.Position{
		ID:         e.cfg.Symbol,
		Symbol:     e.cfg.Symbol,
		Side:       sig.Direction,
		EntryPrice: fill.price,
		Quantity:   quantity,
		EntryTime:  e.currentTime,
		TakeProfit: bpsOffset(fill.price, sig.Direction, e.cfg.TakeProfitBps, true),
		StopLoss:   bpsOffset(fill.price, sig.Direction, e.cfg.StopLossBps, false),
		MaxHold:    e.cfg.MaxHold,
	}
	if err := e.positions.Open(pos); err != nil {
		return
	}
	e.entryFees = fill.commission
}

func (e *Engine) checkExits() {
	mid, ok := e.book.MidPrice()
	if !ok {
		return
	}
	for _, pos := range e.positions.OpenPositions() {
		if pos.ShouldTakeProfit(mid) || pos.ShouldStopLoss(mid) || pos.IsExpired(e.currentTime) {
			e.closePosition(pos, mid)
		}
	}
}

func (e *Engine) closePosition(pos *risk.Position, mid decimal.Decimal) {
	fill := e.simulateFill(pos.Side.Opposite(), mid, pos.Notional())

	pnl, err := e.positions.Close(pos.ID, fill.price)
	if err != nil {
		return
	}
	fees := e.entryFees.Add(fill.commission)
	netPnL := pnl.Sub(fees)

	e.riskMgr.RecordTrade(netPnL)
	e.equity = e.equity.Add(netPnL)
	e.entryFees = decimal.Zero

	e.trades = append(e.trades, TradeRecord{
		EntryTime:  pos.EntryTime,
		ExitTime:   e.currentTime,
		Side:       pos.Side,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  fill.price,
		Quantity:   pos.Quantity,
		PnL:        netPnL,
		Fees:       fees,
	})
}

// simulateFill applies slippage against the taker and charges commission
// on the notional.
func (e *Engine) simulateFill(side model.Side, price, notional decimal.Decimal) simulatedFill {
	bps := decimal.NewFromInt(10000)
	slippage := price.Mul(e.cfg.SlippageBps).Div(bps)
	if side == model.SideSell {
		slippage = slippage.Neg()
	}
	return simulatedFill{
		price:      price.Add(slippage),
		commission: notional.Mul(e.cfg.CommissionBps).Div(bps),
	}
}

func (e *Engine) recordEquity() {
	mid, ok := e.book.MidPrice()
	if !ok {
		return
	}
	total := e.equity.Add(e.positions.TotalUnrealizedPnL(mid))
	e.curve = append(e.curve, EquityPoint{Time: e.currentTime, Equity: total})
}

// Results summarizes the completed run.
func (e *Engine) Results() *Results {
	return newResults(e.cfg, e.trades, e.curve, e.equity)
}

// Equity returns the current realized equity.
func (e *Engine) Equity() decimal.Decimal {
	return e.equity
}

// OpenPositions returns the number of currently open positions.
func (e *Engine) OpenPositions() int {
	return e.positions.OpenCount()
}

func bpsOffset(entry decimal.Decimal, side model.Side, bps decimal.Decimal, profit bool) decimal.Decimal {
	offset := entry.Mul(bps).Div(decimal.NewFromInt(10000))
	up := side == model.SideBuy
	if !profit {
		up = !up
	}
	if up {
		return entry.Add(offset)
	}
	return entry.Sub(offset)
}
