// Package execution turns composite signals into orders, sized by signal
// confidence and gated by the risk manager.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/internal/risk"
	"github.com/Xtley001/front-run-vanilla/internal/strategy"
	"github.com/Xtley001/front-run-vanilla/pkg/exception"
)

// OrderPlacer submits orders to a venue. Implemented by the exchange REST
// client in live trading and by fakes in tests.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side model.Side, quantity decimal.Decimal) (*model.OrderResult, error)
}

// Config tunes sizing and exits.
type Config struct {
	Symbol            string
	BasePositionSize  decimal.Decimal
	TakerFeeRate      decimal.Decimal
	TakeProfitPercent decimal.Decimal
	StopLossPercent   decimal.Decimal
	MaxHold           time.Duration
}

// DefaultConfig returns the stock execution settings.
func DefaultConfig(symbol string) Config {
	return Config{
		Symbol:            symbol,
		BasePositionSize:  decimal.NewFromInt(1000),
		TakerFeeRate:      decimal.NewFromFloat(0.0004),
		TakeProfitPercent: decimal.NewFromFloat(0.3),
		StopLossPercent:   decimal.NewFromFloat(0.15),
		MaxHold:           30 * time.Second,
	}
}

// Stats is a snapshot of execution activity.
type Stats struct {
	SignalsReceived int64
	OrdersPlaced    int64
	OrdersRejected  int64
	RiskBlocks      int64
	FeesPaid        decimal.Decimal
}

// ClosedTrade describes a completed round trip. Handed to the close hook
// after the position is settled.
type ClosedTrade struct {
	Symbol     string
	Side       model.Side
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Quantity   decimal.Decimal
	PnL        decimal.Decimal
	Fees       decimal.Decimal
	EntryTime  time.Time
	ExitTime   time.Time
	Reason     string
}

// Engine drives order placement from signals. Like the risk state it is
// owned by the decision loop and not safe for concurrent use.
type Engine struct {
	cfg       Config
	placer    OrderPlacer
	riskMgr   *risk.Manager
	positions *risk.PositionManager
	stats     Stats
	onClose   func(ClosedTrade)
	now       func() time.Time
}

func NewEngine(cfg Config, placer OrderPlacer, riskMgr *risk.Manager, positions *risk.PositionManager) *Engine {
	return &Engine{
		cfg:       cfg,
		placer:    placer,
		riskMgr:   riskMgr,
		positions: positions,
		now:       time.Now,
	}
}

// OnClose registers a hook invoked after every settled round trip, for
// example to persist a trade journal entry.
func (e *Engine) OnClose(fn func(ClosedTrade)) {
	e.onClose = fn
}

// HandleSignal sizes and submits an order for a tradeable composite signal.
// Returns the opened position, or nil when the signal was skipped.
func (e *Engine) HandleSignal(ctx context.Context, sig *strategy.CompositeSignal, markPrice decimal.Decimal) (*risk.Position, error) {
	e.stats.SignalsReceived++

	if markPrice.Sign() <= 0 {
		return nil, exception.ErrNoMidPrice
	}

	notional := e.PositionSize(sig.Confidence)

	if v := e.riskMgr.CanOpenPosition(notional, e.positions.TotalExposure()); v != nil {
		if v.Severity != risk.SeverityWarning {
			e.stats.RiskBlocks++
			logs.Warnf("signal rejected by risk check: %s (%s)", v.Reason, v.Severity)
			return nil, nil
		}
		// advisory only, proceed with the trade
		logs.Warnf("risk warning on open: %s", v.Reason)
	}

	quantity := notional.Div(markPrice)

	start := e.now()
	result, err := e.placer.PlaceMarketOrder(ctx, e.cfg.Symbol, sig.Direction, quantity)
	e.riskMgr.RecordLatency(e.now().Sub(start))
	if err != nil {
		e.stats.OrdersRejected++
		return nil, err
	}
	e.stats.OrdersPlaced++

	fee := result.FillPrice.Mul(result.FilledQuantity).Mul(e.cfg.TakerFeeRate)
	e.stats.FeesPaid = e.stats.FeesPaid.Add(fee)

	pos := &risk.Position{
		ID:         uuid.NewString(),
		Symbol:     e.cfg.Symbol,
		Side:       sig.Direction,
		EntryPrice: result.FillPrice,
		Quantity:   result.FilledQuantity,
		EntryTime:  e.now(),
		TakeProfit: e.exitLevel(result.FillPrice, sig.Direction, e.cfg.TakeProfitPercent, true),
		StopLoss:   e.exitLevel(result.FillPrice, sig.Direction, e.cfg.StopLossPercent, false),
		MaxHold:    e.cfg.MaxHold,
	}
	if err := e.positions.Open(pos); err != nil {
		return nil, err
	}

	logs.Infof("opened %s position %s: qty=%s entry=%s fee=%s",
		pos.Side, pos.ID, pos.Quantity, pos.EntryPrice, fee)
	return pos, nil
}

// PositionSize maps confidence in [0,1] linearly onto 0.5x to 2.0x of the
// base notional.
func (e *Engine) PositionSize(confidence float64) decimal.Decimal {
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}
	multiplier := decimal.NewFromFloat(0.5 + 1.5*confidence)
	return e.cfg.BasePositionSize.Mul(multiplier)
}

// SweepExits closes every open position whose take profit, stop loss or
// hold timer has triggered at the given mark price.
func (e *Engine) SweepExits(ctx context.Context, markPrice decimal.Decimal) {
	now := e.now()
	for _, pos := range e.positions.OpenPositions() {
		var reason string
		switch {
		case pos.ShouldTakeProfit(markPrice):
			reason = "take profit"
		case pos.ShouldStopLoss(markPrice):
			reason = "stop loss"
		case pos.IsExpired(now):
			reason = "max hold expired"
		default:
			continue
		}
		if err := e.closePosition(ctx, pos, reason); err != nil {
			logs.Errorf("close position %s: %+v", pos.ID, err)
		}
	}
}

// CloseAll force-closes every open position. Used on emergency halt and
// shutdown.
func (e *Engine) CloseAll(ctx context.Context) {
	for _, pos := range e.positions.OpenPositions() {
		if err := e.closePosition(ctx, pos, "close all"); err != nil {
			logs.Errorf("close position %s: %+v", pos.ID, err)
		}
	}
}

func (e *Engine) closePosition(ctx context.Context, pos *risk.Position, reason string) error {
	start := e.now()
	result, err := e.placer.PlaceMarketOrder(ctx, pos.Symbol, pos.Side.Opposite(), pos.Quantity)
	e.riskMgr.RecordLatency(e.now().Sub(start))
	if err != nil {
		e.stats.OrdersRejected++
		return err
	}
	e.stats.OrdersPlaced++

	fee := result.FillPrice.Mul(result.FilledQuantity).Mul(e.cfg.TakerFeeRate)
	e.stats.FeesPaid = e.stats.FeesPaid.Add(fee)

	pnl, err := e.positions.Close(pos.ID, result.FillPrice)
	if err != nil {
		return err
	}
	e.riskMgr.RecordTrade(pnl.Sub(fee))

	if e.onClose != nil {
		e.onClose(ClosedTrade{
			Symbol:     pos.Symbol,
			Side:       pos.Side,
			EntryPrice: pos.EntryPrice,
			ExitPrice:  result.FillPrice,
			Quantity:   pos.Quantity,
			PnL:        pnl,
			Fees:       fee,
			EntryTime:  pos.EntryTime,
			ExitTime:   e.now(),
			Reason:     reason,
		})
	}

	logs.Infof("closed position %s (%s): exit=%s pnl=%s fee=%s",
		pos.ID, reason, result.FillPrice, pnl, fee)
	return nil
}

// Stats returns a copy of the execution counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// exitLevel computes a TP or SL price offset by percent from entry. profit
// selects the direction of the offset relative to the position side.
func (e *Engine) exitLevel(entry decimal.Decimal, side model.Side, percent decimal.Decimal, profit bool) decimal.Decimal {
	offset := entry.Mul(percent).Div(decimal.NewFromInt(100))
	up := side == model.SideBuy
	if !profit {
		up = !up
	}
	if up {
		return entry.Add(offset)
	}
	return entry.Sub(offset)
}
