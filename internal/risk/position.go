package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/pkg/exception"
)

// Position is one open directional exposure on the instrument.
type Position struct {
	ID         string
	Symbol     string
	Side       model.Side
	EntryPrice decimal.Decimal
	Quantity   decimal.Decimal
	EntryTime  time.Time
	TakeProfit decimal.Decimal
	StopLoss   decimal.Decimal
	MaxHold    time.Duration
}

// UnrealizedPnL values the position at the given mark price.
func (p *Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	diff := currentPrice.Sub(p.EntryPrice)
	if p.Side == model.SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(p.Quantity)
}

// Notional returns the entry notional value.
func (p *Position) Notional() decimal.Decimal {
	return p.EntryPrice.Mul(p.Quantity)
}

// ShouldTakeProfit reports whether the mark has reached the target.
func (p *Position) ShouldTakeProfit(currentPrice decimal.Decimal) bool {
	if p.TakeProfit.IsZero() {
		return false
	}
	if p.Side == model.SideBuy {
		return currentPrice.GreaterThanOrEqual(p.TakeProfit)
	}
	return currentPrice.LessThanOrEqual(p.TakeProfit)
}

// ShouldStopLoss reports whether the mark has breached the stop.
func (p *Position) ShouldStopLoss(currentPrice decimal.Decimal) bool {
	if p.StopLoss.IsZero() {
		return false
	}
	if p.Side == model.SideBuy {
		return currentPrice.LessThanOrEqual(p.StopLoss)
	}
	return currentPrice.GreaterThanOrEqual(p.StopLoss)
}

// IsExpired reports whether the position has exceeded its hold time.
func (p *Position) IsExpired(now time.Time) bool {
	if p.MaxHold <= 0 {
		return false
	}
	return now.Sub(p.EntryTime) >= p.MaxHold
}

// PositionManager tracks open positions and realized results. Like Manager
// it is single-owner state for the decision loop.
type PositionManager struct {
	positions   map[string]*Position
	realizedPnL decimal.Decimal
	totalTrades int
	winTrades   int
}

func NewPositionManager() *PositionManager {
	return &PositionManager{
		positions: make(map[string]*Position),
	}
}

// Open registers a new position. The ID must be unique among open positions.
func (pm *PositionManager) Open(p *Position) error {
	if _, ok := pm.positions[p.ID]; ok {
		return exception.ErrPositionExists.With("id", p.ID)
	}
	pm.positions[p.ID] = p
	return nil
}

// Close removes the position and books its realized PnL at the exit price.
func (pm *PositionManager) Close(id string, exitPrice decimal.Decimal) (decimal.Decimal, error) {
	p, ok := pm.positions[id]
	if !ok {
		return decimal.Zero, exception.ErrUnknownPosition.With("id", id)
	}
	delete(pm.positions, id)

	pnl := p.UnrealizedPnL(exitPrice)
	pm.realizedPnL = pm.realizedPnL.Add(pnl)
	pm.totalTrades++
	if pnl.Sign() > 0 {
		pm.winTrades++
	}
	return pnl, nil
}

// Get returns an open position by ID.
func (pm *PositionManager) Get(id string) (*Position, bool) {
	p, ok := pm.positions[id]
	return p, ok
}

// Open positions in insertion-independent map order.
func (pm *PositionManager) OpenPositions() []*Position {
	out := make([]*Position, 0, len(pm.positions))
	for _, p := range pm.positions {
		out = append(out, p)
	}
	return out
}

// OpenCount returns the number of open positions.
func (pm *PositionManager) OpenCount() int {
	return len(pm.positions)
}

// TotalExposure sums the entry notional of all open positions.
func (pm *PositionManager) TotalExposure() decimal.Decimal {
	total := decimal.Zero
	for _, p := range pm.positions {
		total = total.Add(p.Notional())
	}
	return total
}

// TotalUnrealizedPnL marks all open positions at the given price.
func (pm *PositionManager) TotalUnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range pm.positions {
		total = total.Add(p.UnrealizedPnL(currentPrice))
	}
	return total
}

// RealizedPnL returns the cumulative realized PnL.
func (pm *PositionManager) RealizedPnL() decimal.Decimal {
	return pm.realizedPnL
}

// WinRate returns wins over closed trades, zero before any close.
func (pm *PositionManager) WinRate() float64 {
	if pm.totalTrades == 0 {
		return 0
	}
	return float64(pm.winTrades) / float64(pm.totalTrades)
}

// ClosedTrades returns the number of closed trades.
func (pm *PositionManager) ClosedTrades() int {
	return pm.totalTrades
}
