package obs

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot is the point-in-time state published by the decision loop for
// the HTTP API.
type Snapshot struct {
	Symbol          string          `json:"symbol"`
	Connected       bool            `json:"connected"`
	MidPrice        decimal.Decimal `json:"mid_price"`
	SpreadBps       decimal.Decimal `json:"spread_bps"`
	BidLevels       int             `json:"bid_levels"`
	AskLevels       int             `json:"ask_levels"`
	EventsSeen      int64           `json:"events_seen"`
	SignalsEmitted  int64           `json:"signals_emitted"`
	OpenPositions   int             `json:"open_positions"`
	ClosedTrades    int             `json:"closed_trades"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
	WinRate         float64         `json:"win_rate"`
	DailyPnL        decimal.Decimal `json:"daily_pnl"`
	DrawdownPercent decimal.Decimal `json:"drawdown_percent"`
	TradingHalted   bool            `json:"trading_halted"`
	HaltReason      string          `json:"halt_reason,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// StatusBoard is the hand-off between the single-threaded decision loop
// and the HTTP handlers. The loop replaces the snapshot, readers copy it.
type StatusBoard struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStatusBoard(symbol string) *StatusBoard {
	return &StatusBoard{snap: Snapshot{Symbol: symbol}}
}

// Publish replaces the current snapshot.
func (b *StatusBoard) Publish(snap Snapshot) {
	b.mu.Lock()
	snap.UpdatedAt = time.Now()
	b.snap = snap
	b.mu.Unlock()
}

// Current returns a copy of the latest snapshot.
func (b *StatusBoard) Current() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snap
}
