package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/pkg/exception"
)

func longPosition(id string, entry, qty int64) *Position {
	return &Position{
		ID:         id,
		Symbol:     "BTCUSDT",
		Side:       model.SideBuy,
		EntryPrice: decimal.NewFromInt(entry),
		Quantity:   decimal.NewFromInt(qty),
		EntryTime:  time.Now(),
	}
}

func TestUnrealizedPnLLong(t *testing.T) {
	p := longPosition("p1", 100, 2)

	pnl := p.UnrealizedPnL(decimal.NewFromInt(110))
	assert.True(t, pnl.Equal(decimal.NewFromInt(20)))

	pnl = p.UnrealizedPnL(decimal.NewFromInt(95))
	assert.True(t, pnl.Equal(decimal.NewFromInt(-10)))
}

func TestUnrealizedPnLShort(t *testing.T) {
	p := longPosition("p1", 100, 2)
	p.Side = model.SideSell

	pnl := p.UnrealizedPnL(decimal.NewFromInt(90))
	assert.True(t, pnl.Equal(decimal.NewFromInt(20)))

	pnl = p.UnrealizedPnL(decimal.NewFromInt(105))
	assert.True(t, pnl.Equal(decimal.NewFromInt(-10)))
}

func TestTakeProfitAndStopLoss(t *testing.T) {
	p := longPosition("p1", 100, 1)
	p.TakeProfit = decimal.NewFromInt(105)
	p.StopLoss = decimal.NewFromInt(97)

	assert.False(t, p.ShouldTakeProfit(decimal.NewFromInt(104)))
	assert.True(t, p.ShouldTakeProfit(decimal.NewFromInt(105)))
	assert.False(t, p.ShouldStopLoss(decimal.NewFromInt(98)))
	assert.True(t, p.ShouldStopLoss(decimal.NewFromInt(97)))

	short := longPosition("p2", 100, 1)
	short.Side = model.SideSell
	short.TakeProfit = decimal.NewFromInt(95)
	short.StopLoss = decimal.NewFromInt(103)

	assert.True(t, short.ShouldTakeProfit(decimal.NewFromInt(95)))
	assert.True(t, short.ShouldStopLoss(decimal.NewFromInt(103)))
}

func TestUnsetExitLevelsNeverTrigger(t *testing.T) {
	p := longPosition("p1", 100, 1)

	assert.False(t, p.ShouldTakeProfit(decimal.NewFromInt(1000)))
	assert.False(t, p.ShouldStopLoss(decimal.NewFromInt(1)))
}

func TestPositionExpiry(t *testing.T) {
	p := longPosition("p1", 100, 1)
	p.MaxHold = 30 * time.Second

	assert.False(t, p.IsExpired(p.EntryTime.Add(29*time.Second)))
	assert.True(t, p.IsExpired(p.EntryTime.Add(30*time.Second)))

	unbounded := longPosition("p2", 100, 1)
	assert.False(t, unbounded.IsExpired(time.Now().Add(time.Hour)))
}

func TestPositionManagerLifecycle(t *testing.T) {
	pm := NewPositionManager()

	require.NoError(t, pm.Open(longPosition("p1", 100, 2)))
	require.NoError(t, pm.Open(longPosition("p2", 200, 1)))
	assert.Equal(t, 2, pm.OpenCount())
	assert.True(t, pm.TotalExposure().Equal(decimal.NewFromInt(400)))

	err := pm.Open(longPosition("p1", 100, 1))
	assert.ErrorIs(t, err, exception.ErrPositionExists)

	pnl, err := pm.Close("p1", decimal.NewFromInt(110))
	require.NoError(t, err)
	assert.True(t, pnl.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 1, pm.OpenCount())
	assert.True(t, pm.RealizedPnL().Equal(decimal.NewFromInt(20)))

	_, err = pm.Close("p1", decimal.NewFromInt(110))
	assert.ErrorIs(t, err, exception.ErrUnknownPosition)
}

func TestWinRate(t *testing.T) {
	pm := NewPositionManager()
	assert.Zero(t, pm.WinRate())

	require.NoError(t, pm.Open(longPosition("w1", 100, 1)))
	require.NoError(t, pm.Open(longPosition("w2", 100, 1)))
	require.NoError(t, pm.Open(longPosition("l1", 100, 1)))

	_, err := pm.Close("w1", decimal.NewFromInt(110))
	require.NoError(t, err)
	_, err = pm.Close("w2", decimal.NewFromInt(105))
	require.NoError(t, err)
	_, err = pm.Close("l1", decimal.NewFromInt(90))
	require.NoError(t, err)

	assert.InDelta(t, 2.0/3.0, pm.WinRate(), 1e-9)
	assert.Equal(t, 3, pm.ClosedTrades())
	assert.True(t, pm.RealizedPnL().Equal(decimal.NewFromInt(5)))
}

func TestTotalUnrealizedPnL(t *testing.T) {
	pm := NewPositionManager()
	require.NoError(t, pm.Open(longPosition("p1", 100, 1)))

	short := longPosition("p2", 100, 1)
	short.Side = model.SideSell
	require.NoError(t, pm.Open(short))

	// long gains 10, short loses 10
	assert.True(t, pm.TotalUnrealizedPnL(decimal.NewFromInt(110)).IsZero())
}
