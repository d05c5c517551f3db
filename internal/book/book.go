// Package book maintains the live limit-order-book snapshot for a single
// instrument. It is the only shared mutable structure in the decision core:
// market data producers call UpdateLevel concurrently while detectors and
// drivers query it. Each side is locked independently, so queries return a
// consistent per-side snapshot without requiring cross-side atomicity.
package book

import (
	"github.com/shopspring/decimal"

	"github.com/Xtley001/front-run-vanilla/internal/model"
	"github.com/Xtley001/front-run-vanilla/pkg/exception"
)

var bpsFactor = decimal.NewFromInt(10000)

// OrderBook holds the current depth per side for one symbol. Created once
// at startup and mutated by every depth event for the process lifetime.
type OrderBook struct {
	symbol string
	bids   Ladder
	asks   Ladder
}

// New creates an empty order book for a symbol.
func New(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newLadder(true),
		asks:   newLadder(false),
	}
}

// Symbol returns the instrument this book tracks.
func (b *OrderBook) Symbol() string {
	return b.symbol
}

// UpdateLevel upserts the level at price when quantity > 0 and removes it
// when quantity is zero. A received update is applied as-is: a transiently
// crossed book is not corrected here.
func (b *OrderBook) UpdateLevel(side model.Side, price, quantity decimal.Decimal) error {
	if price.Sign() <= 0 {
		return exception.ErrBookInvalidPrice
	}
	if quantity.Sign() < 0 {
		return exception.ErrBookInvalidQuantity
	}

	var ladder Ladder
	switch side {
	case model.SideBuy:
		ladder = b.bids
	case model.SideSell:
		ladder = b.asks
	default:
		return exception.ErrBookUnknownSide
	}

	if quantity.Sign() == 0 {
		ladder.Remove(price)
		return nil
	}

	ladder.Upsert(price, quantity)
	return nil
}

// ApplyDepth applies every row of a depth update in order.
// The first row that fails stops the batch; applied rows stay applied.
func (b *OrderBook) ApplyDepth(update *model.DepthUpdate) error {
	for _, row := range update.Bids {
		if err := b.UpdateLevel(model.SideBuy, row.Price, row.Quantity); err != nil {
			return err
		}
	}
	for _, row := range update.Asks {
		if err := b.UpdateLevel(model.SideSell, row.Price, row.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// TopOfBook returns the best bid and best ask. Either is nil when that side
// is empty. Each side is a consistent snapshot at call time; the two sides
// may be read an instant apart.
func (b *OrderBook) TopOfBook() (bid, ask *model.PriceLevel) {
	if best, ok := b.bids.Best(); ok {
		bid = &best
	}
	if best, ok := b.asks.Best(); ok {
		ask = &best
	}
	return bid, ask
}

// MidPrice returns (best_bid + best_ask) / 2 when both sides are non-empty.
func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
	bid, ask := b.TopOfBook()
	if bid == nil || ask == nil {
		return decimal.Zero, false
	}
	return bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2)), true
}

// SpreadBps returns the bid-ask spread in basis points of the mid price.
func (b *OrderBook) SpreadBps() (decimal.Decimal, bool) {
	bid, ask := b.TopOfBook()
	if bid == nil || ask == nil {
		return decimal.Zero, false
	}

	mid := bid.Price.Add(ask.Price).Div(decimal.NewFromInt(2))
	if mid.Sign() <= 0 {
		return decimal.Zero, false
	}
	return ask.Price.Sub(bid.Price).Div(mid).Mul(bpsFactor), true
}

// Imbalance returns bid depth divided by ask depth over up to `levels` top
// levels per side. It reports false when the ask-side sum is zero, which
// also covers the empty-book case.
func (b *OrderBook) Imbalance(levels int) (float64, bool) {
	askSum := b.asks.SumTop(levels)
	if askSum.Sign() == 0 {
		return 0, false
	}
	bidSum := b.bids.SumTop(levels)
	return bidSum.Div(askSum).InexactFloat64(), true
}

// Depth returns up to `levels` price levels per side, nearest-to-mid first.
func (b *OrderBook) Depth(levels int) (bids, asks []model.PriceLevel) {
	return b.bids.Top(levels), b.asks.Top(levels)
}

// DepthCount returns the number of live levels per side.
func (b *OrderBook) DepthCount() (bidLevels, askLevels int) {
	return b.bids.Len(), b.asks.Len()
}
