package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a single executed trade from the market stream.
//
// IsBuyerMaker carries the aggressor information: when the buyer was the
// maker, the trade was initiated by an aggressive seller, and vice versa.
type Trade struct {
	ID           int64
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	Side         Side
	Timestamp    time.Time
	IsBuyerMaker bool
}

// IsAggressiveBuy reports whether the taker side of the trade was a buyer.
func (t Trade) IsAggressiveBuy() bool {
	return !t.IsBuyerMaker
}

// IsAggressiveSell reports whether the taker side of the trade was a seller.
func (t Trade) IsAggressiveSell() bool {
	return t.IsBuyerMaker
}

// Notional returns price * quantity.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}
