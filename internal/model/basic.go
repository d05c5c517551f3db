package model

import "github.com/shopspring/decimal"

// Side is the direction of an order, trade or signal.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side. Unknown maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return s
	}
}

// PriceLevel is a price point on one side of the book and its resting quantity.
// A level with quantity <= 0 is absent from the book, never stored as zero.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}
