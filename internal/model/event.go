package model

import "time"

// EventKind tags a MarketEvent payload.
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventConnected
	EventDisconnected
	EventDepthUpdate
	EventTrade
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventDepthUpdate:
		return "depth"
	case EventTrade:
		return "trade"
	default:
		return "unknown"
	}
}

// DepthUpdate is a batch of level changes for both sides of the book.
// A row with zero quantity removes the level at that price.
type DepthUpdate struct {
	Symbol        string
	EventTime     time.Time
	FirstUpdateID int64
	FinalUpdateID int64
	Bids          []PriceLevel
	Asks          []PriceLevel
}

// MarketEvent is the unit passed from the market data transport to the
// decision loop. Exactly one of Depth/Trade is set for data events.
type MarketEvent struct {
	Kind  EventKind
	Recv  time.Time
	Depth *DepthUpdate
	Trade *Trade
}
