package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the venue-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// OrderResult is the acknowledged outcome of an order submission.
type OrderResult struct {
	OrderID        int64
	ClientOrderID  string
	Symbol         string
	Side           Side
	Status         OrderStatus
	FillPrice      decimal.Decimal
	FilledQuantity decimal.Decimal
	Timestamp      time.Time
}

// IsFilled reports whether the order has any executed quantity.
func (r *OrderResult) IsFilled() bool {
	return r.Status == OrderStatusFilled || r.Status == OrderStatusPartiallyFilled
}
