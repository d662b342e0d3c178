package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts any casing and returns the canonical upper-case side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", &ValidationError{Field: "side", Reason: "must be BUY or SELL", Value: s}
}

type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopMarket OrderType = "STOP_MARKET"
)

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceGTX TimeInForce = "GTX" // post-only
)

func (t TimeInForce) Valid() bool {
	switch t {
	case TimeInForceGTC, TimeInForceIOC, TimeInForceFOK, TimeInForceGTX:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	// OrderStatusUnknown is never sent by the exchange. It marks a failed poll
	// or a status value we do not recognise.
	OrderStatusUnknown OrderStatus = "UNKNOWN"
)

// ParseOrderStatus maps an exchange status string onto OrderStatus.
func ParseOrderStatus(s string) OrderStatus {
	switch st := OrderStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case OrderStatusNew, OrderStatusPartiallyFilled, OrderStatusFilled,
		OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return st
	}
	return OrderStatusUnknown
}

// IsTerminal reports whether the exchange will never change the order again.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// OrderRequest is a strategy-agnostic order as it is sent to the exchange.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal // LIMIT only
	StopPrice     decimal.Decimal // STOP_MARKET only
	TimeInForce   TimeInForce     // LIMIT only
	ReduceOnly    bool
	ClientOrderID string
}

// Normalize canonicalises symbol, side and time-in-force in place.
func (r *OrderRequest) Normalize() {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.Side = Side(strings.ToUpper(strings.TrimSpace(string(r.Side))))
	r.TimeInForce = TimeInForce(strings.ToUpper(strings.TrimSpace(string(r.TimeInForce))))
	r.ClientOrderID = strings.TrimSpace(r.ClientOrderID)
	if r.Type == OrderTypeLimit && r.TimeInForce == "" {
		r.TimeInForce = TimeInForceGTC
	}
}

// Validate checks the request invariants. It never touches the network.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "is required"}
	}
	if _, err := ParseSide(string(r.Side)); err != nil {
		return err
	}
	if !r.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be > 0", Value: r.Quantity.String()}
	}

	switch r.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if !r.Price.IsPositive() {
			return &ValidationError{Field: "price", Reason: "must be > 0 for LIMIT orders", Value: r.Price.String()}
		}
		if !r.TimeInForce.Valid() {
			return &ValidationError{Field: "timeInForce", Reason: "must be one of GTC, IOC, FOK, GTX", Value: string(r.TimeInForce)}
		}
	case OrderTypeStopMarket:
		if !r.StopPrice.IsPositive() {
			return &ValidationError{Field: "stopPrice", Reason: "must be > 0 for STOP_MARKET orders", Value: r.StopPrice.String()}
		}
	default:
		return &ValidationError{Field: "type", Reason: "must be MARKET, LIMIT or STOP_MARKET", Value: string(r.Type)}
	}

	return nil
}

// OrderHandle identifies a placed order. When both ids are set the exchange
// order id wins.
type OrderHandle struct {
	OrderID       int64  `json:"orderId,omitempty"`
	ClientOrderID string `json:"clientOrderId,omitempty"`
}

func (h OrderHandle) IsZero() bool {
	return h.OrderID == 0 && strings.TrimSpace(h.ClientOrderID) == ""
}

// OrderResult is the exchange's view of an order.
type OrderResult struct {
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Symbol        string          `json:"symbol"`
	Status        OrderStatus     `json:"status"`
	Type          OrderType       `json:"type"`
	Side          Side            `json:"side"`
	Price         decimal.Decimal `json:"price"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	StopPrice     decimal.Decimal `json:"stopPrice"`
	TimeInForce   TimeInForce     `json:"timeInForce,omitempty"`
	ReduceOnly    bool            `json:"reduceOnly"`
	UpdateTime    int64           `json:"updateTime,omitempty"`
}

// Handle returns the identifiers needed to query or cancel the order later.
func (o OrderResult) Handle() OrderHandle {
	return OrderHandle{OrderID: o.OrderID, ClientOrderID: o.ClientOrderID}
}

// CurrentStatus normalises the raw status field; anything unexpected is UNKNOWN.
func (o OrderResult) CurrentStatus() OrderStatus {
	return ParseOrderStatus(string(o.Status))
}
