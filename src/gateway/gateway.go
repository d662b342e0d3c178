package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"futuresbot/src/connectors"
	"futuresbot/src/model"
)

// Signer is the part of connectors.Client the gateway needs.
type Signer interface {
	SendJSON(ctx context.Context, method, path string, params *connectors.Params, out any) error
}

// Gateway maps order operations onto the futures order endpoint. It adds no
// retries and no deduplication.
type Gateway struct {
	client Signer
	logger *logrus.Entry
}

func New(client Signer, log *logrus.Entry) *Gateway {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Gateway{client: client, logger: log.WithField("component", "order_gateway")}
}

// OrderOption adjusts an order before it is validated.
type OrderOption func(*model.OrderRequest)

func WithReduceOnly(reduceOnly bool) OrderOption {
	return func(r *model.OrderRequest) { r.ReduceOnly = reduceOnly }
}

// WithTimeInForce only matters for LIMIT orders.
func WithTimeInForce(tif model.TimeInForce) OrderOption {
	return func(r *model.OrderRequest) { r.TimeInForce = tif }
}

func WithClientOrderID(id string) OrderOption {
	return func(r *model.OrderRequest) { r.ClientOrderID = id }
}

func (g *Gateway) PlaceMarket(ctx context.Context, symbol, side string, qty decimal.Decimal, opts ...OrderOption) (*model.OrderResult, error) {
	return g.Place(ctx, newRequest(symbol, side, model.OrderTypeMarket, qty), opts...)
}

func (g *Gateway) PlaceLimit(ctx context.Context, symbol, side string, qty, price decimal.Decimal, opts ...OrderOption) (*model.OrderResult, error) {
	req := newRequest(symbol, side, model.OrderTypeLimit, qty)
	req.Price = price
	return g.Place(ctx, req, opts...)
}

func (g *Gateway) PlaceStopMarket(ctx context.Context, symbol, side string, qty, stopPrice decimal.Decimal, opts ...OrderOption) (*model.OrderResult, error) {
	req := newRequest(symbol, side, model.OrderTypeStopMarket, qty)
	req.StopPrice = stopPrice
	return g.Place(ctx, req, opts...)
}

func newRequest(symbol, side string, typ model.OrderType, qty decimal.Decimal) model.OrderRequest {
	return model.OrderRequest{
		Symbol:   symbol,
		Side:     model.Side(side),
		Type:     typ,
		Quantity: qty,
	}
}

// Place validates req and submits it. Nothing is sent when validation fails.
func (g *Gateway) Place(ctx context.Context, req model.OrderRequest, opts ...OrderOption) (*model.OrderResult, error) {
	for _, opt := range opts {
		opt(&req)
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := orderParams(req)
	log := g.logger.WithFields(logrus.Fields{
		"symbol":        req.Symbol,
		"side":          req.Side,
		"type":          req.Type,
		"quantity":      req.Quantity.String(),
		"clientOrderId": req.ClientOrderID,
	})
	log.Info("Placing futures order")

	var out model.OrderResult
	if err := g.client.SendJSON(ctx, http.MethodPost, connectors.OrderPath, params, &out); err != nil {
		log.WithError(err).Error("Failed to place futures order")
		return nil, fmt.Errorf("place %s %s order: %w", req.Symbol, req.Type, err)
	}

	log.WithFields(logrus.Fields{
		"orderId": out.OrderID,
		"status":  out.Status,
	}).Info("Futures order placed")
	return &out, nil
}

// orderParams keeps the parameter order stable: symbol, side, type,
// timeInForce, quantity, price, stopPrice, reduceOnly, newClientOrderId.
func orderParams(req model.OrderRequest) *connectors.Params {
	p := connectors.NewParams().
		Add("symbol", req.Symbol).
		Add("side", string(req.Side)).
		Add("type", string(req.Type))

	if req.Type == model.OrderTypeLimit {
		p.Add("timeInForce", string(req.TimeInForce))
	}
	p.Add("quantity", req.Quantity.String())
	if req.Type == model.OrderTypeLimit {
		p.Add("price", req.Price.String())
	}
	if req.Type == model.OrderTypeStopMarket {
		p.Add("stopPrice", req.StopPrice.String())
	}
	p.Add("reduceOnly", strconv.FormatBool(req.ReduceOnly))
	if req.ClientOrderID != "" {
		p.Add("newClientOrderId", req.ClientOrderID)
	}
	return p
}

// GetOrder queries one order by handle.
func (g *Gateway) GetOrder(ctx context.Context, symbol string, handle model.OrderHandle) (*model.OrderResult, error) {
	_, params, err := handleParams(symbol, handle)
	if err != nil {
		return nil, err
	}

	var out model.OrderResult
	if err := g.client.SendJSON(ctx, http.MethodGet, connectors.OrderPath, params, &out); err != nil {
		return nil, fmt.Errorf("get order %s: %w", describe(handle), err)
	}

	g.logger.WithFields(logrus.Fields{
		"symbol":  out.Symbol,
		"orderId": out.OrderID,
		"status":  out.Status,
	}).Debug("Order status")
	return &out, nil
}

// CancelOrder cancels one open order by handle.
func (g *Gateway) CancelOrder(ctx context.Context, symbol string, handle model.OrderHandle) (*model.OrderResult, error) {
	symbol, params, err := handleParams(symbol, handle)
	if err != nil {
		return nil, err
	}

	log := g.logger.WithFields(logrus.Fields{
		"symbol":        symbol,
		"orderId":       handle.OrderID,
		"clientOrderId": handle.ClientOrderID,
	})
	log.Info("Cancelling futures order")

	var out model.OrderResult
	if err := g.client.SendJSON(ctx, http.MethodDelete, connectors.OrderPath, params, &out); err != nil {
		log.WithError(err).Warn("Failed to cancel futures order")
		return nil, fmt.Errorf("cancel order %s: %w", describe(handle), err)
	}

	log.WithField("status", out.Status).Info("Futures order cancelled")
	return &out, nil
}

// handleParams prefers the exchange order id over the client order id.
func handleParams(symbol string, handle model.OrderHandle) (string, *connectors.Params, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", nil, &model.ValidationError{Field: "symbol", Reason: "is required"}
	}
	if handle.IsZero() {
		return "", nil, &model.ValidationError{Field: "handle", Reason: "orderId or clientOrderId is required"}
	}

	p := connectors.NewParams().Add("symbol", symbol)
	if handle.OrderID != 0 {
		p.Add("orderId", strconv.FormatInt(handle.OrderID, 10))
	} else {
		p.Add("origClientOrderId", strings.TrimSpace(handle.ClientOrderID))
	}
	return symbol, p, nil
}

func describe(h model.OrderHandle) string {
	if h.OrderID != 0 {
		return strconv.FormatInt(h.OrderID, 10)
	}
	return h.ClientOrderID
}
